package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"critico/internal/conversations"
	"critico/internal/models"
	"critico/internal/requests"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateOrGetDirectChat(ctx context.Context, userID int, partnerID int) (models.Chat, error) {
	args := m.Called(ctx, userID, partnerID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) CreateOrGetProductThread(ctx context.Context, productID int) (models.Chat, error) {
	args := m.Called(ctx, productID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) IsParticipant(ctx context.Context, chatID int, userID int) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) ListDirectChatIDs(ctx context.Context, userID int) ([]int, error) {
	args := m.Called(ctx, userID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *ChatRepositoryMock) GetPartner(ctx context.Context, chatID int, userID int) (models.User, error) {
	args := m.Called(ctx, chatID, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetChatHistory(ctx context.Context, chatID int, viewerID int) ([]models.Message, error) {
	args := m.Called(ctx, chatID, viewerID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetProductThreadMessages(ctx context.Context, chatID int) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) LastDirectMessage(ctx context.Context, chatID int) (models.Message, error) {
	args := m.Called(ctx, chatID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) UnreadDirectCount(ctx context.Context, chatID int, userID int) (int, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) MarkChatRead(ctx context.Context, chatID int, readerID int) (int, error) {
	args := m.Called(ctx, chatID, readerID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) PendingRequests(ctx context.Context, userID int) ([]models.Message, error) {
	args := m.Called(ctx, userID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type ProductRepositoryMock struct {
	mock.Mock
}

func (m *ProductRepositoryMock) CreateProduct(ctx context.Context, ownerID int, title, description string, priceCents int, tags []string) (models.Product, error) {
	args := m.Called(ctx, ownerID, title, description, priceCents, tags)
	var product models.Product
	if val := args.Get(0); val != nil {
		product = val.(models.Product)
	}
	return product, args.Error(1)
}

func (m *ProductRepositoryMock) GetProduct(ctx context.Context, productID int) (models.Product, error) {
	args := m.Called(ctx, productID)
	var product models.Product
	if val := args.Get(0); val != nil {
		product = val.(models.Product)
	}
	return product, args.Error(1)
}

func (m *ProductRepositoryMock) GetOwnerID(ctx context.Context, productID int) (int, error) {
	args := m.Called(ctx, productID)
	return args.Int(0), args.Error(1)
}

func (m *ProductRepositoryMock) ListProducts(ctx context.Context) ([]models.ProductSummary, error) {
	args := m.Called(ctx)
	var products []models.ProductSummary
	if val := args.Get(0); val != nil {
		products = val.([]models.ProductSummary)
	}
	return products, args.Error(1)
}

func (m *ProductRepositoryMock) ListProductsByOwner(ctx context.Context, ownerID int) ([]models.Product, error) {
	args := m.Called(ctx, ownerID)
	var products []models.Product
	if val := args.Get(0); val != nil {
		products = val.([]models.Product)
	}
	return products, args.Error(1)
}

func (m *ProductRepositoryMock) DeleteProduct(ctx context.Context, productID int, ownerID int) error {
	args := m.Called(ctx, productID, ownerID)
	return args.Error(0)
}

func (m *ProductRepositoryMock) AddImage(ctx context.Context, productID int, url string) error {
	args := m.Called(ctx, productID, url)
	return args.Error(0)
}

type ReviewRepositoryMock struct {
	mock.Mock
}

func (m *ReviewRepositoryMock) HasCommentPermission(ctx context.Context, userID int, productID int) (bool, error) {
	args := m.Called(ctx, userID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *ReviewRepositoryMock) CreateReview(ctx context.Context, productID int, userID int, stars int, body string) (models.Review, error) {
	args := m.Called(ctx, productID, userID, stars, body)
	var review models.Review
	if val := args.Get(0); val != nil {
		review = val.(models.Review)
	}
	return review, args.Error(1)
}

func (m *ReviewRepositoryMock) ListReviews(ctx context.Context, productID int) ([]models.Review, error) {
	args := m.Called(ctx, productID)
	var reviews []models.Review
	if val := args.Get(0); val != nil {
		reviews = val.([]models.Review)
	}
	return reviews, args.Error(1)
}

func (m *ReviewRepositoryMock) CountReviewsByUser(ctx context.Context, userID int) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, email, passwordHash, name, surname string) (models.User, error) {
	args := m.Called(ctx, email, passwordHash, name, surname)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUserByID(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) UpdatePicture(ctx context.Context, userID int, pictureURL string) error {
	args := m.Called(ctx, userID, pictureURL)
	return args.Error(0)
}

type TokenRepositoryMock struct {
	mock.Mock
}

func (m *TokenRepositoryMock) GetToken(ctx context.Context, token string) (models.RequestToken, error) {
	args := m.Called(ctx, token)
	var t models.RequestToken
	if val := args.Get(0); val != nil {
		t = val.(models.RequestToken)
	}
	return t, args.Error(1)
}

type RequestServiceMock struct {
	mock.Mock
}

func (m *RequestServiceMock) Create(ctx context.Context, testerID int, productID int) (models.Message, error) {
	args := m.Called(ctx, testerID, productID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *RequestServiceMock) Accept(ctx context.Context, callerID int, messageID int) (requests.AcceptResult, error) {
	args := m.Called(ctx, callerID, messageID)
	var result requests.AcceptResult
	if val := args.Get(0); val != nil {
		result = val.(requests.AcceptResult)
	}
	return result, args.Error(1)
}

func (m *RequestServiceMock) Decline(ctx context.Context, callerID int, messageID int) (models.Message, error) {
	args := m.Called(ctx, callerID, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *RequestServiceMock) Redeem(ctx context.Context, testerID int, token string) (int, error) {
	args := m.Called(ctx, testerID, token)
	return args.Int(0), args.Error(1)
}

type ConversationListerMock struct {
	mock.Mock
}

func (m *ConversationListerMock) List(ctx context.Context, userID int, search string) (conversations.Overview, error) {
	args := m.Called(ctx, userID, search)
	var overview conversations.Overview
	if val := args.Get(0); val != nil {
		overview = val.(conversations.Overview)
	}
	return overview, args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) NotifyMessage(ctx context.Context, userID int, event models.FeedEvent) {
	m.Called(ctx, userID, event)
}

func (m *NotifierMock) NotifyRead(userID int) {
	m.Called(userID)
}
