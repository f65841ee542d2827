package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"critico/internal/auth"
	"critico/internal/conversations"
	"critico/internal/db"
	"critico/internal/handlers"
	"critico/internal/middleware"
	"critico/internal/observability"
	"critico/internal/rabbitmq"
	"critico/internal/repositories"
	"critico/internal/requests"
	"critico/internal/telemetry"
	"critico/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	amqpURL := getEnv("AMQP_URL", "")
	exchange := getEnv("AMQP_EXCHANGE", "critico.events")
	publisher := rabbitmq.NewPublisher(amqpURL, exchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	if eventPublisher, err := observability.NewAMQPPublisher(amqpURL, exchange); err == nil {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	} else {
		log.Printf("ws event publishing disabled: %v", err)
	}

	audit := telemetry.NewAuditEmitter(publisher, "audit.critico", "critico", getEnv("ENVIRONMENT", "development"))

	tokens := auth.NewManager(getEnv("JWT_SECRET", "critico-dev-secret"))
	baseURL := getEnv("BASE_URL", "http://localhost:8080")

	userRepo := repositories.NewUserRepo(database)
	productRepo := repositories.NewProductRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	tokenRepo := repositories.NewTokenRepo(database)
	reviewRepo := repositories.NewReviewRepo(database)

	requestService := requests.NewService(database, chatRepo, baseURL)
	convos := conversations.NewService(chatRepo, messageRepo)

	hub := ws.NewHub()
	notifier := ws.NewNotifier(hub, convos, ws.DefaultDebounce)
	defer notifier.Close()

	authHandler := handlers.NewAuthHandler(userRepo, tokens, audit)
	chatHandler := handlers.NewChatHandler(chatRepo, messageRepo, convos, hub, notifier, audit)
	requestHandler := handlers.NewRequestHandler(requestService, messageRepo, tokenRepo, hub, notifier, audit, baseURL)
	productHandler := handlers.NewProductHandler(productRepo, chatRepo, messageRepo, reviewRepo, hub, audit)
	reviewHandler := handlers.NewReviewHandler(reviewRepo, productRepo, audit)
	profileHandler := handlers.NewProfileHandler(userRepo, productRepo, reviewRepo)

	chatWS := ws.NewChatWebSocketHandler(hub, chatRepo, tokens)
	productWS := ws.NewProductWebSocketHandler(hub, productRepo, tokens)
	feedWS := ws.NewFeedWebSocketHandler(hub, tokens)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("critico"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)

	authMiddleware := middleware.AuthMiddleware(tokens)

	router.GET("/conversations", authMiddleware, chatHandler.ListConversations)
	router.POST("/chats/direct/start", authMiddleware, chatHandler.StartChat)
	router.GET("/chats/:chat_id/messages", authMiddleware, chatHandler.GetChatMessages)
	router.POST("/chats/:chat_id/messages", authMiddleware, chatHandler.PostChatMessage)
	router.POST("/chats/:chat_id/read", authMiddleware, chatHandler.MarkChatRead)

	router.POST("/requests", authMiddleware, requestHandler.CreateRequest)
	router.GET("/requests", authMiddleware, requestHandler.ListPendingRequests)
	router.POST("/requests/:message_id/accept", authMiddleware, requestHandler.AcceptRequest)
	router.POST("/requests/:message_id/decline", authMiddleware, requestHandler.DeclineRequest)
	router.POST("/tokens/:token/redeem", authMiddleware, requestHandler.RedeemToken)
	router.GET("/tokens/:token/qr.png", authMiddleware, requestHandler.TokenQR)

	router.GET("/products", productHandler.ListProducts)
	router.POST("/products", authMiddleware, productHandler.CreateProduct)
	router.GET("/products/:product_id", productHandler.GetProduct)
	router.DELETE("/products/:product_id", authMiddleware, productHandler.DeleteProduct)
	router.POST("/products/:product_id/images", authMiddleware, productHandler.AddImage)
	router.GET("/products/:product_id/comments", productHandler.GetComments)
	router.POST("/products/:product_id/comments", authMiddleware, productHandler.PostComment)
	router.GET("/products/:product_id/reviews", reviewHandler.ListReviews)
	router.POST("/products/:product_id/reviews", authMiddleware, reviewHandler.CreateReview)

	router.GET("/profile", authMiddleware, profileHandler.GetOwnProfile)
	router.PUT("/profile/picture", authMiddleware, profileHandler.UpdatePicture)
	router.GET("/users/:user_id/profile", profileHandler.GetPublicProfile)

	router.GET("/ws/chats/:chat_id", chatWS.Handle)
	router.GET("/ws/products/:product_id", productWS.Handle)
	router.GET("/ws/feed", feedWS.Handle)

	handlers.RegisterDebugRoutes(router, audit, getEnv("DEBUG_ROUTES", "") == "true")

	port := getEnv("PORT", "8080")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
