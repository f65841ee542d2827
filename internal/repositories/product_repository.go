package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"critico/internal/models"
)

var ErrProductNotFound = errors.New("product not found")

// ProductRepository abstracts product persistence.
type ProductRepository interface {
	CreateProduct(ctx context.Context, ownerID int, title, description string, priceCents int, tags []string) (models.Product, error)
	GetProduct(ctx context.Context, productID int) (models.Product, error)
	GetOwnerID(ctx context.Context, productID int) (int, error)
	ListProducts(ctx context.Context) ([]models.ProductSummary, error)
	ListProductsByOwner(ctx context.Context, ownerID int) ([]models.Product, error)
	DeleteProduct(ctx context.Context, productID int, ownerID int) error
	AddImage(ctx context.Context, productID int, url string) error
}

// ProductRepo is a sqlx implementation of ProductRepository.
type ProductRepo struct {
	db *sqlx.DB
}

// NewProductRepo constructs a ProductRepo.
func NewProductRepo(db *sqlx.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

// CreateProduct inserts a product together with its tags.
func (r *ProductRepo) CreateProduct(ctx context.Context, ownerID int, title, description string, priceCents int, tags []string) (models.Product, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Product{}, err
	}
	defer tx.Rollback()

	var product models.Product
	err = tx.QueryRowxContext(ctx, `INSERT INTO products (owner_id, title, description, price_cents)
        VALUES ($1, $2, $3, $4) RETURNING id, owner_id, title, description, price_cents, created_at`,
		ownerID, title, description, priceCents).StructScan(&product)
	if err != nil {
		return models.Product{}, err
	}

	for _, tag := range tags {
		var tagID int
		if err := tx.QueryRowxContext(ctx, `INSERT INTO tags (name) VALUES ($1)
            ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id`, tag).Scan(&tagID); err != nil {
			return models.Product{}, err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO product_tags (product_id, tag_id) VALUES ($1, $2)
            ON CONFLICT DO NOTHING`, product.ID, tagID); err != nil {
			return models.Product{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Product{}, err
	}
	product.Tags = tags
	return product, nil
}

// GetProduct fetches a product with its tags and image URLs.
func (r *ProductRepo) GetProduct(ctx context.Context, productID int) (models.Product, error) {
	var product models.Product
	err := r.db.GetContext(ctx, &product, `SELECT id, owner_id, title, description, price_cents, created_at
        FROM products WHERE id=$1`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ErrProductNotFound
	}
	if err != nil {
		return models.Product{}, err
	}

	if err := r.db.SelectContext(ctx, &product.Tags, `SELECT t.name FROM tags t
        JOIN product_tags pt ON pt.tag_id = t.id WHERE pt.product_id=$1 ORDER BY t.name`, productID); err != nil {
		return models.Product{}, err
	}
	if err := r.db.SelectContext(ctx, &product.Images, `SELECT url FROM product_images
        WHERE product_id=$1 ORDER BY id`, productID); err != nil {
		return models.Product{}, err
	}
	return product, nil
}

// GetOwnerID resolves a product to its owner.
func (r *ProductRepo) GetOwnerID(ctx context.Context, productID int) (int, error) {
	var ownerID int
	err := r.db.GetContext(ctx, &ownerID, `SELECT owner_id FROM products WHERE id=$1`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	return ownerID, err
}

// ListProducts returns all products with owner names and review aggregates,
// newest first.
func (r *ProductRepo) ListProducts(ctx context.Context) ([]models.ProductSummary, error) {
	type row struct {
		models.Product
		OwnerName   string         `db:"owner_name"`
		AvgStars    float64        `db:"avg_stars"`
		ReviewCount int            `db:"review_count"`
		TagNames    pq.StringArray `db:"tag_names"`
		ImageURLs   pq.StringArray `db:"image_urls"`
	}
	query := `SELECT p.id, p.owner_id, p.title, p.description, p.price_cents, p.created_at,
            u.name AS owner_name,
            COALESCE(AVG(r.stars), 0) AS avg_stars,
            COUNT(DISTINCT r.id) AS review_count,
            COALESCE(ARRAY_AGG(DISTINCT t.name) FILTER (WHERE t.name IS NOT NULL), '{}') AS tag_names,
            COALESCE(ARRAY_AGG(DISTINCT i.url) FILTER (WHERE i.url IS NOT NULL), '{}') AS image_urls
        FROM products p
        JOIN users u ON u.id = p.owner_id
        LEFT JOIN reviews r ON r.product_id = p.id
        LEFT JOIN product_tags pt ON pt.product_id = p.id
        LEFT JOIN tags t ON t.id = pt.tag_id
        LEFT JOIN product_images i ON i.product_id = p.id
        GROUP BY p.id, u.name
        ORDER BY p.created_at DESC`

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	result := make([]models.ProductSummary, 0, len(rows))
	for _, rw := range rows {
		product := rw.Product
		product.Tags = rw.TagNames
		product.Images = rw.ImageURLs
		result = append(result, models.ProductSummary{
			Product:     product,
			OwnerName:   rw.OwnerName,
			AvgStars:    rw.AvgStars,
			ReviewCount: rw.ReviewCount,
		})
	}
	return result, nil
}

// ListProductsByOwner returns all products listed by one user, newest first.
func (r *ProductRepo) ListProductsByOwner(ctx context.Context, ownerID int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.SelectContext(ctx, &products, `SELECT id, owner_id, title, description, price_cents, created_at
        FROM products WHERE owner_id=$1 ORDER BY created_at DESC`, ownerID)
	return products, err
}

// DeleteProduct removes a product if the caller owns it.
func (r *ProductRepo) DeleteProduct(ctx context.Context, productID int, ownerID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1 AND owner_id=$2`, productID, ownerID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrProductNotFound
	}
	return nil
}

// AddImage attaches an image URL to a product.
func (r *ProductRepo) AddImage(ctx context.Context, productID int, url string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO product_images (product_id, url) VALUES ($1, $2)`, productID, url)
	return err
}
