package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopmate/backend/internal/database"
	"github.com/shopmate/backend/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, description, price, category, ratings, images, stock, created_by, created_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Category,
		&product.Ratings,
		&product.Images,
		&product.Stock,
		&product.CreatedBy,
		&product.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

type ProductParams struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Stock       int
	Images      models.ImageList
	CreatedBy   int64
}

func CreateProduct(ctx context.Context, db *sql.DB, p ProductParams) (*models.Product, error) {
	query := `
		INSERT INTO products (name, description, price, category, stock, images, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		p.Name, p.Description, p.Price, p.Category, p.Stock, p.Images, p.CreatedBy))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func UpdateProduct(ctx context.Context, db *sql.DB, id int64, name, description string, price decimal.Decimal, category string, stock int) (*models.Product, error) {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, category = $4, stock = $5
		WHERE id = $6
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		name, description, price, category, stock, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

// DeleteProduct removes the product and returns the deleted row so callers
// can release its hosted images.
func DeleteProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	query := `DELETE FROM products WHERE id = $1 RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("delete product: %w", err)
	}

	return product, nil
}

// Availability buckets for the catalog listing.
const (
	AvailabilityInStock    = "in-stock"
	AvailabilityLimited    = "limited"
	AvailabilityOutOfStock = "out-of-stock"
)

type ProductFilter struct {
	Availability string
	PriceMin     *decimal.Decimal
	PriceMax     *decimal.Decimal
	Category     string
	MinRating    *decimal.Decimal
	Search       string
	Page         int
}

type ProductListing struct {
	Products         []models.Product `json:"products"`
	TotalProducts    int64            `json:"total_products"`
	NewProducts      []models.Product `json:"new_products"`
	TopRatedProducts []models.Product `json:"top_rated_products"`
}

// whereClause builds the AND-combined filter condition and its arguments.
func (f ProductFilter) whereClause() (string, []interface{}) {
	var conditions []string
	var args []interface{}
	idx := 1

	switch f.Availability {
	case AvailabilityInStock:
		conditions = append(conditions, "stock > 5")
	case AvailabilityLimited:
		conditions = append(conditions, "stock > 0 AND stock <= 5")
	case AvailabilityOutOfStock:
		conditions = append(conditions, "stock = 0")
	}

	if f.PriceMin != nil && f.PriceMax != nil {
		conditions = append(conditions, fmt.Sprintf("price BETWEEN $%d AND $%d", idx, idx+1))
		args = append(args, *f.PriceMin, *f.PriceMax)
		idx += 2
	}

	if f.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category ILIKE $%d", idx))
		args = append(args, "%"+f.Category+"%")
		idx++
	}

	if f.MinRating != nil {
		conditions = append(conditions, fmt.Sprintf("ratings >= $%d", idx))
		args = append(args, *f.MinRating)
		idx++
	}

	if f.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", idx, idx))
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func queryProductsWithReviewCount(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]models.Product, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.Category,
			&product.Ratings,
			&product.Images,
			&product.Stock,
			&product.CreatedBy,
			&product.CreatedAt,
			&product.ReviewCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

const productsWithReviewCount = `
	SELECT products.id, products.name, products.description, products.price,
	       products.category, products.ratings, products.images, products.stock,
	       products.created_by, products.created_at,
	       COUNT(reviews.id) AS review_count
	FROM products
	LEFT JOIN reviews ON products.id = reviews.product_id`

// ListProducts runs the four independent catalog queries: the filtered count,
// the current page, the recently created list, and the toprated list.
func ListProducts(ctx context.Context, db *sql.DB, filter ProductFilter) (*ProductListing, error) {
	where, args := filter.whereClause()

	var total int64
	countQuery := "SELECT COUNT(*) FROM products " + where
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * PageSize

	pageQuery := fmt.Sprintf(`%s %s
		GROUP BY products.id
		ORDER BY products.created_at DESC
		LIMIT $%d OFFSET $%d`, productsWithReviewCount, where, len(args)+1, len(args)+2)

	pageArgs := append(append([]interface{}{}, args...), PageSize, offset)
	products, err := queryProductsWithReviewCount(ctx, db, pageQuery, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	newProducts, err := queryProductsWithReviewCount(ctx, db, productsWithReviewCount+`
		WHERE products.created_at >= NOW() - INTERVAL '30 days'
		GROUP BY products.id
		ORDER BY products.created_at DESC
		LIMIT 8`)
	if err != nil {
		return nil, fmt.Errorf("list new products: %w", err)
	}

	topRated, err := queryProductsWithReviewCount(ctx, db, productsWithReviewCount+`
		WHERE products.ratings >= 4.5
		GROUP BY products.id
		ORDER BY products.ratings DESC, products.created_at DESC
		LIMIT 8`)
	if err != nil {
		return nil, fmt.Errorf("list top rated products: %w", err)
	}

	return &ProductListing{
		Products:         products,
		TotalProducts:    total,
		NewProducts:      newProducts,
		TopRatedProducts: topRated,
	}, nil
}

// GetProductDetail returns the product plus all its reviews annotated with
// the reviewing user's public identity. Reviews default to an empty slice.
func GetProductDetail(ctx context.Context, db *sql.DB, id int64) (*models.Product, []models.ReviewWithUser, error) {
	product, err := GetProduct(ctx, db, id)
	if err != nil {
		return nil, nil, err
	}

	query := `
		SELECT r.id, r.product_id, r.user_id, r.rating, r.comment, r.created_at,
		       u.id, u.name, u.avatar
		FROM reviews r
		JOIN users u ON r.user_id = u.id
		WHERE r.product_id = $1
		ORDER BY r.created_at DESC`

	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get product reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]models.ReviewWithUser, 0)
	for rows.Next() {
		var review models.ReviewWithUser
		err := rows.Scan(
			&review.ID,
			&review.ProductID,
			&review.UserID,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
			&review.Reviewer.ID,
			&review.Reviewer.Name,
			&review.Reviewer.Avatar,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows error: %w", err)
	}

	return product, reviews, nil
}
