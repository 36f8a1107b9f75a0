package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopmate/backend/internal/database"
	"github.com/shopmate/backend/internal/models"
)

const reviewColumns = `id, product_id, user_id, rating, comment, created_at`

func scanReview(row interface{ Scan(...interface{}) error }) (*models.Review, error) {
	review := &models.Review{}
	err := row.Scan(
		&review.ID,
		&review.ProductID,
		&review.UserID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return review, nil
}

// HasPaidPurchase reports whether the user has a paid order item for the
// product, which gates review submission.
func HasPaidPurchase(ctx context.Context, db *sql.DB, userID, productID int64) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			JOIN payments p ON p.order_id = o.id
			WHERE o.buyer_id = $1
			  AND oi.product_id = $2
			  AND p.payment_status = 'Paid'
		)`, userID, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check paid purchase: %w", err)
	}
	return exists, nil
}

// recomputeRatings persists the mean rating of the surviving reviews for the
// product, zero when none remain. Must run with the product row locked.
func recomputeRatings(ctx context.Context, tx *sql.Tx, productID int64) (*models.Product, error) {
	query := `
		UPDATE products
		SET ratings = (
			SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE product_id = $1
		)
		WHERE id = $1
		RETURNING ` + productColumns

	product, err := scanProduct(tx.QueryRowContext(ctx, query, productID))
	if err != nil {
		return nil, fmt.Errorf("recompute ratings: %w", err)
	}
	return product, nil
}

// UpsertReview writes the caller's review for a product, overwriting any
// earlier one, and recomputes the product's average rating. The whole
// sequence, including the paid-purchase gate, runs in one transaction with
// the product row locked. Returns the review, the updated product, and
// whether the review was newly created.
func UpsertReview(ctx context.Context, db *sql.DB, productID, userID int64, rating int, comment string) (*models.Review, *models.Product, bool, error) {
	var (
		review  *models.Review
		product *models.Product
		created bool
	)

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var lockedID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM products WHERE id = $1 FOR UPDATE`,
			productID).Scan(&lockedID)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrProductNotFound
			}
			return fmt.Errorf("lock product: %w", err)
		}

		var paid bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS(
				SELECT 1
				FROM order_items oi
				JOIN orders o ON o.id = oi.order_id
				JOIN payments p ON p.order_id = o.id
				WHERE o.buyer_id = $1
				  AND oi.product_id = $2
				  AND p.payment_status = 'Paid'
			)`, userID, productID).Scan(&paid)
		if err != nil {
			return fmt.Errorf("check paid purchase: %w", err)
		}
		if !paid {
			return database.ErrPurchaseRequired
		}

		review, err = scanReview(tx.QueryRowContext(ctx, `
			UPDATE reviews SET rating = $1, comment = $2
			WHERE product_id = $3 AND user_id = $4
			RETURNING `+reviewColumns,
			rating, comment, productID, userID))
		if err == sql.ErrNoRows {
			created = true
			review, err = scanReview(tx.QueryRowContext(ctx, `
				INSERT INTO reviews (rating, comment, product_id, user_id)
				VALUES ($1, $2, $3, $4)
				RETURNING `+reviewColumns,
				rating, comment, productID, userID))
		}
		if err != nil {
			return fmt.Errorf("upsert review: %w", err)
		}

		product, err = recomputeRatings(ctx, tx, productID)
		return err
	})
	if err != nil {
		return nil, nil, false, err
	}

	return review, product, created, nil
}

// DeleteReview removes the caller's review and recomputes the product rating
// in the same transaction.
func DeleteReview(ctx context.Context, db *sql.DB, productID, userID int64) (*models.Review, *models.Product, error) {
	var (
		review  *models.Review
		product *models.Product
	)

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var lockedID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM products WHERE id = $1 FOR UPDATE`,
			productID).Scan(&lockedID)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrProductNotFound
			}
			return fmt.Errorf("lock product: %w", err)
		}

		review, err = scanReview(tx.QueryRowContext(ctx, `
			DELETE FROM reviews
			WHERE product_id = $1 AND user_id = $2
			RETURNING `+reviewColumns,
			productID, userID))
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrReviewNotFound
			}
			return fmt.Errorf("delete review: %w", err)
		}

		product, err = recomputeRatings(ctx, tx, productID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return review, product, nil
}
