package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopmate/backend/internal/models"
)

// candidateLimit caps the keyword pre-filter before the external ranker.
const candidateLimit = 200

// SearchCandidates returns products whose name, description, or category
// matches any of the given keywords. Keywords are matched as substrings.
func SearchCandidates(ctx context.Context, db *sql.DB, keywords []string) ([]models.Product, error) {
	if len(keywords) == 0 {
		return []models.Product{}, nil
	}

	patterns := make([]string, len(keywords))
	for i, kw := range keywords {
		patterns[i] = "%" + kw + "%"
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE name ILIKE ANY($1)
		   OR description ILIKE ANY($1)
		   OR category ILIKE ANY($1)
		LIMIT $2`

	rows, err := db.QueryContext(ctx, query, pq.Array(patterns), candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}
