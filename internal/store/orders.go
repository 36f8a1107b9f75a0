package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopmate/backend/internal/database"
	"github.com/shopmate/backend/internal/models"
	"github.com/shopspring/decimal"
)

var (
	taxRate           = decimal.NewFromFloat(0.18)
	freeShippingFloor = decimal.NewFromInt(50)
	shippingFee       = decimal.NewFromInt(2)
)

// computeTotals applies the 18% tax rate and the shipping policy (free at or
// above a 50 subtotal, flat 2 below) and rounds the grand total to the
// nearest whole currency unit.
func computeTotals(subtotal decimal.Decimal) (tax, shipping, total decimal.Decimal) {
	tax = subtotal.Mul(taxRate)

	shipping = shippingFee
	if subtotal.GreaterThanOrEqual(freeShippingFloor) {
		shipping = decimal.Zero
	}

	total = subtotal.Add(tax).Add(shipping).Round(0)
	return tax, shipping, total
}

type CheckoutItem struct {
	ProductID int64
	Quantity  int
}

type CheckoutRequest struct {
	BuyerID  int64
	Items    []CheckoutItem
	Shipping models.ShippingInfo
}

// IntentCreator requests a payment intent from the external payment
// provider, returning the client secret handed back to the buyer and the
// provider's intent id.
type IntentCreator interface {
	CreateIntent(ctx context.Context, orderID int64, amount decimal.Decimal) (clientSecret, intentID string, err error)
}

type PlacedOrder struct {
	Order        *models.Order `json:"order"`
	ClientSecret string        `json:"payment_intent"`
	IntentID     string        `json:"-"`
}

// PlaceOrder runs the whole checkout in one serializable transaction:
// authoritative price/stock re-read with the product rows locked, total
// computation, order/order_items/shipping_info inserts, conditional stock
// decrement, payment intent request, and the pending payment row. Any
// failure, including an intent failure, leaves no rows behind.
func PlaceOrder(ctx context.Context, db *sql.DB, payments IntentCreator, req CheckoutRequest) (*PlacedOrder, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("empty cart")
	}

	ids := make([]int64, 0, len(req.Items))
	seen := make(map[int64]bool, len(req.Items))
	for _, item := range req.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	var placed *PlacedOrder

	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, name, price, stock, images
			FROM products
			WHERE id = ANY($1)
			FOR UPDATE`, pq.Array(ids))
		if err != nil {
			return fmt.Errorf("lock products: %w", err)
		}

		type productRow struct {
			name   string
			price  decimal.Decimal
			stock  int
			images models.ImageList
		}
		products := make(map[int64]productRow, len(ids))
		for rows.Next() {
			var (
				id int64
				p  productRow
			)
			if err := rows.Scan(&id, &p.name, &p.price, &p.stock, &p.images); err != nil {
				rows.Close()
				return fmt.Errorf("scan product: %w", err)
			}
			products[id] = p
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		// Validate every cart line before any write; the first failure
		// aborts the whole checkout.
		subtotal := decimal.Zero
		for _, item := range req.Items {
			product, ok := products[item.ProductID]
			if !ok {
				return fmt.Errorf("product %d: %w", item.ProductID, database.ErrProductNotFound)
			}
			if item.Quantity <= 0 {
				return fmt.Errorf("invalid quantity %d for %q", item.Quantity, product.name)
			}
			if item.Quantity > product.stock {
				return fmt.Errorf("only %d of %q available: %w", product.stock, product.name, database.ErrInsufficientStock)
			}
			subtotal = subtotal.Add(product.price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		tax, shipping, total := computeTotals(subtotal)

		order := &models.Order{}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO orders (buyer_id, total_price, tax_price, shipping_price)
			VALUES ($1, $2, $3, $4)
			RETURNING id, buyer_id, total_price, tax_price, shipping_price, order_status, created_at`,
			req.BuyerID, total, tax, shipping).Scan(
			&order.ID,
			&order.BuyerID,
			&order.TotalPrice,
			&order.TaxPrice,
			&order.ShippingPrice,
			&order.OrderStatus,
			&order.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		order.Items = make([]models.OrderItem, 0, len(req.Items))
		for _, item := range req.Items {
			product := products[item.ProductID]

			image := ""
			if len(product.images) > 0 {
				image = product.images[0].URL
			}

			orderItem := models.OrderItem{
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     product.price,
				Image:     image,
				Title:     product.name,
			}
			err = tx.QueryRowContext(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity, price, image, title)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id`,
				orderItem.OrderID, orderItem.ProductID, orderItem.Quantity,
				orderItem.Price, orderItem.Image, orderItem.Title).Scan(&orderItem.ID)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
			order.Items = append(order.Items, orderItem)
		}

		shippingInfo := req.Shipping
		shippingInfo.OrderID = order.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO shipping_info (order_id, full_name, state, city, country, address, pincode, phone)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			shippingInfo.OrderID, shippingInfo.FullName, shippingInfo.State,
			shippingInfo.City, shippingInfo.Country, shippingInfo.Address,
			shippingInfo.Pincode, shippingInfo.Phone)
		if err != nil {
			return fmt.Errorf("create shipping info: %w", err)
		}
		order.Shipping = &shippingInfo

		for _, item := range req.Items {
			result, err := tx.ExecContext(ctx, `
				UPDATE products
				SET stock = stock - $1
				WHERE id = $2
				  AND stock >= $1`,
				item.Quantity, item.ProductID)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}

			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("get rows affected: %w", err)
			}
			if affected == 0 {
				return fmt.Errorf("product %d: %w", item.ProductID, database.ErrInsufficientStock)
			}
		}

		clientSecret, intentID, err := payments.CreateIntent(ctx, order.ID, order.TotalPrice)
		if err != nil {
			return fmt.Errorf("%w: %v", database.ErrPaymentFailed, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO payments (order_id, intent_id, payment_status)
			VALUES ($1, $2, $3)`,
			order.ID, intentID, models.PaymentStatusPending)
		if err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		placed = &PlacedOrder{
			Order:        order,
			ClientSecret: clientSecret,
			IntentID:     intentID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return placed, nil
}

const orderColumns = `id, buyer_id, total_price, tax_price, shipping_price, order_status, created_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.BuyerID,
		&order.TotalPrice,
		&order.TaxPrice,
		&order.ShippingPrice,
		&order.OrderStatus,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Items = make([]models.OrderItem, 0)
	return order, nil
}

// attachOrderDetails loads items and shipping info for the given orders in
// two id-set queries and assembles the nested documents. Orders without
// items keep an empty slice, never nil.
func attachOrderDetails(ctx context.Context, db *sql.DB, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
		byID[order.ID] = order
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, price, image, title
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&item.Image,
			&item.Title,
		)
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	shippingRows, err := db.QueryContext(ctx, `
		SELECT order_id, full_name, state, city, country, address, pincode, phone
		FROM shipping_info
		WHERE order_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get shipping info: %w", err)
	}
	defer shippingRows.Close()

	for shippingRows.Next() {
		var info models.ShippingInfo
		err := shippingRows.Scan(
			&info.OrderID,
			&info.FullName,
			&info.State,
			&info.City,
			&info.Country,
			&info.Address,
			&info.Pincode,
			&info.Phone,
		)
		if err != nil {
			return fmt.Errorf("scan shipping info: %w", err)
		}
		if order, ok := byID[info.OrderID]; ok {
			shipping := info
			order.Shipping = &shipping
		}
	}
	if err := shippingRows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}

func GetOrderDetail(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	order, err := scanOrder(db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := attachOrderDetails(ctx, db, []*models.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

func listOrders(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]*models.Order, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := attachOrderDetails(ctx, db, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

func ListOrdersByBuyer(ctx context.Context, db *sql.DB, buyerID int64) ([]*models.Order, error) {
	return listOrders(ctx, db, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE buyer_id = $1
		ORDER BY created_at DESC`, buyerID)
}

func ListAllOrders(ctx context.Context, db *sql.DB) ([]*models.Order, error) {
	return listOrders(ctx, db, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC`)
}

func UpdateOrderStatus(ctx context.Context, db *sql.DB, id int64, status string) (*models.Order, error) {
	order, err := scanOrder(db.QueryRowContext(ctx, `
		UPDATE orders SET order_status = $1
		WHERE id = $2
		RETURNING `+orderColumns, status, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	return order, nil
}

func DeleteOrder(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return database.ErrOrderNotFound
	}

	return nil
}

// MarkPaymentPaid flips a pending payment to Paid given the provider's
// intent id.
func MarkPaymentPaid(ctx context.Context, db *sql.DB, intentID string) (*models.Payment, error) {
	payment := &models.Payment{}
	err := db.QueryRowContext(ctx, `
		UPDATE payments SET payment_status = $1
		WHERE intent_id = $2
		RETURNING id, order_id, intent_id, payment_status, created_at`,
		models.PaymentStatusPaid, intentID).Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.IntentID,
		&payment.PaymentStatus,
		&payment.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("mark payment paid: %w", err)
	}

	return payment, nil
}
