package integration

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/shopmate/backend/internal/database"
	"github.com/shopmate/backend/internal/models"
	"github.com/shopmate/backend/internal/store"
	"github.com/shopspring/decimal"
)

func createTestUser(t *testing.T, db *sql.DB, name, email string) *models.User {
	t.Helper()

	user, err := store.CreateUser(context.Background(), db, name, email, "$2a$10$notarealhashnotarealhashnotarealhash")
	if err != nil {
		t.Fatalf("Create user %s: %v", email, err)
	}
	return user
}

func createTestProduct(t *testing.T, db *sql.DB, name string, price decimal.Decimal, stock int, createdBy int64) *models.Product {
	t.Helper()

	product, err := store.CreateProduct(context.Background(), db, store.ProductParams{
		Name:        name,
		Description: "integration test product",
		Price:       price,
		Category:    "Electronics",
		Stock:       stock,
		Images:      models.ImageList{{AssetID: "asset-" + name, URL: "https://img.test/" + name + ".jpg"}},
		CreatedBy:   createdBy,
	})
	if err != nil {
		t.Fatalf("Create product %s: %v", name, err)
	}
	return product
}

func testShipping() models.ShippingInfo {
	return models.ShippingInfo{
		FullName: "Test Buyer",
		State:    "Karnataka",
		City:     "Bengaluru",
		Country:  "India",
		Address:  "12 Test Street",
		Pincode:  "560001",
		Phone:    "9999999999",
	}
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Count %s: %v", table, err)
	}
	return n
}

func TestPlaceOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	payments := &fakePayments{}

	buyer := createTestUser(t, db, "Buyer One", "buyer1@example.com")
	admin := createTestUser(t, db, "Admin", "admin1@example.com")

	product1 := createTestProduct(t, db, "Keyboard", decimal.NewFromInt(10), 50, admin.ID)
	product2 := createTestProduct(t, db, "Mouse", decimal.NewFromInt(5), 30, admin.ID)

	// Subtotal 10*3 + 5*2 = 40: tax 7.2, shipping 2, total rounds to 49.
	placed, err := store.PlaceOrder(ctx, db, payments, store.CheckoutRequest{
		BuyerID: buyer.ID,
		Items: []store.CheckoutItem{
			{ProductID: product1.ID, Quantity: 3},
			{ProductID: product2.ID, Quantity: 2},
		},
		Shipping: testShipping(),
	})
	if err != nil {
		t.Fatalf("Place order: %v", err)
	}

	order := placed.Order
	if order.ID == 0 {
		t.Error("Order ID should not be 0")
	}
	if order.OrderStatus != models.OrderStatusProcessing {
		t.Errorf("Expected status %q, got %q", models.OrderStatusProcessing, order.OrderStatus)
	}
	if !order.TaxPrice.Equal(decimal.NewFromFloat(7.2)) {
		t.Errorf("Expected tax 7.2, got %s", order.TaxPrice)
	}
	if !order.ShippingPrice.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected shipping 2, got %s", order.ShippingPrice)
	}
	if !order.TotalPrice.Equal(decimal.NewFromInt(49)) {
		t.Errorf("Expected total 49, got %s", order.TotalPrice)
	}

	if len(order.Items) != 2 {
		t.Fatalf("Expected 2 order items, got %d", len(order.Items))
	}
	if order.Items[0].Title != "Keyboard" || order.Items[0].Image == "" {
		t.Errorf("Order item should snapshot title and image, got %+v", order.Items[0])
	}
	if !order.Items[0].Price.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Order item should snapshot price 10, got %s", order.Items[0].Price)
	}

	if placed.ClientSecret == "" || placed.IntentID == "" {
		t.Error("Placed order should carry the payment intent")
	}

	product1After, err := store.GetProduct(ctx, db, product1.ID)
	if err != nil {
		t.Fatalf("Get product 1: %v", err)
	}
	if product1After.Stock != 47 {
		t.Errorf("Expected product 1 stock 47, got %d", product1After.Stock)
	}

	product2After, err := store.GetProduct(ctx, db, product2.ID)
	if err != nil {
		t.Fatalf("Get product 2: %v", err)
	}
	if product2After.Stock != 28 {
		t.Errorf("Expected product 2 stock 28, got %d", product2After.Stock)
	}

	var paymentStatus string
	err = db.QueryRow("SELECT payment_status FROM payments WHERE order_id = $1", order.ID).Scan(&paymentStatus)
	if err != nil {
		t.Fatalf("Get payment row: %v", err)
	}
	if paymentStatus != models.PaymentStatusPending {
		t.Errorf("Expected payment status %q, got %q", models.PaymentStatusPending, paymentStatus)
	}
}

func TestPlaceOrderFreeShipping(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	payments := &fakePayments{}

	buyer := createTestUser(t, db, "Buyer Two", "buyer2@example.com")
	product := createTestProduct(t, db, "Monitor", decimal.NewFromInt(50), 10, buyer.ID)

	// Subtotal 50 reaches the free shipping floor: tax 9, total 59.
	placed, err := store.PlaceOrder(ctx, db, payments, store.CheckoutRequest{
		BuyerID:  buyer.ID,
		Items:    []store.CheckoutItem{{ProductID: product.ID, Quantity: 1}},
		Shipping: testShipping(),
	})
	if err != nil {
		t.Fatalf("Place order: %v", err)
	}

	if !placed.Order.ShippingPrice.IsZero() {
		t.Errorf("Expected free shipping, got %s", placed.Order.ShippingPrice)
	}
	if !placed.Order.TotalPrice.Equal(decimal.NewFromInt(59)) {
		t.Errorf("Expected total 59, got %s", placed.Order.TotalPrice)
	}
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	payments := &fakePayments{}

	buyer := createTestUser(t, db, "Buyer Three", "buyer3@example.com")
	product := createTestProduct(t, db, "Webcam", decimal.NewFromInt(20), 5, buyer.ID)

	_, err := store.PlaceOrder(ctx, db, payments, store.CheckoutRequest{
		BuyerID:  buyer.ID,
		Items:    []store.CheckoutItem{{ProductID: product.ID, Quantity: 10}},
		Shipping: testShipping(),
	})
	if !errors.Is(err, database.ErrInsufficientStock) {
		t.Errorf("Expected insufficient stock error, got: %v", err)
	}

	productAfter, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if productAfter.Stock != 5 {
		t.Errorf("Stock should remain unchanged at 5, got %d", productAfter.Stock)
	}

	for _, table := range []string{"orders", "order_items", "shipping_info", "payments"} {
		if n := countRows(t, db, table); n != 0 {
			t.Errorf("Expected no rows in %s after failed checkout, got %d", table, n)
		}
	}
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	buyer := createTestUser(t, db, "Buyer Four", "buyer4@example.com")

	_, err := store.PlaceOrder(context.Background(), db, &fakePayments{}, store.CheckoutRequest{
		BuyerID:  buyer.ID,
		Items:    []store.CheckoutItem{{ProductID: 99999, Quantity: 1}},
		Shipping: testShipping(),
	})
	if !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected product not found error, got: %v", err)
	}

	if n := countRows(t, db, "orders"); n != 0 {
		t.Errorf("Expected no orders after failed checkout, got %d", n)
	}
}

func TestPlaceOrderPaymentFailureRollsBack(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	payments := &fakePayments{fail: true}

	buyer := createTestUser(t, db, "Buyer Five", "buyer5@example.com")
	product := createTestProduct(t, db, "Headset", decimal.NewFromInt(30), 8, buyer.ID)

	_, err := store.PlaceOrder(ctx, db, payments, store.CheckoutRequest{
		BuyerID:  buyer.ID,
		Items:    []store.CheckoutItem{{ProductID: product.ID, Quantity: 2}},
		Shipping: testShipping(),
	})
	if !errors.Is(err, database.ErrPaymentFailed) {
		t.Errorf("Expected payment failed error, got: %v", err)
	}

	productAfter, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if productAfter.Stock != 8 {
		t.Errorf("Stock should be restored to 8 after rollback, got %d", productAfter.Stock)
	}

	for _, table := range []string{"orders", "order_items", "shipping_info", "payments"} {
		if n := countRows(t, db, table); n != 0 {
			t.Errorf("Expected no rows in %s after payment failure, got %d", table, n)
		}
	}
}

func TestConcurrentCheckoutNeverOversells(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	payments := &fakePayments{}

	buyer := createTestUser(t, db, "Buyer Six", "buyer6@example.com")
	product := createTestProduct(t, db, "Limited Drop", decimal.NewFromInt(25), 1, buyer.ID)

	concurrency := 5
	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := store.PlaceOrder(ctx, db, payments, store.CheckoutRequest{
				BuyerID:  buyer.ID,
				Items:    []store.CheckoutItem{{ProductID: product.ID, Quantity: 1}},
				Shipping: testShipping(),
			})
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, database.ErrInsufficientStock):
		default:
			t.Logf("Checkout failed with: %v", err)
		}
	}

	if successCount != 1 {
		t.Errorf("Expected exactly 1 successful checkout, got %d", successCount)
	}

	productAfter, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if productAfter.Stock != 0 {
		t.Errorf("Expected final stock 0, got %d", productAfter.Stock)
	}

	if n := countRows(t, db, "orders"); n != 1 {
		t.Errorf("Expected exactly 1 order row, got %d", n)
	}
}

func TestOrderLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	payments := &fakePayments{}

	buyer := createTestUser(t, db, "Buyer Seven", "buyer7@example.com")
	product := createTestProduct(t, db, "Speaker", decimal.NewFromInt(15), 20, buyer.ID)

	placed, err := store.PlaceOrder(ctx, db, payments, store.CheckoutRequest{
		BuyerID:  buyer.ID,
		Items:    []store.CheckoutItem{{ProductID: product.ID, Quantity: 2}},
		Shipping: testShipping(),
	})
	if err != nil {
		t.Fatalf("Place order: %v", err)
	}

	detail, err := store.GetOrderDetail(ctx, db, placed.Order.ID)
	if err != nil {
		t.Fatalf("Get order detail: %v", err)
	}
	if len(detail.Items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(detail.Items))
	}
	if detail.Shipping == nil || detail.Shipping.City != "Bengaluru" {
		t.Errorf("Expected shipping info attached, got %+v", detail.Shipping)
	}

	mine, err := store.ListOrdersByBuyer(ctx, db, buyer.ID)
	if err != nil {
		t.Fatalf("List orders by buyer: %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("Expected 1 order for buyer, got %d", len(mine))
	}

	payment, err := store.MarkPaymentPaid(ctx, db, placed.IntentID)
	if err != nil {
		t.Fatalf("Mark payment paid: %v", err)
	}
	if payment.PaymentStatus != models.PaymentStatusPaid {
		t.Errorf("Expected payment status %q, got %q", models.PaymentStatusPaid, payment.PaymentStatus)
	}

	updated, err := store.UpdateOrderStatus(ctx, db, placed.Order.ID, models.OrderStatusShipped)
	if err != nil {
		t.Fatalf("Update order status: %v", err)
	}
	if updated.OrderStatus != models.OrderStatusShipped {
		t.Errorf("Expected status %q, got %q", models.OrderStatusShipped, updated.OrderStatus)
	}

	if err := store.DeleteOrder(ctx, db, placed.Order.ID); err != nil {
		t.Fatalf("Delete order: %v", err)
	}
	if _, err := store.GetOrderDetail(ctx, db, placed.Order.ID); !errors.Is(err, database.ErrOrderNotFound) {
		t.Errorf("Expected order not found after delete, got: %v", err)
	}
}
