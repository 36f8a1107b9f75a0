package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopmate/backend/internal/models"
	"github.com/shopmate/backend/internal/services"
	"github.com/shopmate/backend/internal/store"
)

type OrderHandler struct {
	DB       *sql.DB
	Payments services.PaymentService
}

type cartLine struct {
	Product struct {
		ID int64 `json:"id"`
	} `json:"product"`
	Quantity int `json:"quantity"`
}

type placeOrderRequest struct {
	FullName     string          `json:"full_name"`
	State        string          `json:"state"`
	City         string          `json:"city"`
	Country      string          `json:"country"`
	Address      string          `json:"address"`
	Pincode      string          `json:"pincode"`
	Phone        string          `json:"phone"`
	OrderedItems json.RawMessage `json:"orderedItems"`
}

// parseCart accepts the cart either as a structured list or as a
// JSON-encoded string of one.
func parseCart(raw json.RawMessage) ([]cartLine, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var lines []cartLine
	if err := json.Unmarshal(raw, &lines); err == nil {
		return lines, nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(encoded), &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (h *OrderHandler) Place(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.FullName == "" || req.State == "" || req.City == "" || req.Country == "" ||
		req.Address == "" || req.Pincode == "" || req.Phone == "" {
		respondError(c, http.StatusBadRequest, "please provide all the required fields")
		return
	}

	lines, err := parseCart(req.OrderedItems)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid cart payload")
		return
	}
	if len(lines) == 0 {
		respondError(c, http.StatusBadRequest, "no items in cart")
		return
	}

	items := make([]store.CheckoutItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, store.CheckoutItem{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
		})
	}

	placed, err := store.PlaceOrder(c.Request.Context(), h.DB, h.Payments, store.CheckoutRequest{
		BuyerID: currentUser(c).ID,
		Items:   items,
		Shipping: models.ShippingInfo{
			FullName: req.FullName,
			State:    req.State,
			City:     req.City,
			Country:  req.Country,
			Address:  req.Address,
			Pincode:  req.Pincode,
			Phone:    req.Phone,
		},
	})
	if err != nil {
		handleError(c, err)
		return
	}

	respond(c, http.StatusOK, "order placed successfully, please proceed to payment", gin.H{
		"paymentIntent": placed.ClientSecret,
		"totalPrice":    placed.Order.TotalPrice,
		"order":         placed.Order,
	})
}

func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := paramID(c, "orderID")
	if !ok {
		return
	}

	order, err := store.GetOrderDetail(c.Request.Context(), h.DB, orderID)
	if err != nil {
		handleError(c, err)
		return
	}

	user := currentUser(c)
	if order.BuyerID != user.ID && user.Role != models.RoleAdmin {
		respondError(c, http.StatusForbidden, "you are not allowed to access this order")
		return
	}

	respond(c, http.StatusOK, "order fetched", gin.H{"order": order})
}

func (h *OrderHandler) MyOrders(c *gin.Context) {
	orders, err := store.ListOrdersByBuyer(c.Request.Context(), h.DB, currentUser(c).ID)
	if err != nil {
		handleError(c, err)
		return
	}

	respond(c, http.StatusOK, "all your orders fetched", gin.H{"myOrders": orders})
}

func (h *OrderHandler) AllOrders(c *gin.Context) {
	orders, err := store.ListAllOrders(c.Request.Context(), h.DB)
	if err != nil {
		handleError(c, err)
		return
	}
	if len(orders) == 0 {
		respondError(c, http.StatusNotFound, "orders not found")
		return
	}

	respond(c, http.StatusOK, "all orders fetched", gin.H{"allOrders": orders})
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, ok := paramID(c, "orderID")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		respondError(c, http.StatusBadRequest, "please provide a valid status for order")
		return
	}

	switch req.Status {
	case models.OrderStatusProcessing, models.OrderStatusShipped,
		models.OrderStatusDelivered, models.OrderStatusCancelled:
	default:
		respondError(c, http.StatusBadRequest, "unknown order status")
		return
	}

	order, err := store.UpdateOrderStatus(c.Request.Context(), h.DB, orderID, req.Status)
	if err != nil {
		handleError(c, err)
		return
	}

	respond(c, http.StatusOK, "order updated", gin.H{"updatedOrder": order})
}

func (h *OrderHandler) Delete(c *gin.Context) {
	orderID, ok := paramID(c, "orderID")
	if !ok {
		return
	}

	if err := store.DeleteOrder(c.Request.Context(), h.DB, orderID); err != nil {
		handleError(c, err)
		return
	}

	respond(c, http.StatusOK, "order deleted", nil)
}

// ConfirmPayment marks a pending payment as paid given the provider's
// intent id. Stand-in for the provider webhook.
func (h *OrderHandler) ConfirmPayment(c *gin.Context) {
	var req struct {
		IntentID string `json:"intent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.IntentID == "" {
		respondError(c, http.StatusBadRequest, "please provide the payment intent id")
		return
	}

	payment, err := store.MarkPaymentPaid(c.Request.Context(), h.DB, req.IntentID)
	if err != nil {
		handleError(c, err)
		return
	}

	respond(c, http.StatusOK, "payment confirmed", gin.H{"payment": payment})
}
