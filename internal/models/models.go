package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleCustomer = "Customer"
	RoleAdmin    = "Admin"
)

const (
	OrderStatusProcessing = "Processing"
	OrderStatusShipped    = "Shipped"
	OrderStatusDelivered  = "Delivered"
	OrderStatusCancelled  = "Cancelled"
)

const (
	PaymentStatusPending = "Pending"
	PaymentStatusPaid    = "Paid"
)

// Image is a hosted asset reference: the public URL plus the id needed to
// delete it from the image service later.
type Image struct {
	URL     string `json:"url"`
	AssetID string `json:"asset_id"`
}

func (i Image) Value() (driver.Value, error) {
	if i == (Image{}) {
		return nil, nil
	}
	return json.Marshal(i)
}

func (i *Image) Scan(src interface{}) error {
	if src == nil {
		*i = Image{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("scan image: unexpected type %T", src)
	}
	return json.Unmarshal(b, i)
}

// ImageList is stored as a JSONB array and always marshals to [], never null.
type ImageList []Image

func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		l = ImageList{}
	}
	return json.Marshal(l)
}

func (l *ImageList) Scan(src interface{}) error {
	if src == nil {
		*l = ImageList{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("scan image list: unexpected type %T", src)
	}
	return json.Unmarshal(b, l)
}

func (l ImageList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Image(l))
}

type User struct {
	ID                  int64          `json:"id"`
	Name                string         `json:"name"`
	Email               string         `json:"email"`
	Password            string         `json:"-"`
	Role                string         `json:"role"`
	Avatar              Image          `json:"avatar"`
	ResetPasswordToken  sql.NullString `json:"-"`
	ResetPasswordExpire sql.NullTime   `json:"-"`
	CreatedAt           time.Time      `json:"created_at"`
}

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Ratings     decimal.Decimal `json:"ratings"`
	Images      ImageList       `json:"images"`
	Stock       int             `json:"stock"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	ReviewCount int64           `json:"review_count"`
}

type Review struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Reviewer is the public identity attached to a review.
type Reviewer struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Avatar Image  `json:"avatar"`
}

type ReviewWithUser struct {
	Review
	Reviewer Reviewer `json:"reviewer"`
}

type Order struct {
	ID            int64           `json:"id"`
	BuyerID       int64           `json:"buyer_id"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	TaxPrice      decimal.Decimal `json:"tax_price"`
	ShippingPrice decimal.Decimal `json:"shipping_price"`
	OrderStatus   string          `json:"order_status"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []OrderItem     `json:"order_items"`
	Shipping      *ShippingInfo   `json:"shipping_info,omitempty"`
}

type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Title     string          `json:"title"`
}

type ShippingInfo struct {
	OrderID  int64  `json:"order_id"`
	FullName string `json:"full_name"`
	State    string `json:"state"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Address  string `json:"address"`
	Pincode  string `json:"pincode"`
	Phone    string `json:"phone"`
}

type Payment struct {
	ID            int64     `json:"id"`
	OrderID       int64     `json:"order_id"`
	IntentID      string    `json:"intent_id"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
}
