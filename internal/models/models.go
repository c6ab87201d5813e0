package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Category struct {
	ID     uint            `gorm:"primaryKey;autoIncrement"             json:"id"`
	Name   string          `gorm:"not null"                             json:"name"`
	Markup decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"markup"`
}

type Product struct {
	ID         uint            `gorm:"primaryKey;autoIncrement"        json:"id"`
	Name       string          `gorm:"not null"                        json:"name"`
	Price      decimal.Decimal `gorm:"type:decimal(15,2);not null"     json:"price"`
	Stock      int             `gorm:"not null;default:0;check:stock>=0" json:"stock"`
	CategoryID *uint           `gorm:"index"                           json:"category_id"`
	Category   *Category       `gorm:"foreignKey:CategoryID"           json:"category,omitempty"`
}

type User struct {
	ID               uint            `gorm:"primaryKey;autoIncrement"                         json:"id"`
	Fullname         string          `gorm:"not null"                                         json:"fullname"`
	Email            string          `gorm:"uniqueIndex;not null"                             json:"email"`
	Phone            string          `                                                        json:"phone"`
	Type             string          `gorm:"not null;default:pengguna"                        json:"type"`
	MembershipStatus string          `gorm:"not null;default:'bukan anggota'"                 json:"membership_status"`
	Balance          decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0;check:balance>=0" json:"balance"`
}

// Config holds operator-editable key/value settings such as the membership fee.
type Config struct {
	ID    uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Key   string `gorm:"uniqueIndex;not null"     json:"key"`
	Value string `gorm:"not null"                 json:"value"`
}

// Cart belongs to exactly one owner. OwnerKey is "user:<id>" or "guest:<id>";
// at most one unpaid cart may exist per owner.
type Cart struct {
	ID                uint            `gorm:"primaryKey;autoIncrement"                                   json:"id"`
	OwnerKey          string          `gorm:"not null;size:96;uniqueIndex:idx_carts_open_owner,where:paid = false" json:"-"`
	UserID            *uint           `gorm:"index"                                                      json:"user_id,omitempty"`
	GuestID           *string         `gorm:"index;size:64"                                              json:"guest_id,omitempty"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"                      json:"total_price"`
	Status            string          `gorm:"not null;default:open"                                      json:"status"`
	Paid              bool            `gorm:"not null;default:false"                                     json:"paid"`
	FulfillmentStatus *string         `                                                                  json:"fulfillment_status,omitempty"`
	Items             []CartItem      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"              json:"items,omitempty"`
	CreatedAt         time.Time       `                                                                  json:"created_at"`
	UpdatedAt         time.Time       `                                                                  json:"updated_at"`
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                   json:"id"`
	CartID    uint      `gorm:"uniqueIndex:idx_cart_product;not null"      json:"cart_id"`
	ProductID uint      `gorm:"uniqueIndex:idx_cart_product;not null"      json:"product_id"`
	Quantity  int       `gorm:"not null;default:1;check:quantity>0"        json:"quantity"`
	Product   Product   `gorm:"foreignKey:ProductID"                       json:"-"`
	CreatedAt time.Time `                                                  json:"created_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

type Payment struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"            json:"id"`
	OrderID       string          `gorm:"uniqueIndex;not null;size:64"        json:"order_id"`
	TransactionID string          `gorm:"index;not null"                      json:"transaction_id"`
	Purpose       string          `gorm:"not null;size:16"                    json:"purpose"`
	Method        string          `gorm:"not null;size:32"                    json:"method"`
	Status        string          `gorm:"not null;size:32;index"              json:"status"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null"         json:"amount"`
	UserID        *uint           `gorm:"index"                               json:"user_id,omitempty"`
	GuestID       *string         `gorm:"size:64"                             json:"guest_id,omitempty"`
	CartID        *uint           `gorm:"index"                               json:"cart_id,omitempty"`
	Extra         Extra           `gorm:"type:text"                           json:"extra,omitempty"`
	PaidAt        *time.Time      `                                           json:"paid_at,omitempty"`
	CreatedAt     time.Time       `                                           json:"created_at"`
	UpdatedAt     time.Time       `                                           json:"updated_at"`
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Category{},
		&Product{},
		&User{},
		&Config{},
		&Cart{},
		&CartItem{},
		&Payment{},
	)
}
