package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/coop_market/internal/domain"
	"github.com/Skotchmaster/coop_market/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *GormRepo) FindOpenCart(ctx context.Context, ownerKey string) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Where("owner_key = ? AND paid = ?", ownerKey, false).
		Take(&cart).Error
	if err != nil {
		return nil, notFound(err, "open cart")
	}
	return &cart, nil
}

// FindOrCreateOpenCart returns the owner's unpaid cart, creating it when
// absent. Concurrent callers converge on one row through the partial unique
// index on (owner_key) WHERE paid = false.
func (r *GormRepo) FindOrCreateOpenCart(ctx context.Context, owner domain.Owner) (*models.Cart, error) {
	key := owner.Key()

	cart, err := r.FindOpenCart(ctx, key)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	fresh := models.Cart{
		OwnerKey:   key,
		TotalPrice: decimal.Zero,
		Status:     domain.CartOpen,
	}
	if owner.IsGuest() {
		guestID := owner.GuestID
		fresh.GuestID = &guestID
	} else {
		userID := owner.UserID
		fresh.UserID = &userID
	}

	if err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&fresh).Error; err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	return r.FindOpenCart(ctx, key)
}

// LockCart loads a cart owned by ownerKey with a row lock held until the
// surrounding transaction ends.
func (r *GormRepo) LockCart(ctx context.Context, cartID uint, ownerKey string) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND owner_key = ?", cartID, ownerKey).
		Take(&cart).Error
	if err != nil {
		return nil, notFound(err, "cart")
	}
	return &cart, nil
}

func (r *GormRepo) GetCart(ctx context.Context, cartID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).Take(&cart, cartID).Error; err != nil {
		return nil, notFound(err, "cart")
	}
	return &cart, nil
}

// CartItems returns the line items in insertion order with product and
// category preloaded for pricing.
func (r *GormRepo) CartItems(ctx context.Context, cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.DB.WithContext(ctx).
		Preload("Product.Category").
		Where("cart_id = ?", cartID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) FindItem(ctx context.Context, cartID, productID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Take(&item).Error
	if err != nil {
		return nil, notFound(err, "cart item")
	}
	return &item, nil
}

// AddItemQuantity merges quantity into an existing line or inserts a new one.
func (r *GormRepo) AddItemQuantity(ctx context.Context, cartID, productID uint, quantity int) error {
	res := r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Update("quantity", gorm.Expr("quantity + ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&models.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
	}).Error
}

func (r *GormRepo) SetItemQuantity(ctx context.Context, cartID, productID uint, quantity int) error {
	res := r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %d is not in cart: %w", productID, domain.ErrNotFound)
	}
	return nil
}

func (r *GormRepo) RemoveItem(ctx context.Context, cartID, productID uint) error {
	res := r.DB.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %d is not in cart: %w", productID, domain.ErrNotFound)
	}
	return nil
}

// KeepOnlyItems detaches every line whose product is not in productIDs.
func (r *GormRepo) KeepOnlyItems(ctx context.Context, cartID uint, productIDs []uint) error {
	q := r.DB.WithContext(ctx).Where("cart_id = ?", cartID)
	if len(productIDs) > 0 {
		q = q.Where("product_id NOT IN ?", productIDs)
	}
	return q.Delete(&models.CartItem{}).Error
}

// UpdateCartTotal stores the recomputed total and returns the new
// updated_at so callers can hand out a fresh view without a re-read.
func (r *GormRepo) UpdateCartTotal(ctx context.Context, cartID uint, total decimal.Decimal) (time.Time, error) {
	now := time.Now()
	err := r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{"total_price": total, "updated_at": now}).Error
	return now, err
}

func (r *GormRepo) SetCartStatus(ctx context.Context, cartID uint, from, to string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ? AND status = ? AND paid = ?", cartID, from, false).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkCartPaid flips the paid latch. It reports false when the cart was
// already paid, so callers can apply the transition exactly once.
func (r *GormRepo) MarkCartPaid(ctx context.Context, cartID uint, fulfillment string) (bool, error) {
	updates := map[string]any{
		"paid":   true,
		"status": domain.CartPaid,
	}
	if fulfillment != "" {
		updates["fulfillment_status"] = fulfillment
	}
	res := r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ? AND paid = ?", cartID, false).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) SetFulfillmentStatus(ctx context.Context, cartID uint, status string) error {
	return r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("fulfillment_status", status).Error
}

// PaidCarts lists an owner's completed carts, newest first.
func (r *GormRepo) PaidCarts(ctx context.Context, ownerKey string) ([]models.Cart, error) {
	var carts []models.Cart
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Product.Category").
		Where("owner_key = ? AND paid = ?", ownerKey, true).
		Order("updated_at DESC, id DESC").
		Find(&carts).Error
	if err != nil {
		return nil, err
	}
	return carts, nil
}
