package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/coop_market/internal/domain"
	"github.com/Skotchmaster/coop_market/internal/events"
	"github.com/Skotchmaster/coop_market/internal/logging"
	"github.com/Skotchmaster/coop_market/internal/models"
	"github.com/Skotchmaster/coop_market/internal/pricing"
	"github.com/Skotchmaster/coop_market/internal/repo"
	"github.com/Skotchmaster/coop_market/internal/transport"
	"github.com/shopspring/decimal"
)

type CartService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
}

type cartItemEvent struct {
	CartID    uint   `json:"cart_id"`
	Owner     string `json:"owner"`
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total_price"`
}

// GetCart returns the owner's open cart, creating an empty one on first read.
func (s *CartService) GetCart(ctx context.Context, owner domain.Owner) (*transport.CartView, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	cart, err := s.Repo.FindOrCreateOpenCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	items, err := s.Repo.CartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	return cartView(cart, items), nil
}

func (s *CartService) History(ctx context.Context, owner domain.Owner) ([]transport.CartView, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	carts, err := s.Repo.PaidCarts(ctx, owner.Key())
	if err != nil {
		return nil, err
	}
	out := make([]transport.CartView, 0, len(carts))
	for i := range carts {
		out = append(out, *cartView(&carts[i], carts[i].Items))
	}
	return out, nil
}

func (s *CartService) AddItem(ctx context.Context, owner domain.Owner, productID uint, quantity int) (*transport.CartView, error) {
	if err := validateItemInput(owner, productID, quantity); err != nil {
		return nil, err
	}

	view, err := s.mutate(ctx, owner, func(tx *repo.GormRepo, cart *models.Cart) error {
		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		newQty := quantity
		existing, err := tx.FindItem(ctx, cart.ID, productID)
		switch {
		case err == nil:
			newQty += existing.Quantity
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		if newQty > product.Stock {
			return fmt.Errorf("requested %d of product %d, %d in stock: %w",
				newQty, productID, product.Stock, domain.ErrInsufficientStock)
		}
		return tx.AddItemQuantity(ctx, cart.ID, productID, quantity)
	})
	if err != nil {
		return nil, err
	}

	s.publishItem(ctx, "cart_item_added", owner, view, productID)
	return view, nil
}

func (s *CartService) UpdateItem(ctx context.Context, owner domain.Owner, productID uint, quantity int) (*transport.CartView, error) {
	if err := validateItemInput(owner, productID, quantity); err != nil {
		return nil, err
	}

	view, err := s.mutate(ctx, owner, func(tx *repo.GormRepo, cart *models.Cart) error {
		if _, err := tx.FindItem(ctx, cart.ID, productID); err != nil {
			return err
		}
		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if quantity > product.Stock {
			return fmt.Errorf("requested %d of product %d, %d in stock: %w",
				quantity, productID, product.Stock, domain.ErrInsufficientStock)
		}
		return tx.SetItemQuantity(ctx, cart.ID, productID, quantity)
	})
	if err != nil {
		return nil, err
	}

	s.publishItem(ctx, "cart_item_updated", owner, view, productID)
	return view, nil
}

func (s *CartService) RemoveItem(ctx context.Context, owner domain.Owner, productID uint) (*transport.CartView, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if productID == 0 {
		return nil, fmt.Errorf("product id is required: %w", domain.ErrInvalidRequest)
	}

	view, err := s.mutate(ctx, owner, func(tx *repo.GormRepo, cart *models.Cart) error {
		return tx.RemoveItem(ctx, cart.ID, productID)
	})
	if err != nil {
		return nil, err
	}

	s.publishItem(ctx, "cart_item_removed", owner, view, productID)
	return view, nil
}

// SetFulfillmentStatus advances a paid cart along the delivery states.
func (s *CartService) SetFulfillmentStatus(ctx context.Context, owner domain.Owner, cartID uint, status string) (*transport.CartView, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if !domain.IsFulfillmentStatus(status) {
		return nil, fmt.Errorf("unknown fulfillment status %q: %w", status, domain.ErrInvalidRequest)
	}

	var view *transport.CartView
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.LockCart(ctx, cartID, owner.Key())
		if err != nil {
			return err
		}
		if !cart.Paid {
			return fmt.Errorf("cart %d is not paid: %w", cart.ID, domain.ErrInvalidState)
		}
		current := ""
		if cart.FulfillmentStatus != nil {
			current = *cart.FulfillmentStatus
		}
		if !domain.CanAdvanceFulfillment(current, status) {
			return fmt.Errorf("cannot move fulfillment from %q to %q: %w", current, status, domain.ErrInvalidState)
		}
		if err := tx.SetFulfillmentStatus(ctx, cart.ID, status); err != nil {
			return err
		}
		cart.FulfillmentStatus = &status

		items, err := tx.CartItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		view = cartView(cart, items)
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicCart, owner.Key(), "cart_fulfillment_updated", map[string]any{
		"cart_id":            cartID,
		"fulfillment_status": status,
	})
	logging.FromContext(ctx).Info("fulfillment_updated", "cart_id", cartID, "status", status)
	return view, nil
}

// mutate applies change to the owner's open cart and recomputes the total
// from the item set as it stands after the write, all in one transaction.
func (s *CartService) mutate(ctx context.Context, owner domain.Owner, change func(tx *repo.GormRepo, cart *models.Cart) error) (*transport.CartView, error) {
	open, err := s.Repo.FindOrCreateOpenCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	var view *transport.CartView
	err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.LockCart(ctx, open.ID, owner.Key())
		if err != nil {
			return err
		}
		if cart.Paid || cart.Status != domain.CartOpen {
			return fmt.Errorf("cart %d is %s: %w", cart.ID, cart.Status, domain.ErrInvalidState)
		}
		if err := change(tx, cart); err != nil {
			return err
		}

		items, err := recomputeTotal(ctx, tx, cart)
		if err != nil {
			return err
		}
		view = cartView(cart, items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func recomputeTotal(ctx context.Context, tx *repo.GormRepo, cart *models.Cart) ([]models.CartItem, error) {
	items, err := tx.CartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	total := pricing.CartTotal(pricingLines(items))
	updatedAt, err := tx.UpdateCartTotal(ctx, cart.ID, total)
	if err != nil {
		return nil, err
	}
	cart.TotalPrice = total
	cart.UpdatedAt = updatedAt
	return items, nil
}

func pricingLines(items []models.CartItem) []pricing.Line {
	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		lines[i] = pricing.Line{
			Price:    it.Product.Price,
			Markup:   markupOf(&it.Product),
			Quantity: it.Quantity,
		}
	}
	return lines
}

func markupOf(p *models.Product) decimal.Decimal {
	if p.Category == nil {
		return decimal.Zero
	}
	return p.Category.Markup
}

func cartView(cart *models.Cart, items []models.CartItem) *transport.CartView {
	v := &transport.CartView{
		ID:         cart.ID,
		UserID:     cart.UserID,
		GuestID:    cart.GuestID,
		TotalPrice: cart.TotalPrice,
		Status:     cart.Status,
		Paid:       cart.Paid,
		Items:      make([]transport.CartItemView, 0, len(items)),
		UpdatedAt:  cart.UpdatedAt,
	}
	if cart.FulfillmentStatus != nil {
		v.FulfillmentStatus = *cart.FulfillmentStatus
	}
	for _, it := range items {
		line := pricing.Line{Price: it.Product.Price, Markup: markupOf(&it.Product), Quantity: it.Quantity}
		iv := transport.CartItemView{
			ProductID: it.ProductID,
			Name:      it.Product.Name,
			UnitPrice: pricing.EffectiveUnitPrice(line.Price, line.Markup),
			Quantity:  it.Quantity,
			Subtotal:  pricing.LineSubtotal(line),
		}
		if it.Product.Category != nil {
			iv.Category = it.Product.Category.Name
		}
		v.Items = append(v.Items, iv)
	}
	return v
}

func validateItemInput(owner domain.Owner, productID uint, quantity int) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	if productID == 0 {
		return fmt.Errorf("product id is required: %w", domain.ErrInvalidRequest)
	}
	if quantity <= 0 {
		return fmt.Errorf("quantity must be more than zero: %w", domain.ErrInvalidRequest)
	}
	return nil
}

func (s *CartService) publishItem(ctx context.Context, eventType string, owner domain.Owner, view *transport.CartView, productID uint) {
	qty := 0
	for _, it := range view.Items {
		if it.ProductID == productID {
			qty = it.Quantity
		}
	}
	publish(ctx, s.Events, events.TopicCart, owner.Key(), eventType, cartItemEvent{
		CartID:    view.ID,
		Owner:     owner.Key(),
		ProductID: productID,
		Quantity:  qty,
		Total:     view.TotalPrice.String(),
	})
}
