package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/coop_market/internal/models"
)

func (r *GormRepo) CreatePayment(ctx context.Context, p *models.Payment) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *GormRepo) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var p models.Payment
	if err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).Take(&p).Error; err != nil {
		return nil, notFound(err, "payment "+orderID)
	}
	return &p, nil
}

// CompareAndSetStatus moves a payment from one status to another. It returns
// false when the row no longer holds from, meaning a concurrent caller won.
func (r *GormRepo) CompareAndSetStatus(ctx context.Context, orderID, from, to string, paidAt *time.Time) (bool, error) {
	updates := map[string]any{"status": to}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	res := r.DB.WithContext(ctx).Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
