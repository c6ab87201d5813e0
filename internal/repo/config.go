package repo

import (
	"context"

	"github.com/Skotchmaster/coop_market/internal/models"
)

// ConfigValue looks up an operator setting. A missing key is reported as
// ok=false rather than an error.
func (r *GormRepo) ConfigValue(ctx context.Context, key string) (string, bool, error) {
	var rows []models.Config
	if err := r.DB.WithContext(ctx).Where(&models.Config{Key: key}).Limit(1).Find(&rows).Error; err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].Value, true, nil
}
