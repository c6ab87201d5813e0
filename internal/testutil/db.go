// Package testutil provides in-memory databases and fixtures for tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Skotchmaster/coop_market/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory sqlite database with the full schema.
// A single connection keeps the memory database alive and serialises
// transactions the way row locks would on postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func CreateCategory(t *testing.T, db *gorm.DB, name, markup string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Markup: Dec(markup)}
	require.NoError(t, db.Create(c).Error)
	return c
}

func CreateProduct(t *testing.T, db *gorm.DB, name, price string, stock int, category *models.Category) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: Dec(price), Stock: stock}
	if category != nil {
		p.CategoryID = &category.ID
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func CreateUser(t *testing.T, db *gorm.DB, fullname, userType string) *models.User {
	t.Helper()
	u := &models.User{
		Fullname:         fullname,
		Email:            strings.ReplaceAll(strings.ToLower(fullname), " ", ".") + "@example.com",
		Phone:            "081234567890",
		Type:             userType,
		MembershipStatus: "bukan anggota",
		Balance:          decimal.Zero,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func Stock(t *testing.T, db *gorm.DB, productID uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.Take(&p, productID).Error)
	return p.Stock
}
