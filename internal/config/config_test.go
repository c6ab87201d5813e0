package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092 , ,b:9092"))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/coop")
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("GATEWAY_TIMEOUT", "")
	t.Setenv("MIDTRANS_PRODUCTION", "")
	t.Setenv("DB_DRIVER", "")

	cfg := Load()

	assert.Equal(t, "postgres://localhost/coop", cfg.DatabaseURL)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 15*time.Second, cfg.GatewayTimeout)
	assert.False(t, cfg.MidtransProduction)
	assert.Equal(t, "pgx", cfg.DBDriver)
	assert.Equal(t, "payments", cfg.ESPaymentIndex)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("MIDTRANS_PRODUCTION", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("MEMBERSHIP_FEE_FALLBACK", "20000")

	cfg := Load()

	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.True(t, cfg.MidtransProduction)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, int64(20000), cfg.MembershipFeeFallback)
}
