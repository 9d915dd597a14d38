package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSimpleInterest(t *testing.T) {
	inv := &Investment{
		Amount:    decimal.RequireFromString("500"),
		DailyRate: decimal.RequireFromString("0.025"),
	}

	tests := []struct {
		name     string
		days     int
		expected string
	}{
		{"zero days", 0, "0"},
		{"negative days", -1, "0"},
		{"one day", 1, "12.5"},
		{"two days", 2, "25"},
		{"thirty days", 30, "375"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := inv.SimpleInterest(tt.days)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)),
				"expected %s, got %s", tt.expected, got.String())
		})
	}
}

func TestSimpleInterestTruncatesTowardZero(t *testing.T) {
	// 33.33 * 0.025 = 0.83325 per day; fractional cents are never credited
	inv := &Investment{
		Amount:    decimal.RequireFromString("33.33"),
		DailyRate: decimal.RequireFromString("0.025"),
	}

	got := inv.SimpleInterest(1)
	assert.True(t, got.Equal(decimal.RequireFromString("0.83")), "got %s", got.String())

	// truncation happens on the total, not per day
	got = inv.SimpleInterest(3)
	assert.True(t, got.Equal(decimal.RequireFromString("2.49")), "got %s", got.String())
}

func TestWholeDaysSinceAccrual(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	inv := &Investment{CreatedAt: created}

	assert.Equal(t, 0, inv.WholeDaysSinceAccrual(created.Add(23*time.Hour)))
	assert.Equal(t, 1, inv.WholeDaysSinceAccrual(created.Add(24*time.Hour)))
	assert.Equal(t, 1, inv.WholeDaysSinceAccrual(created.Add(47*time.Hour)))
	assert.Equal(t, 2, inv.WholeDaysSinceAccrual(created.Add(48*time.Hour)))

	// clock skew never yields negative days
	assert.Equal(t, 0, inv.WholeDaysSinceAccrual(created.Add(-time.Hour)))
}

func TestAccrualBasePrefersLastAccrual(t *testing.T) {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	accrued := created.Add(72 * time.Hour)
	inv := &Investment{CreatedAt: created}

	assert.Equal(t, created, inv.AccrualBase())

	inv.LastAccrualAt = &accrued
	assert.Equal(t, accrued, inv.AccrualBase())
	assert.Equal(t, 0, inv.WholeDaysSinceAccrual(accrued.Add(12*time.Hour)))
}

func TestInvestmentValidate(t *testing.T) {
	inv := &Investment{
		Amount:    decimal.RequireFromString("100"),
		DailyRate: decimal.RequireFromString("0.025"),
	}
	assert.Error(t, inv.Validate(), "missing user and wallet must fail")

	inv.UserID = newUUID(t)
	inv.WalletID = newUUID(t)
	assert.NoError(t, inv.Validate())

	inv.Amount = decimal.Zero
	assert.Error(t, inv.Validate(), "zero principal must fail")
}
