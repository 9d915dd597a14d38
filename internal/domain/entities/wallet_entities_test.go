package entities

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestBucketValidate(t *testing.T) {
	for _, b := range []Bucket{BucketAvailable, BucketPending, BucketGains, BucketLocked} {
		assert.NoError(t, b.Validate())
	}
	assert.Error(t, Bucket("savings").Validate())
}

func TestWalletBucketAccess(t *testing.T) {
	w := &Wallet{
		UserID:   newUUID(t),
		Currency: "USDT",
	}

	w.SetBucketValue(BucketAvailable, decimalFromString(t, "100.50"))
	w.SetBucketValue(BucketLocked, decimalFromString(t, "500"))
	w.SetBucketValue(BucketGains, decimalFromString(t, "25"))

	assert.True(t, w.BucketValue(BucketAvailable).Equal(decimalFromString(t, "100.50")))
	assert.True(t, w.BucketValue(BucketLocked).Equal(decimalFromString(t, "500")))
	assert.True(t, w.BucketValue(BucketPending).IsZero())

	assert.True(t, w.Portfolio().Equal(decimalFromString(t, "625.50")))
}

func TestWalletValidateRejectsNegativeBuckets(t *testing.T) {
	w := &Wallet{
		UserID:   newUUID(t),
		Currency: "USDT",
	}
	assert.NoError(t, w.Validate())

	w.Gains = decimalFromString(t, "-0.01")
	assert.Error(t, w.Validate())
}
