package entities

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewRandom()
	require.NoError(t, err)
	return id
}

func TestNextGeneration(t *testing.T) {
	assert.Equal(t, 1, NextGeneration(nil), "direct signup is generation 1")

	assert.Equal(t, 2, NextGeneration(&Referral{Generation: 1}))
	assert.Equal(t, 3, NextGeneration(&Referral{Generation: 2}))

	// depth caps at the maximum; deeper trees never exceed it
	assert.Equal(t, 3, NextGeneration(&Referral{Generation: 3}))
}

func TestReferralValidate(t *testing.T) {
	r := &Referral{
		CodeID:         newUUID(t),
		ReferredUserID: newUUID(t),
		Generation:     1,
		Status:         ReferralStatusUsed,
	}
	assert.NoError(t, r.Validate())

	r.Generation = 0
	assert.Error(t, r.Validate())

	r.Generation = MaxReferralGenerations + 1
	assert.Error(t, r.Validate())

	r.Generation = 2
	r.Status = ReferralStatus("bogus")
	assert.Error(t, r.Validate())
}

func TestDepositTransitions(t *testing.T) {
	assert.True(t, DepositStatusPending.CanTransitionTo(DepositStatusCompleted))
	assert.True(t, DepositStatusPending.CanTransitionTo(DepositStatusAwaitingPayment))
	assert.True(t, DepositStatusAwaitingPayment.CanTransitionTo(DepositStatusFailed))

	// terminal states have no exits
	assert.True(t, DepositStatusCompleted.IsTerminal())
	assert.True(t, DepositStatusFailed.IsTerminal())
	assert.False(t, DepositStatusCompleted.CanTransitionTo(DepositStatusPending))
	assert.False(t, DepositStatusFailed.CanTransitionTo(DepositStatusCompleted))
}

func TestLedgerEntryValidate(t *testing.T) {
	entry := &LedgerEntry{
		WalletID: newUUID(t),
		Amount:   decimalFromString(t, "10"),
		Kind:     EntryKindDeposit,
	}
	assert.NoError(t, entry.Validate())

	entry.Amount = decimalFromString(t, "0")
	assert.Error(t, entry.Validate(), "zero amount entries are meaningless")

	entry.Amount = decimalFromString(t, "-10")
	entry.Kind = EntryKindWithdraw
	assert.NoError(t, entry.Validate(), "debits carry negative amounts")

	entry.Kind = EntryKind("bogus")
	assert.Error(t, entry.Validate())
}
