// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func testOutPoint(tag byte) wire.OutPoint {
	var hash chainhash.Hash
	for i := range hash {
		hash[i] = tag
	}
	return wire.OutPoint{Hash: hash, Index: 0}
}

// spendingTx returns a minimal transaction spending prev.
func spendingTx(prev wire.OutPoint) *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&prev, nil, nil))
	tx.AddTxOut(wire.NewTxOut(100000, []byte{0x00, 0x20}))
	return tx
}

// testVault returns a stakeholder vault holding its full set of pre-signed
// transactions, in the given status.
func testVault(status Status) *Vault {
	deposit := testOutPoint(1)
	v := &Vault{
		DepositOutPoint: deposit,
		DepositValue:    500000,
		DepositScript:   []byte{0x00, 0x20, 0xaa},
		Status:          status,
		Stakeholder:     true,
		EmergencyTx:     spendingTx(deposit),
		UnvaultTx:       spendingTx(deposit),
		CancelTx:        nil,
		DepositTx:       nil,
	}
	unvaultPoint := wire.OutPoint{Hash: v.UnvaultTx.TxHash(), Index: 0}
	v.CancelTx = spendingTx(unvaultPoint)
	v.UnvaultEmergencyTx = spendingTx(unvaultPoint)
	return v
}

// TestVaultPipeline walks the happy path end to end and asserts every edge
// is accepted.
func TestVaultPipeline(t *testing.T) {
	t.Parallel()

	v := testVault(StatusUnconfirmed)
	pipeline := []Status{
		StatusFunded, StatusSecured, StatusActive, StatusUnvaulting,
		StatusUnvaulted, StatusSpendable, StatusSpending, StatusSpent,
	}
	for _, next := range pipeline {
		require.NoError(t, v.Advance(next))
		require.Equal(t, next, v.Status)
		require.NoError(t, v.CheckStatusTransactions())
	}
}

// TestVaultAbortBranches exercises the cancel and emergency branches.
func TestVaultAbortBranches(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		from Status
		via  Status
		to   Status
	}{
		{"cancel from active", StatusActive, StatusCanceling,
			StatusCanceled},
		{"cancel from unvaulting", StatusUnvaulting, StatusCanceling,
			StatusCanceled},
		{"emergency from funded", StatusFunded,
			StatusEmergencyVaulting, StatusEmergencyVaulted},
		{"emergency from secured", StatusSecured,
			StatusEmergencyVaulting, StatusEmergencyVaulted},
		{"emergency from active", StatusActive,
			StatusEmergencyVaulting, StatusEmergencyVaulted},
		{"unvault emergency from unvaulted", StatusUnvaulted,
			StatusUnvaultEmergencyVaulting,
			StatusUnvaultEmergencyVaulted},
		{"unvault emergency from spendable", StatusSpendable,
			StatusUnvaultEmergencyVaulting,
			StatusUnvaultEmergencyVaulted},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			v := testVault(tc.from)
			require.NoError(t, v.Advance(tc.via))
			require.NoError(t, v.Advance(tc.to))

			// Abort branches are terminal.
			err := v.Advance(StatusFunded)
			require.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

// TestVaultMonotonicity asserts there is no path back to an earlier
// pipeline state and that re-applying the current status is a no-op.
func TestVaultMonotonicity(t *testing.T) {
	t.Parallel()

	v := testVault(StatusActive)

	// Idempotent re-application.
	require.NoError(t, v.Advance(StatusActive))
	require.Equal(t, StatusActive, v.Status)

	for _, earlier := range []Status{
		StatusUnconfirmed, StatusFunded, StatusSecured,
	} {
		err := v.Advance(earlier)
		require.ErrorIs(t, err, ErrInvalidTransition)
		require.Equal(t, StatusActive, v.Status)
	}

	// Skipping ahead past the pipeline is rejected too.
	err := v.Advance(StatusSpendable)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

// TestAdvanceWithoutJustification asserts that advancing past a pre-signed
// transaction the vault does not hold is a contract violation, not an
// error.
func TestAdvanceWithoutJustification(t *testing.T) {
	t.Parallel()

	v := testVault(StatusSecured)
	v.UnvaultTx = nil
	require.Panics(t, func() {
		_ = v.Advance(StatusActive)
	})

	v = testVault(StatusFunded)
	v.EmergencyTx = nil
	require.Panics(t, func() {
		_ = v.Advance(StatusSecured)
	})

	// A manager daemon never holds the emergency transaction, so for it
	// the same transition is fine.
	v = testVault(StatusFunded)
	v.Stakeholder = false
	v.EmergencyTx = nil
	v.UnvaultEmergencyTx = nil
	require.NoError(t, v.Advance(StatusSecured))
}

// TestActiveRequiresTransactions asserts an active vault must hold
// non-empty unvault, cancel and unvault-emergency transactions, and that
// dropping the unvault transaction makes the status indefensible.
func TestActiveRequiresTransactions(t *testing.T) {
	t.Parallel()

	v := testVault(StatusActive)
	require.NoError(t, v.CheckStatusTransactions())
	require.NotNil(t, v.UnvaultTx)
	require.NotNil(t, v.CancelTx)
	require.NotNil(t, v.UnvaultEmergencyTx)

	v.UnvaultTx = nil
	require.Error(t, v.CheckStatusTransactions())
}

// TestCheckStatusTransactions covers the structural checks against the
// deposit output.
func TestCheckStatusTransactions(t *testing.T) {
	t.Parallel()

	// An unvault transaction spending some other outpoint is invalid.
	v := testVault(StatusActive)
	v.UnvaultTx = spendingTx(testOutPoint(9))
	require.Error(t, v.CheckStatusTransactions())

	// A cancel transaction not spending the unvault output is invalid.
	v = testVault(StatusActive)
	v.CancelTx = spendingTx(testOutPoint(9))
	require.Error(t, v.CheckStatusTransactions())

	// An inputless transaction is invalid.
	v = testVault(StatusActive)
	v.EmergencyTx = wire.NewMsgTx(2)
	require.Error(t, v.CheckStatusTransactions())
}
