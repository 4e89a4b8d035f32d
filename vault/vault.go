// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// ErrInvalidTransition describes an Advance call along an edge that does
// not exist in the lifecycle graph.  The pipeline is monotonic: the only
// way "back" is through the cancel or emergency branches, and those
// terminate the vault.
var ErrInvalidTransition = errors.New("invalid vault status transition")

// Vault is a confirmed utxo paying to the deposit descriptor for which we
// hold a set of pre-signed transactions.  Depending on the status we may
// not yet possess part, or the entirety, of them; depending on our role we
// may never hold the emergency transactions at all.
type Vault struct {
	// DepositOutPoint is the deposit utxo this vault tracks.
	DepositOutPoint wire.OutPoint

	// DepositValue and DepositScript describe the deposit output itself.
	DepositValue  btcutil.Amount
	DepositScript []byte

	// Status is the vault's position in the lifecycle pipeline.
	Status Status

	// Stakeholder indicates the vault is tracked by a stakeholder
	// daemon.  Only stakeholders possess the key material behind the
	// emergency destination, so manager-only daemons never hold
	// EmergencyTx or UnvaultEmergencyTx.
	Stakeholder bool

	// The pre-signed transactions, populated as signatures are
	// exchanged.  All nilable.
	DepositTx          *wire.MsgTx
	EmergencyTx        *wire.MsgTx
	UnvaultTx          *wire.MsgTx
	CancelTx           *wire.MsgTx
	UnvaultEmergencyTx *wire.MsgTx
}

// statusTransitions is the lifecycle adjacency table.  Terminal statuses
// (spent, canceled, the two vaulted emergency states) have no entry.
var statusTransitions = map[Status][]Status{
	StatusUnconfirmed: {StatusFunded},
	StatusFunded: {
		StatusSecured, StatusEmergencyVaulting,
	},
	StatusSecured: {
		StatusActive, StatusEmergencyVaulting,
	},
	StatusActive: {
		StatusUnvaulting, StatusCanceling, StatusEmergencyVaulting,
	},
	StatusUnvaulting: {
		StatusUnvaulted, StatusCanceling,
		StatusUnvaultEmergencyVaulting,
	},
	StatusUnvaulted: {
		StatusSpendable, StatusUnvaultEmergencyVaulting,
	},
	StatusSpendable: {
		StatusSpending, StatusUnvaultEmergencyVaulting,
	},
	StatusSpending: {
		StatusSpent, StatusUnvaultEmergencyVaulting,
	},
	StatusCanceling:                {StatusCanceled},
	StatusEmergencyVaulting:        {StatusEmergencyVaulted},
	StatusUnvaultEmergencyVaulting: {StatusUnvaultEmergencyVaulted},
}

// ValidTransition reports whether the lifecycle graph contains an edge from
// the current status to next.
func ValidTransition(current, next Status) bool {
	for _, candidate := range statusTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Advance moves the vault to the next status.  Re-applying the current
// status is a no-op so the chain watcher can safely replay observations.
// A transition along a non-existent edge returns ErrInvalidTransition.
//
// Advancing to a status whose justifying pre-signed transaction is not held
// panics: the callers only ever request a transition after storing the
// transaction, so a missing one is an internal contract violation, not a
// recoverable condition.
func (v *Vault) Advance(next Status) error {
	if next == v.Status {
		return nil
	}
	if !ValidTransition(v.Status, next) {
		return fmt.Errorf("%w: %v -> %v", ErrInvalidTransition,
			v.Status, next)
	}

	if missing := v.missingForStatus(next); missing != "" {
		panic(fmt.Sprintf("vault %v advanced to %v without its %s "+
			"transaction", v.DepositOutPoint, next, missing))
	}

	v.Status = next
	return nil
}

// missingForStatus returns the name of the pre-signed transaction required
// to justify the given status but not held, or "" if the requirement is
// met.  Emergency transactions are only ever held by stakeholders; a
// manager daemon legitimately observes emergency broadcasts made by others.
func (v *Vault) missingForStatus(status Status) string {
	switch status {
	case StatusSecured:
		if v.Stakeholder && v.EmergencyTx == nil {
			return "emergency"
		}

	case StatusActive:
		if v.UnvaultTx == nil {
			return "unvault"
		}
		if v.CancelTx == nil {
			return "cancel"
		}
		if v.Stakeholder && v.UnvaultEmergencyTx == nil {
			return "unvault-emergency"
		}

	case StatusUnvaulting:
		if v.UnvaultTx == nil {
			return "unvault"
		}

	case StatusCanceling:
		if v.CancelTx == nil {
			return "cancel"
		}

	case StatusEmergencyVaulting:
		if v.Stakeholder && v.EmergencyTx == nil {
			return "emergency"
		}

	case StatusUnvaultEmergencyVaulting:
		if v.Stakeholder && v.UnvaultEmergencyTx == nil {
			return "unvault-emergency"
		}
	}
	return ""
}

// CheckStatusTransactions validates that the transactions implied by the
// vault's current status are present and structurally consistent with the
// deposit output: the unvault and emergency transactions must spend the
// deposit outpoint, the cancel and unvault-emergency transactions the first
// output of the unvault transaction.
func (v *Vault) CheckStatusTransactions() error {
	if missing := v.missingForStatus(v.Status); missing != "" {
		return fmt.Errorf("vault %v has status %v but no %s "+
			"transaction", v.DepositOutPoint, v.Status, missing)
	}

	if v.UnvaultTx != nil {
		if err := checkSpends(
			v.UnvaultTx, v.DepositOutPoint, "unvault",
		); err != nil {
			return err
		}
	}
	if v.EmergencyTx != nil {
		if err := checkSpends(
			v.EmergencyTx, v.DepositOutPoint, "emergency",
		); err != nil {
			return err
		}
	}

	// The cancel and unvault-emergency transactions spend the unvault
	// output, so they can only be checked when the unvault is held.
	if v.UnvaultTx != nil {
		unvaultPoint := wire.OutPoint{
			Hash:  v.UnvaultTx.TxHash(),
			Index: 0,
		}
		if v.CancelTx != nil {
			if err := checkSpends(
				v.CancelTx, unvaultPoint, "cancel",
			); err != nil {
				return err
			}
		}
		if v.UnvaultEmergencyTx != nil {
			if err := checkSpends(
				v.UnvaultEmergencyTx, unvaultPoint,
				"unvault-emergency",
			); err != nil {
				return err
			}
		}
	}

	return nil
}

// checkSpends validates the minimal structure of a pre-signed transaction:
// at least one input and output, with the first input spending prevOut.
func checkSpends(tx *wire.MsgTx, prevOut wire.OutPoint, name string) error {
	if len(tx.TxIn) == 0 || len(tx.TxOut) == 0 {
		return fmt.Errorf("%s transaction has no inputs or no outputs",
			name)
	}
	if tx.TxIn[0].PreviousOutPoint != prevOut {
		return fmt.Errorf("%s transaction spends %v, expected %v",
			name, tx.TxIn[0].PreviousOutPoint, prevOut)
	}
	return nil
}
