// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package vault models a single vault: a confirmed deposit output paying to
// the deposit descriptor together with the set of pre-signed transactions
// held for it.  The vault status encodes which of those transactions exist
// and which have been broadcast or confirmed, and the transition rules
// guarantee a status is never claimed before its justification is held.
package vault

import (
	"errors"
	"fmt"
)

// Status is the position of a vault in its lifecycle pipeline.  It depends
// on both the block chain and the set of held pre-signed transactions.
type Status uint8

// The numeric codes are persisted in the database and must never be
// renumbered.  The pipeline runs Unconfirmed through Spent, with the cancel
// and emergency branches terminating a vault's active life early.
const (
	// StatusUnconfirmed indicates the deposit transaction has less than
	// 6 confirmations.
	StatusUnconfirmed Status = iota

	// StatusFunded indicates the deposit transaction reached the
	// confirmation threshold.
	StatusFunded

	// StatusSecured indicates the emergency transaction is fully signed.
	StatusSecured

	// StatusActive indicates the unvault transaction is fully signed,
	// which transitively requires the cancel and unvault-emergency
	// transactions to be signed as well.
	StatusActive

	// StatusUnvaulting indicates the unvault transaction was broadcast.
	StatusUnvaulting

	// StatusUnvaulted indicates the unvault transaction confirmed.
	StatusUnvaulted

	// StatusCanceling indicates the cancel transaction was broadcast.
	StatusCanceling

	// StatusCanceled indicates the cancel transaction confirmed, sending
	// the funds back to a fresh deposit.
	StatusCanceled

	// StatusEmergencyVaulting indicates the emergency transaction was
	// broadcast.
	StatusEmergencyVaulting

	// StatusEmergencyVaulted indicates the emergency transaction
	// confirmed.
	StatusEmergencyVaulted

	// StatusUnvaultEmergencyVaulting indicates the unvault-emergency
	// transaction was broadcast.
	StatusUnvaultEmergencyVaulting

	// StatusUnvaultEmergencyVaulted indicates the unvault-emergency
	// transaction confirmed.
	StatusUnvaultEmergencyVaulted

	// StatusSpendable indicates the unvault relative timelock elapsed.
	StatusSpendable

	// StatusSpending indicates a spend transaction was broadcast.
	StatusSpending

	// StatusSpent indicates the spend transaction confirmed.
	StatusSpent
)

// ErrUnknownStatus describes a status string or code with no corresponding
// enumeration value.  Persisted statuses must never be coerced to a
// default: a wrong status either hides a missing pre-signed transaction or
// triggers a broadcast without justification.
var ErrUnknownStatus = errors.New("unknown vault status")

// statusNames is the single canonical table tying each status to its string
// form.  The slice index is the persisted numeric code, so the three
// representations cannot drift apart.
var statusNames = []string{
	StatusUnconfirmed:              "unconfirmed",
	StatusFunded:                   "funded",
	StatusSecured:                  "secured",
	StatusActive:                   "active",
	StatusUnvaulting:               "unvaulting",
	StatusUnvaulted:                "unvaulted",
	StatusCanceling:                "canceling",
	StatusCanceled:                 "canceled",
	StatusEmergencyVaulting:        "emergencyvaulting",
	StatusEmergencyVaulted:         "emergencyvaulted",
	StatusUnvaultEmergencyVaulting: "unvaultemergencyvaulting",
	StatusUnvaultEmergencyVaulted:  "unvaultemergencyvaulted",
	StatusSpendable:                "spendable",
	StatusSpending:                 "spending",
	StatusSpent:                    "spent",
}

// NumStatuses is the number of values in the Status enumeration.
const NumStatuses = 15

// statusByName is derived from statusNames at init time.
var statusByName = func() map[string]Status {
	byName := make(map[string]Status, len(statusNames))
	for code, name := range statusNames {
		byName[name] = Status(code)
	}
	return byName
}()

// String returns the canonical lowercase form of the status.
func (s Status) String() string {
	if int(s) >= len(statusNames) {
		return fmt.Sprintf("invalid status (%d)", uint8(s))
	}
	return statusNames[s]
}

// Code returns the stable numeric code used for persistence.
func (s Status) Code() uint8 {
	return uint8(s)
}

// Valid reports whether the status is a member of the enumeration.
func (s Status) Valid() bool {
	return int(s) < len(statusNames)
}

// StatusFromString parses the canonical string form of a status.
func StatusFromString(name string) (Status, error) {
	status, ok := statusByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
	}
	return status, nil
}

// StatusFromCode parses a persisted numeric status code.
func StatusFromCode(code uint8) (Status, error) {
	if int(code) >= len(statusNames) {
		return 0, fmt.Errorf("%w: code %d", ErrUnknownStatus, code)
	}
	return Status(code), nil
}
