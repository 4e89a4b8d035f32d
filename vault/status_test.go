// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStatusRoundTrip asserts the three status representations (enum value,
// numeric code, canonical string) round-trip losslessly for every member of
// the enumeration.
func TestStatusRoundTrip(t *testing.T) {
	t.Parallel()

	require.Len(t, statusNames, NumStatuses)

	for code := uint8(0); code < NumStatuses; code++ {
		status, err := StatusFromCode(code)
		require.NoError(t, err)
		require.Equal(t, code, status.Code())
		require.True(t, status.Valid())

		parsed, err := StatusFromString(status.String())
		require.NoError(t, err)
		require.Equal(t, status, parsed)
	}
}

// TestStatusStability pins the persisted codes and strings: changing either
// breaks every existing database.
func TestStatusStability(t *testing.T) {
	t.Parallel()

	expected := map[Status]struct {
		code uint8
		name string
	}{
		StatusUnconfirmed:              {0, "unconfirmed"},
		StatusFunded:                   {1, "funded"},
		StatusSecured:                  {2, "secured"},
		StatusActive:                   {3, "active"},
		StatusUnvaulting:               {4, "unvaulting"},
		StatusUnvaulted:                {5, "unvaulted"},
		StatusCanceling:                {6, "canceling"},
		StatusCanceled:                 {7, "canceled"},
		StatusEmergencyVaulting:        {8, "emergencyvaulting"},
		StatusEmergencyVaulted:         {9, "emergencyvaulted"},
		StatusUnvaultEmergencyVaulting: {10, "unvaultemergencyvaulting"},
		StatusUnvaultEmergencyVaulted:  {11, "unvaultemergencyvaulted"},
		StatusSpendable:                {12, "spendable"},
		StatusSpending:                 {13, "spending"},
		StatusSpent:                    {14, "spent"},
	}
	require.Len(t, expected, NumStatuses)

	for status, want := range expected {
		require.Equal(t, want.code, status.Code())
		require.Equal(t, want.name, status.String())
	}
}

func TestStatusUnknown(t *testing.T) {
	t.Parallel()

	_, err := StatusFromCode(NumStatuses)
	require.ErrorIs(t, err, ErrUnknownStatus)
	_, err = StatusFromCode(255)
	require.ErrorIs(t, err, ErrUnknownStatus)

	for _, name := range []string{"", "unknown", "ACTIVE", "funded "} {
		_, err := StatusFromString(name)
		require.ErrorIs(t, err, ErrUnknownStatus)
	}

	require.False(t, Status(NumStatuses).Valid())
}
