// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package daemon

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/revault/revaultd/descriptor"
)

// TestGapLimitWindow asserts the last watched address always sits exactly
// gapLimit past the next unused index, and shifts with it.
func TestGapLimitWindow(t *testing.T) {
	t.Parallel()

	revaultd, err := FromConfig(stakeholderConfig(t))
	require.NoError(t, err)

	for _, next := range []uint32{0, 1, 7, 500} {
		require.NoError(t, revaultd.SetNextUnusedIndex(next))

		last, err := revaultd.LastDepositAddress()
		require.NoError(t, err)
		atWindowEdge, err := revaultd.DepositAddressAt(next + 100)
		require.NoError(t, err)
		require.Equal(t, atWindowEdge.EncodeAddress(),
			last.EncodeAddress())

		lastUnvault, err := revaultd.LastUnvaultAddress()
		require.NoError(t, err)
		unvaultAtEdge, err := revaultd.UnvaultAddressAt(next + 100)
		require.NoError(t, err)
		require.Equal(t, unvaultAtEdge.EncodeAddress(),
			lastUnvault.EncodeAddress())
	}

	// The address handed out for new deposits is the one at the next
	// unused index itself.
	require.NoError(t, revaultd.SetNextUnusedIndex(3))
	depositAddr, err := revaultd.DepositAddress()
	require.NoError(t, err)
	at3, err := revaultd.DepositAddressAt(3)
	require.NoError(t, err)
	require.Equal(t, at3.EncodeAddress(), depositAddr.EncodeAddress())
}

// TestGapLimitOverflow asserts the window edge fails explicitly instead of
// wrapping into hardened derivation territory.
func TestGapLimitOverflow(t *testing.T) {
	t.Parallel()

	revaultd, err := FromConfig(stakeholderConfig(t))
	require.NoError(t, err)

	err = revaultd.SetNextUnusedIndex(descriptor.MaxDerivationIndex + 1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	require.NoError(t,
		revaultd.SetNextUnusedIndex(descriptor.MaxDerivationIndex))

	_, err = revaultd.LastDepositAddress()
	require.ErrorIs(t, err, descriptor.ErrHardenedIndex)
	_, err = revaultd.LastUnvaultAddress()
	require.ErrorIs(t, err, descriptor.ErrHardenedIndex)
	_, err = revaultd.AllDepositAddresses()
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestAllAddressesRange(t *testing.T) {
	t.Parallel()

	revaultd, err := FromConfig(stakeholderConfig(t))
	require.NoError(t, err)
	require.NoError(t, revaultd.SetNextUnusedIndex(2))

	deposits, err := revaultd.AllDepositAddresses()
	require.NoError(t, err)
	require.Len(t, deposits, 103)

	first, err := revaultd.DepositAddressAt(0)
	require.NoError(t, err)
	require.Equal(t, first.EncodeAddress(), deposits[0])

	unvaults, err := revaultd.AllUnvaultAddresses()
	require.NoError(t, err)
	require.Len(t, unvaults, 103)
	require.NotEqual(t, deposits[0], unvaults[0])
}

func TestTipReplacedWholesale(t *testing.T) {
	t.Parallel()

	revaultd, err := FromConfig(stakeholderConfig(t))
	require.NoError(t, err)
	require.Nil(t, revaultd.Tip())

	var hash chainhash.Hash
	hash[0] = 0xde
	revaultd.SetTip(BlockchainTip{Height: 1000, Hash: hash})

	tip := revaultd.Tip()
	require.NotNil(t, tip)
	require.EqualValues(t, 1000, tip.Height)
	require.Equal(t, hash, tip.Hash)

	// Mutating the returned copy must not affect the stored tip.
	tip.Height = 0
	require.EqualValues(t, 1000, revaultd.Tip().Height)
}

func TestWatchedScriptIndexes(t *testing.T) {
	t.Parallel()

	revaultd, err := FromConfig(stakeholderConfig(t))
	require.NoError(t, err)

	script := []byte{0x00, 0x20, 0x01, 0x02}
	_, ok := revaultd.DerivationIndex(script)
	require.False(t, ok)

	revaultd.WatchScript(script, 7)
	index, ok := revaultd.DerivationIndex(script)
	require.True(t, ok)
	require.EqualValues(t, 7, index)
}

func TestWalletIDSetOnce(t *testing.T) {
	t.Parallel()

	revaultd, err := FromConfig(stakeholderConfig(t))
	require.NoError(t, err)

	_, ok := revaultd.WalletID()
	require.False(t, ok)
	_, ok = revaultd.WatchonlyWalletName()
	require.False(t, ok)

	require.NoError(t, revaultd.SetWalletID(1))
	id, ok := revaultd.WalletID()
	require.True(t, ok)
	require.EqualValues(t, 1, id)

	name, ok := revaultd.WatchonlyWalletName()
	require.True(t, ok)
	require.Equal(t, "revaultd-watchonly-wallet-1", name)

	walletFile, ok := revaultd.WatchonlyWalletFile()
	require.True(t, ok)
	require.Contains(t, walletFile, revaultd.DataDir)

	require.ErrorIs(t, revaultd.SetWalletID(2), ErrWalletIDSet)
}
