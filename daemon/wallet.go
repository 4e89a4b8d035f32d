// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package daemon

import (
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/revault/revaultd/descriptor"
)

var (
	// ErrWalletIDSet describes a second assignment of the storage wallet
	// id, which transitions exactly once from unset to set.
	ErrWalletIDSet = errors.New("wallet id is already set")

	// ErrIndexOutOfRange describes a next-unused derivation index past
	// the hardened boundary.
	ErrIndexOutOfRange = errors.New("derivation index out of range")
)

// walletState groups the runtime-mutable fields of RevaultD.  They are
// owned by a single logical writer, the chain-watcher/storage update path,
// and read by everyone else; the mutex hands each reader a consistent
// snapshot.
type walletState struct {
	mtx sync.RWMutex

	// tip is the last block the chain watcher heard about, nil until the
	// first poll.
	tip *BlockchainTip

	// derivationIndexMap maps a watched scriptPubKey (as a raw byte
	// string) to the derivation index that produced it.  Append-only.
	derivationIndexMap map[string]uint32

	// nextUnusedIndex is the lowest derivation index without a known
	// deposit.  Refreshed from the database.
	nextUnusedIndex uint32

	// walletID is the storage-assigned wallet identifier, valid only
	// once walletIDSet.
	walletID    uint32
	walletIDSet bool
}

// Tip returns a copy of the last known chain tip, or nil if the chain
// watcher has not reported one yet.
func (r *RevaultD) Tip() *BlockchainTip {
	r.wallet.mtx.RLock()
	defer r.wallet.mtx.RUnlock()

	if r.wallet.tip == nil {
		return nil
	}
	tip := *r.wallet.tip
	return &tip
}

// SetTip replaces the last known chain tip wholesale.
func (r *RevaultD) SetTip(tip BlockchainTip) {
	r.wallet.mtx.Lock()
	defer r.wallet.mtx.Unlock()

	r.wallet.tip = &tip
}

// NextUnusedIndex returns the lowest derivation index without a known
// deposit.
func (r *RevaultD) NextUnusedIndex() uint32 {
	r.wallet.mtx.RLock()
	defer r.wallet.mtx.RUnlock()

	return r.wallet.nextUnusedIndex
}

// SetNextUnusedIndex updates the next unused derivation index.  Indexes at
// or past the hardened boundary are rejected so the gap-limit window never
// silently wraps into hardened derivation territory.
func (r *RevaultD) SetNextUnusedIndex(index uint32) error {
	if index > descriptor.MaxDerivationIndex {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	r.wallet.mtx.Lock()
	defer r.wallet.mtx.Unlock()

	r.wallet.nextUnusedIndex = index
	return nil
}

// WatchScript records the derivation index of a watched scriptPubKey.  The
// map is append-only; re-recording an existing script with the same index
// is a no-op.
func (r *RevaultD) WatchScript(script []byte, index uint32) {
	r.wallet.mtx.Lock()
	defer r.wallet.mtx.Unlock()

	r.wallet.derivationIndexMap[string(script)] = index
}

// DerivationIndex returns the derivation index a watched scriptPubKey was
// produced at.
func (r *RevaultD) DerivationIndex(script []byte) (uint32, bool) {
	r.wallet.mtx.RLock()
	defer r.wallet.mtx.RUnlock()

	index, ok := r.wallet.derivationIndexMap[string(script)]
	return index, ok
}

// WalletID returns the storage-assigned wallet identifier, if assigned.
func (r *RevaultD) WalletID() (uint32, bool) {
	r.wallet.mtx.RLock()
	defer r.wallet.mtx.RUnlock()

	return r.wallet.walletID, r.wallet.walletIDSet
}

// SetWalletID records the storage-assigned wallet identifier.  It may only
// be called once.
func (r *RevaultD) SetWalletID(id uint32) error {
	r.wallet.mtx.Lock()
	defer r.wallet.mtx.Unlock()

	if r.wallet.walletIDSet {
		return ErrWalletIDSet
	}
	r.wallet.walletID = id
	r.wallet.walletIDSet = true
	return nil
}

// DepositAddressAt returns the deposit address at the given derivation
// index.
func (r *RevaultD) DepositAddressAt(index uint32) (btcutil.Address, error) {
	return r.DepositDescriptor.Address(index, r.Net.Params)
}

// UnvaultAddressAt returns the unvault address at the given derivation
// index.
func (r *RevaultD) UnvaultAddressAt(index uint32) (btcutil.Address, error) {
	return r.UnvaultDescriptor.Address(index, r.Net.Params)
}

// DepositAddress returns the deposit address at the next unused derivation
// index, the one to hand out for a new deposit.
func (r *RevaultD) DepositAddress() (btcutil.Address, error) {
	return r.DepositAddressAt(r.NextUnusedIndex())
}

// LastDepositAddress returns the deposit address at the far edge of the
// gap-limit window, the last one the chain watcher must watch.  It fails
// explicitly if the window crosses the hardened derivation boundary.
func (r *RevaultD) LastDepositAddress() (btcutil.Address, error) {
	return r.DepositAddressAt(r.NextUnusedIndex() + gapLimit)
}

// LastUnvaultAddress is LastDepositAddress for the unvault descriptor.
func (r *RevaultD) LastUnvaultAddress() (btcutil.Address, error) {
	return r.UnvaultAddressAt(r.NextUnusedIndex() + gapLimit)
}

// AllDepositAddresses enumerates every deposit address from index 0
// through the edge of the gap-limit window, for full-range rescans.
func (r *RevaultD) AllDepositAddresses() ([]string, error) {
	return r.allAddresses(r.DepositAddressAt)
}

// AllUnvaultAddresses enumerates every unvault address from index 0
// through the edge of the gap-limit window, for full-range rescans.
func (r *RevaultD) AllUnvaultAddresses() ([]string, error) {
	return r.allAddresses(r.UnvaultAddressAt)
}

func (r *RevaultD) allAddresses(
	addressAt func(uint32) (btcutil.Address, error)) ([]string, error) {

	lastIndex := r.NextUnusedIndex() + gapLimit
	if lastIndex > descriptor.MaxDerivationIndex {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, lastIndex)
	}

	addresses := make([]string, 0, lastIndex+1)
	for index := uint32(0); index <= lastIndex; index++ {
		addr, err := addressAt(index)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr.EncodeAddress())
	}
	return addresses, nil
}
