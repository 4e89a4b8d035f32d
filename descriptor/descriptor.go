// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package descriptor turns the participants' extended public keys into the
// three output script templates of a vault (deposit, unvault, CPFP).  Every
// party derives the scripts independently, so construction is strictly
// deterministic: key sets are canonically sorted once at construction time
// and identical inputs always compose to byte-identical scripts.
//
// The script templates are, with N stakeholders, K managers of which M must
// sign, and C the unvault relative timelock:
//
// Deposit (N-of-N stakeholders):
//
//	N <stk_1> ... <stk_N> N OP_CHECKMULTISIG
//
// Unvault (stakeholders without delay, or managers plus every cosigner
// after the timelock):
//
//	OP_IF
//	    N <stk_1> ... <stk_N> N OP_CHECKMULTISIG
//	OP_ELSE
//	    <C> OP_CHECKSEQUENCEVERIFY OP_DROP
//	    <cosig_1> OP_CHECKSIGVERIFY
//	    ...
//	    <cosig_n> OP_CHECKSIGVERIFY
//	    M <man_1> ... <man_K> K OP_CHECKMULTISIG
//	OP_ENDIF
//
// CPFP (K-of-K managers, used to fee-bump unvault/spend transactions):
//
//	K <man_1> ... <man_K> K OP_CHECKMULTISIG
package descriptor

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

const (
	// MaxDerivationIndex is the largest child index the descriptors can
	// be derived at.  Indexes at or past the hardened boundary cannot be
	// derived from public keys, and silently wrapping into hardened
	// territory would make parties disagree on scripts.
	MaxDerivationIndex = hdkeychain.HardenedKeyStart - 1 // 2^31 - 1

	// maxSequenceValue is the largest encodable relative timelock, as
	// consensus masks CSV operands to 16 bits of block count.
	maxSequenceValue = 0xffff
)

var (
	// ErrEmptyKeySet describes a descriptor constructed over an empty
	// key set.
	ErrEmptyKeySet = errors.New("descriptor requires a non-empty key set")

	// ErrBadThreshold describes a manager threshold that is zero or
	// exceeds the number of manager keys.
	ErrBadThreshold = errors.New("invalid manager signature threshold")

	// ErrTooManyKeys describes a key set too large for a CHECKMULTISIG
	// based script.
	ErrTooManyKeys = errors.New("key set exceeds multisig key limit")

	// ErrBadSequence describes an unvault relative timelock that cannot
	// be encoded in a sequence number.
	ErrBadSequence = errors.New("invalid unvault relative timelock")

	// ErrHardenedIndex describes a derivation index at or past the
	// hardened boundary.
	ErrHardenedIndex = errors.New("derivation index crosses the " +
		"hardened boundary")
)

// Deposit is the script template of the vault outputs themselves: moving a
// deposit requires every stakeholder, no exceptions and no delay.
type Deposit struct {
	stakeholders []*hdkeychain.ExtendedKey
}

// NewDeposit constructs the deposit descriptor over the stakeholder xpub
// set.  The set is copied and canonically sorted.
func NewDeposit(stakeholders []*hdkeychain.ExtendedKey) (*Deposit, error) {
	if len(stakeholders) == 0 {
		return nil, ErrEmptyKeySet
	}
	if len(stakeholders) > txscript.MaxPubKeysPerMultiSig {
		return nil, ErrTooManyKeys
	}
	return &Deposit{stakeholders: sortXpubs(stakeholders)}, nil
}

// Script returns the witness script at the given derivation index.
func (d *Deposit) Script(index uint32) ([]byte, error) {
	keys, err := deriveAll(d.stakeholders, index)
	if err != nil {
		return nil, err
	}

	builder := txscript.NewScriptBuilder()
	addMultisig(builder, len(keys), keys)
	return builder.Script()
}

// Address returns the P2WSH address of the script at the given derivation
// index on the given network.
func (d *Deposit) Address(index uint32, net *chaincfg.Params) (btcutil.Address, error) {
	return scriptAddress(d, index, net)
}

// String returns the canonical text encoding of the descriptor.  Two
// descriptors over the same key set always encode identically.
func (d *Deposit) String() string {
	return fmt.Sprintf("wsh(multi(%d,%s))", len(d.stakeholders),
		joinXpubs(d.stakeholders))
}

// Unvault is the script template of the unvault transaction output.  The
// stakeholders can always claim it immediately (to cancel or to the
// emergency deep vault), while the manager quorum plus every cosigner can
// spend it once the relative timelock has elapsed.
type Unvault struct {
	stakeholders []*hdkeychain.ExtendedKey
	managers     []*hdkeychain.ExtendedKey
	cosigners    []*btcec.PublicKey
	threshold    int
	csv          uint32
}

// NewUnvault constructs the unvault descriptor.  The xpub sets are copied
// and canonically sorted, the cosigner keys by compressed encoding.  The
// manager threshold must be between 1 and the number of manager keys, and
// csv must fit a 16-bit block-based sequence lock.
func NewUnvault(stakeholders, managers []*hdkeychain.ExtendedKey,
	threshold int, cosigners []*btcec.PublicKey,
	csv uint32) (*Unvault, error) {

	if len(stakeholders) == 0 || len(managers) == 0 || len(cosigners) == 0 {
		return nil, ErrEmptyKeySet
	}
	if len(stakeholders) > txscript.MaxPubKeysPerMultiSig ||
		len(managers) > txscript.MaxPubKeysPerMultiSig {

		return nil, ErrTooManyKeys
	}
	if threshold < 1 || threshold > len(managers) {
		return nil, fmt.Errorf("%w: %d of %d", ErrBadThreshold,
			threshold, len(managers))
	}
	if csv == 0 || csv > maxSequenceValue {
		return nil, fmt.Errorf("%w: %d", ErrBadSequence, csv)
	}

	return &Unvault{
		stakeholders: sortXpubs(stakeholders),
		managers:     sortXpubs(managers),
		cosigners:    sortPubKeys(cosigners),
		threshold:    threshold,
		csv:          csv,
	}, nil
}

// CSV returns the relative timelock gating the manager spending path.
func (u *Unvault) CSV() uint32 {
	return u.csv
}

// Script returns the witness script at the given derivation index.
func (u *Unvault) Script(index uint32) ([]byte, error) {
	stks, err := deriveAll(u.stakeholders, index)
	if err != nil {
		return nil, err
	}
	mans, err := deriveAll(u.managers, index)
	if err != nil {
		return nil, err
	}

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_IF)
	addMultisig(builder, len(stks), stks)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(int64(u.csv))
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	for _, cosig := range u.cosigners {
		builder.AddData(cosig.SerializeCompressed())
		builder.AddOp(txscript.OP_CHECKSIGVERIFY)
	}
	addMultisig(builder, u.threshold, mans)
	builder.AddOp(txscript.OP_ENDIF)
	return builder.Script()
}

// Address returns the P2WSH address of the script at the given derivation
// index on the given network.
func (u *Unvault) Address(index uint32, net *chaincfg.Params) (btcutil.Address, error) {
	return scriptAddress(u, index, net)
}

// String returns the canonical text encoding of the descriptor.
func (u *Unvault) String() string {
	cosigs := make([]string, len(u.cosigners))
	for i, cosig := range u.cosigners {
		cosigs[i] = fmt.Sprintf("%x", cosig.SerializeCompressed())
	}
	return fmt.Sprintf(
		"wsh(unvault(stk(%d,%s),man(%d,%s),cosig(%s),older(%d)))",
		len(u.stakeholders), joinXpubs(u.stakeholders),
		u.threshold, joinXpubs(u.managers),
		strings.Join(cosigs, ","), u.csv,
	)
}

// Cpfp is the script template of the child-pays-for-parent outputs carried
// by unvault and spend transactions, letting the managers bump fees.
type Cpfp struct {
	managers []*hdkeychain.ExtendedKey
}

// NewCpfp constructs the CPFP descriptor over the manager xpub set.  The
// set is copied and canonically sorted.
func NewCpfp(managers []*hdkeychain.ExtendedKey) (*Cpfp, error) {
	if len(managers) == 0 {
		return nil, ErrEmptyKeySet
	}
	if len(managers) > txscript.MaxPubKeysPerMultiSig {
		return nil, ErrTooManyKeys
	}
	return &Cpfp{managers: sortXpubs(managers)}, nil
}

// Script returns the witness script at the given derivation index.
func (c *Cpfp) Script(index uint32) ([]byte, error) {
	keys, err := deriveAll(c.managers, index)
	if err != nil {
		return nil, err
	}

	builder := txscript.NewScriptBuilder()
	addMultisig(builder, len(keys), keys)
	return builder.Script()
}

// Address returns the P2WSH address of the script at the given derivation
// index on the given network.
func (c *Cpfp) Address(index uint32, net *chaincfg.Params) (btcutil.Address, error) {
	return scriptAddress(c, index, net)
}

// String returns the canonical text encoding of the descriptor.
func (c *Cpfp) String() string {
	return fmt.Sprintf("wsh(multi(%d,%s))", len(c.managers),
		joinXpubs(c.managers))
}

// scripter is satisfied by the three descriptor types.
type scripter interface {
	Script(index uint32) ([]byte, error)
}

func scriptAddress(s scripter, index uint32,
	net *chaincfg.Params) (btcutil.Address, error) {

	script, err := s.Script(index)
	if err != nil {
		return nil, err
	}
	scriptHash := sha256.Sum256(script)
	return btcutil.NewAddressWitnessScriptHash(scriptHash[:], net)
}

// sortXpubs returns a copy of the keys sorted by their canonical base58
// encoding.
func sortXpubs(keys []*hdkeychain.ExtendedKey) []*hdkeychain.ExtendedKey {
	sorted := make([]*hdkeychain.ExtendedKey, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})
	return sorted
}

// sortPubKeys returns a copy of the keys sorted by their compressed
// encoding.
func sortPubKeys(keys []*btcec.PublicKey) []*btcec.PublicKey {
	sorted := make([]*btcec.PublicKey, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		a := sorted[i].SerializeCompressed()
		b := sorted[j].SerializeCompressed()
		return string(a) < string(b)
	})
	return sorted
}

// deriveAll derives the non-hardened child at index for each xpub.  The
// index is range checked so the caller gets an explicit failure instead of
// a script no other party would arrive at.
func deriveAll(xpubs []*hdkeychain.ExtendedKey,
	index uint32) ([]*btcec.PublicKey, error) {

	if index > MaxDerivationIndex {
		return nil, fmt.Errorf("%w: %d", ErrHardenedIndex, index)
	}

	keys := make([]*btcec.PublicKey, len(xpubs))
	for i, xpub := range xpubs {
		child, err := xpub.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("unable to derive child %d of "+
				"%s: %w", index, xpub.String()[:12], err)
		}
		pubKey, err := child.ECPubKey()
		if err != nil {
			return nil, err
		}
		keys[i] = pubKey
	}
	return keys, nil
}

func addMultisig(builder *txscript.ScriptBuilder, required int,
	keys []*btcec.PublicKey) {

	builder.AddInt64(int64(required))
	for _, key := range keys {
		builder.AddData(key.SerializeCompressed())
	}
	builder.AddInt64(int64(len(keys)))
	builder.AddOp(txscript.OP_CHECKMULTISIG)
}

func joinXpubs(keys []*hdkeychain.ExtendedKey) string {
	encoded := make([]string, len(keys))
	for i, key := range keys {
		encoded[i] = key.String() + "/*"
	}
	return strings.Join(encoded, ",")
}
