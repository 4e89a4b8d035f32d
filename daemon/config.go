// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package daemon

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"

	"github.com/revault/revaultd/netparams"
	"github.com/revault/revaultd/noisekey"
)

// ConfigError wraps any configuration-validation or bootstrap failure.  All
// such failures are fatal: the daemon must not start in a partially
// initialized state.
type ConfigError struct {
	Err error
}

// Error satisfies the error interface.
func (e ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e ConfigError) Unwrap() error {
	return e.Err
}

// configError creates a ConfigError from a format string.
func configError(format string, args ...interface{}) ConfigError {
	return ConfigError{Err: fmt.Errorf(format, args...)}
}

// CosignerConfig describes one cosigning server a manager must obtain a
// signature from before unvaulting: its endpoint and the static public key
// authenticating its Noise channel.
type CosignerConfig struct {
	Host     string
	NoiseKey noisekey.PublicKey
}

// StakeholderConfig carries the fields only meaningful to a stakeholder:
// our own extended public key within the stakeholder set and the emergency
// deep-vault destination.
type StakeholderConfig struct {
	Xpub             *hdkeychain.ExtendedKey
	EmergencyAddress string
}

// ManagerConfig carries the fields only meaningful to a manager: our own
// extended public key within the manager set and the cosigning servers.
type ManagerConfig struct {
	Xpub      *hdkeychain.ExtendedKey
	Cosigners []CosignerConfig
}

// Config is the validated static configuration consumed once by FromConfig.
// At least one of Stakeholder and Manager must be set.
type Config struct {
	// Net selects the chain the daemon operates on and the default
	// coordinator port.
	Net *netparams.Params

	// DataDir is the base data directory; the daemon works in a
	// per-network subdirectory of it.
	DataDir string

	// Stakeholder and Manager describe our role(s) in the deployment.
	Stakeholder *StakeholderConfig
	Manager     *ManagerConfig

	// The full participant key sets, identical for every party.
	StakeholdersXpubs []*hdkeychain.ExtendedKey
	ManagersXpubs     []*hdkeychain.ExtendedKey
	CosignersKeys     []*btcec.PublicKey

	// UnvaultCSV is the relative timelock gating the managers' unvault
	// spending path.
	UnvaultCSV uint32

	// CoordinatorHost is the sig-exchange coordinator endpoint, and
	// CoordinatorNoiseKey its static public key.
	CoordinatorHost     string
	CoordinatorNoiseKey noisekey.PublicKey

	// CoordinatorPollInterval is how often the sig-exchange client polls
	// the coordinator.
	CoordinatorPollInterval time.Duration

	// Daemon indicates whether to detach from the controlling terminal.
	Daemon bool
}
