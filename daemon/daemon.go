// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package daemon owns the process-wide state of revaultd.  RevaultD is
// built exactly once from the validated configuration, before any other
// subsystem starts: it derives the vault output descriptors from the
// participant key sets, bootstraps the static Noise identity, and prepares
// the per-network data directory.  After bootstrap the immutable fields are
// shared freely across subsystems while the few runtime-mutable fields
// (chain tip, watched derivation indexes, wallet id) sit behind a mutex
// with a single logical writer.
package daemon

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/revault/revaultd/descriptor"
	"github.com/revault/revaultd/internal/cfgutil"
	"github.com/revault/revaultd/netparams"
	"github.com/revault/revaultd/noisekey"
)

const (
	// NoiseSecretFileName is the name of the static Noise private key
	// file within the network data directory.
	NoiseSecretFileName = "noise_secret"

	// dataDirMode restricts the data directory to its owner: it contains
	// the Noise secret and the wallet database.
	dataDirMode = 0700

	// gapLimit is the number of not-yet-used addresses kept watched
	// ahead of the last used one, per standard HD wallet scanning
	// practice.
	gapLimit = 100
)

// BlockchainTip is the last block the chain watcher told us about.  It is
// replaced wholesale on update, never partially mutated.
type BlockchainTip struct {
	Height int32
	Hash   chainhash.Hash
}

// StakeholderInfo is the stakeholder variant of our role: our xpub within
// the stakeholder set and the validated emergency destination.
type StakeholderInfo struct {
	Xpub             *hdkeychain.ExtendedKey
	EmergencyAddress descriptor.EmergencyAddress
}

// ManagerInfo is the manager variant of our role: our xpub within the
// manager set and the cosigning servers to obtain signatures from.
type ManagerInfo struct {
	Xpub      *hdkeychain.ExtendedKey
	Cosigners []CosignerConfig
}

// RevaultD is the global daemon state.
//
// Everything outside the wallet state is immutable once FromConfig
// returns and requires no synchronization.
type RevaultD struct {
	// Net is the chain this daemon operates on.
	Net *netparams.Params

	// Stakeholder and Manager hold the role-conditional fields; at least
	// one is non-nil.  Fields that only make sense for one role
	// (emergency address, cosigners) live inside the role they belong
	// to, so an illegal combination cannot be represented.
	Stakeholder *StakeholderInfo
	Manager     *ManagerInfo

	// The three output script templates every participant derives
	// identically.
	DepositDescriptor *descriptor.Deposit
	UnvaultDescriptor *descriptor.Unvault
	CpfpDescriptor    *descriptor.Cpfp

	// ManagersXpubs is the full manager key set, needed to rebuild the
	// CPFP wallet and to identify manager signatures.
	ManagersXpubs []*hdkeychain.ExtendedKey

	// NoiseSecret is our static Noise private key; the public half is
	// recomputed on demand via NoisePubKey.
	NoiseSecret *noisekey.PrivateKey

	// CoordinatorHost is the normalized host:port of the sig-exchange
	// coordinator and CoordinatorNoiseKey its static public key.
	CoordinatorHost         string
	CoordinatorNoiseKey     noisekey.PublicKey
	CoordinatorPollInterval time.Duration

	// LockTime is the nLockTime set on all created transactions.  Always
	// 0 for now.
	LockTime uint32

	// UnvaultCSV is the relative timelock of the unvault descriptor's
	// manager path, kept alongside it for sequence construction.
	UnvaultCSV uint32

	// DataDir is the canonicalized per-network data directory.
	DataDir string

	// Daemonize indicates whether to detach from the controlling
	// terminal.
	Daemonize bool

	// wallet is the runtime-mutable state, see walletState.
	wallet walletState
}

// FromConfig creates the global daemon state by consuming the static
// configuration.  It creates the per-network data directory with owner-only
// permissions and loads or generates the static Noise key inside it.  Any
// failure is fatal to the bootstrap.
func FromConfig(cfg *Config) (*RevaultD, error) {
	// The config parser checked this, but the invariant is load bearing
	// for everything below.
	if cfg.Stakeholder == nil && cfg.Manager == nil {
		return nil, configError("neither a stakeholder nor a " +
			"manager role is configured")
	}

	depositDesc, err := descriptor.NewDeposit(cfg.StakeholdersXpubs)
	if err != nil {
		return nil, configError("deposit descriptor: %w", err)
	}
	unvaultDesc, err := descriptor.NewUnvault(
		cfg.StakeholdersXpubs, cfg.ManagersXpubs,
		len(cfg.ManagersXpubs), cfg.CosignersKeys, cfg.UnvaultCSV,
	)
	if err != nil {
		return nil, configError("unvault descriptor: %w", err)
	}
	cpfpDesc, err := descriptor.NewCpfp(cfg.ManagersXpubs)
	if err != nil {
		return nil, configError("cpfp descriptor: %w", err)
	}

	var stakeholder *StakeholderInfo
	if cfg.Stakeholder != nil {
		emergencyAddr, err := descriptor.ParseEmergencyAddress(
			cfg.Stakeholder.EmergencyAddress, cfg.Net.Params,
		)
		if err != nil {
			return nil, ConfigError{Err: err}
		}
		stakeholder = &StakeholderInfo{
			Xpub:             cfg.Stakeholder.Xpub,
			EmergencyAddress: emergencyAddr,
		}
	}

	var manager *ManagerInfo
	if cfg.Manager != nil {
		cosigners := make([]CosignerConfig, len(cfg.Manager.Cosigners))
		for i, cosigner := range cfg.Manager.Cosigners {
			host, err := normalizeNetAddress(
				cosigner.Host, cfg.Net.CoordinatorPort,
			)
			if err != nil {
				return nil, configError("cosigner host "+
					"%q: %v", cosigner.Host, err)
			}
			cosigners[i] = CosignerConfig{
				Host:     host,
				NoiseKey: cosigner.NoiseKey,
			}
		}
		manager = &ManagerInfo{
			Xpub:      cfg.Manager.Xpub,
			Cosigners: cosigners,
		}
	}

	coordinatorHost, err := normalizeNetAddress(
		cfg.CoordinatorHost, cfg.Net.CoordinatorPort,
	)
	if err != nil {
		return nil, configError("coordinator host %q: %v",
			cfg.CoordinatorHost, err)
	}

	dataDir := filepath.Join(cfg.DataDir, cfg.Net.Name)
	if err := os.MkdirAll(dataDir, dataDirMode); err != nil {
		return nil, configError("could not create data dir %q: %v",
			dataDir, err)
	}
	dataDir, err = canonicalizePath(dataDir)
	if err != nil {
		return nil, configError("could not canonicalize data dir: %v",
			err)
	}

	secretFile := filepath.Join(dataDir, NoiseSecretFileName)
	hadSecret, err := cfgutil.FileExists(secretFile)
	if err != nil {
		return nil, ConfigError{Err: err}
	}
	if !hadSecret {
		log.Infof("No Noise private key at %q, generating a new one",
			secretFile)
	}
	noiseSecret, err := noisekey.LoadOrCreate(secretFile)
	if err != nil {
		return nil, ConfigError{Err: err}
	}

	return &RevaultD{
		Net:                     cfg.Net,
		Stakeholder:             stakeholder,
		Manager:                 manager,
		DepositDescriptor:       depositDesc,
		UnvaultDescriptor:       unvaultDesc,
		CpfpDescriptor:          cpfpDesc,
		ManagersXpubs:           cfg.ManagersXpubs,
		NoiseSecret:             noiseSecret,
		CoordinatorHost:         coordinatorHost,
		CoordinatorNoiseKey:     cfg.CoordinatorNoiseKey,
		CoordinatorPollInterval: cfg.CoordinatorPollInterval,
		LockTime:                0,
		UnvaultCSV:              cfg.UnvaultCSV,
		DataDir:                 dataDir,
		Daemonize:               cfg.Daemon,
		wallet: walletState{
			derivationIndexMap: make(map[string]uint32),
		},
	}, nil
}

// canonicalizePath makes the path absolute and resolves any symlinks so all
// derived file paths are stable for the process lifetime.
func canonicalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// normalizeNetAddress normalizes addr with the default port and validates
// that the result actually parses as a network address: a non-empty host
// (a literal IP if it contains colons) and a numeric port.
func normalizeNetAddress(addr, defaultPort string) (string, error) {
	normalized, err := cfgutil.NormalizeAddress(addr, defaultPort)
	if err != nil {
		return "", err
	}
	host, port, err := net.SplitHostPort(normalized)
	if err != nil {
		return "", err
	}
	if host == "" {
		return "", fmt.Errorf("missing host in %q", addr)
	}
	if strings.Contains(host, ":") && net.ParseIP(host) == nil {
		return "", fmt.Errorf("invalid host %q", host)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", fmt.Errorf("invalid port %q", port)
	}
	return normalized, nil
}

// IsStakeholder reports whether this daemon participates as a stakeholder.
func (r *RevaultD) IsStakeholder() bool {
	return r.Stakeholder != nil
}

// IsManager reports whether this daemon participates as a manager.
func (r *RevaultD) IsManager() bool {
	return r.Manager != nil
}

// EmergencyAddress returns the emergency destination if we are a
// stakeholder.
func (r *RevaultD) EmergencyAddress() (descriptor.EmergencyAddress, bool) {
	if r.Stakeholder == nil {
		return descriptor.EmergencyAddress{}, false
	}
	return r.Stakeholder.EmergencyAddress, true
}

// NoisePubKey returns our static Noise public key, recomputed from the
// secret on every call.
func (r *RevaultD) NoisePubKey() noisekey.PublicKey {
	return r.NoiseSecret.PubKey()
}

// GapLimit returns the number of unused addresses that must remain watched
// ahead of the last used one.
func (r *RevaultD) GapLimit() uint32 {
	return gapLimit
}

// fileFromDataDir returns the path of a file within the per-network data
// directory.
func (r *RevaultD) fileFromDataDir(fileName string) string {
	return filepath.Join(r.DataDir, fileName)
}

// LogFile returns the path of the daemon log file.
func (r *RevaultD) LogFile() string {
	return r.fileFromDataDir("log")
}

// PidFile returns the path of the daemon pid file.
func (r *RevaultD) PidFile() string {
	return r.fileFromDataDir("revaultd.pid")
}

// DBFile returns the path of the sqlite database file, owned by the storage
// subsystem.
func (r *RevaultD) DBFile() string {
	return r.fileFromDataDir("revaultd.sqlite3")
}

// RPCSocketFile returns the path of the local control socket.
func (r *RevaultD) RPCSocketFile() string {
	return r.fileFromDataDir("revaultd_rpc")
}

// WatchonlyWalletName returns the name of the watch-only wallet loaded on
// bitcoind, keyed by the storage-assigned wallet id.  It is unavailable
// until the storage subsystem assigned one.
func (r *RevaultD) WatchonlyWalletName() (string, bool) {
	id, ok := r.WalletID()
	if !ok {
		return "", false
	}
	return fmt.Sprintf("revaultd-watchonly-wallet-%d", id), true
}

// WatchonlyWalletFile returns the path of the watch-only wallet within the
// data directory, if the wallet id was assigned.
func (r *RevaultD) WatchonlyWalletFile() (string, bool) {
	name, ok := r.WatchonlyWalletName()
	if !ok {
		return "", false
	}
	return r.fileFromDataDir(name), true
}
