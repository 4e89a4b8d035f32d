// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	flags "github.com/jessevdk/go-flags"

	"github.com/revault/revaultd/daemon"
	"github.com/revault/revaultd/internal/cfgutil"
	"github.com/revault/revaultd/netparams"
	"github.com/revault/revaultd/noisekey"
)

const (
	defaultConfigFilename         = "revault.conf"
	defaultLogLevel               = "info"
	defaultUnvaultCSV             = 6
	defaultCoordinatorPollSeconds = 60
)

var (
	revaultdHomeDir   = btcutil.AppDataDir("revault", false)
	defaultConfigFile = filepath.Join(revaultdHomeDir, defaultConfigFilename)
	defaultDataDir    = revaultdHomeDir
)

// config defines the configuration options for revaultd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	// General application behavior
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store the database, logs and keys"`
	TestNet3    bool   `long:"testnet" description:"Use the test network (default mainnet)"`
	RegressionNet bool `long:"regtest" description:"Use the regression test network (default mainnet)"`
	SimNet      bool   `long:"simnet" description:"Use the simulation test network (default mainnet)"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	NoDaemon    bool   `long:"nodaemon" description:"Run in the foreground instead of daemonizing"`
	Profile     string `long:"profile" description:"Enable HTTP profiling on given port -- NOTE port must be between 1024 and 65536"`

	// Role options.  At least one of stakeholderxpub and managerxpub must
	// be set.
	StakeholderXpub  string   `long:"stakeholderxpub" description:"Our extended public key within the stakeholder set; enables the stakeholder role"`
	EmergencyAddress string   `long:"emergencyaddress" description:"The deep-vault destination of the emergency transactions -- Required for stakeholders"`
	ManagerXpub      string   `long:"managerxpub" description:"Our extended public key within the manager set; enables the manager role"`
	CosignerServers  []string `long:"cosignerserver" description:"host:port of a cosigning server (one per cosigner) -- Managers only"`
	CosignerNoiseKeys []string `long:"cosignernoisekey" description:"Static Noise public key of the corresponding cosigning server, as 64 hex characters"`

	// Deployment options, identical for every participant.
	Stakeholders []string `long:"stakeholder" description:"Extended public key of a stakeholder (repeat once per stakeholder)"`
	Managers     []string `long:"manager" description:"Extended public key of a manager (repeat once per manager)"`
	Cosigners    []string `long:"cosigner" description:"Public key of a cosigning server, as 66 hex characters (repeat once per cosigner)"`
	UnvaultCSV   uint32   `long:"unvaultcsv" description:"Relative timelock, in blocks, gating the managers' unvault spending path"`

	// Coordinator options.
	CoordinatorHost        string `long:"coordinatorhost" description:"host:port the sig-exchange coordinator listens on"`
	CoordinatorNoiseKey    string `long:"coordinatornoisekey" description:"Static Noise public key of the coordinator, as 64 hex characters"`
	CoordinatorPollSeconds uint32 `long:"coordinatorpoll" description:"Interval in seconds between coordinator polls"`
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(revaultdHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace":
		fallthrough
	case "debug":
		fallthrough
	case "info":
		fallthrough
	case "warn":
		fallthrough
	case "error":
		fallthrough
	case "critical":
		return true
	}
	return false
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)
		return nil
	}

	// Split the specified string into subsystem/level pairs while
	// detecting issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an " +
				"invalid subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// parseXpub decodes an extended public key and validates it against the
// active network.
func parseXpub(s string) (*hdkeychain.ExtendedKey, error) {
	xpub, err := hdkeychain.NewKeyFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid extended public key %q: %v",
			s, err)
	}
	if xpub.IsPrivate() {
		return nil, fmt.Errorf("%q is an extended private key; "+
			"revaultd only ever handles public keys", s)
	}
	if !xpub.IsForNet(activeNet.Params) {
		return nil, fmt.Errorf("extended public key %q is not for "+
			"network %s", s, activeNet.Name)
	}
	return xpub, nil
}

func parseXpubs(encoded []string) ([]*hdkeychain.ExtendedKey, error) {
	xpubs := make([]*hdkeychain.ExtendedKey, len(encoded))
	for i, s := range encoded {
		xpub, err := parseXpub(s)
		if err != nil {
			return nil, err
		}
		xpubs[i] = xpub
	}
	return xpubs, nil
}

// parseNoiseKey decodes a 32-byte hex-encoded static Noise public key.
func parseNoiseKey(s string) (noisekey.PublicKey, error) {
	var key noisekey.PublicKey
	raw, err := hex.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("invalid noise key %q: %v", s, err)
	}
	if len(raw) != noisekey.KeySize {
		return key, fmt.Errorf("invalid noise key %q: must be %d "+
			"bytes", s, noisekey.KeySize)
	}
	copy(key[:], raw)
	return key, nil
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in revaultd functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.  It also initializes the logging infrastructure: any failure
// past that point is logged, earlier ones are printed to stderr.
func loadConfig() (*config, *daemon.Config, error) {
	// Default config.
	cfg := config{
		ConfigFile:             defaultConfigFile,
		DataDir:                defaultDataDir,
		DebugLevel:             defaultLogLevel,
		UnvaultCSV:             defaultUnvaultCSV,
		CoordinatorPollSeconds: defaultCoordinatorPollSeconds,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			preParser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	funcName := "loadConfig"
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version())
		os.Exit(0)
	}

	// Load additional config from file.
	configFilePath := cleanAndExpandPath(preCfg.ConfigFile)
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(configFilePath)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintf(os.Stderr, "Error parsing config file: "+
				"%v\n", err)
			parser.WriteHelp(os.Stderr)
			return nil, nil, err
		}
		configFileExists, statErr := cfgutil.FileExists(configFilePath)
		if statErr != nil {
			return nil, nil, statErr
		}
		if preCfg.ConfigFile != defaultConfigFile && !configFileExists {
			err := fmt.Errorf("%s: the specified config file %q "+
				"does not exist", funcName, configFilePath)
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	_, err = parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Multiple networks can't be selected simultaneously.
	numNets := 0
	if cfg.TestNet3 {
		activeNet = &netparams.TestNet3Params
		numNets++
	}
	if cfg.RegressionNet {
		activeNet = &netparams.RegressionNetParams
		numNets++
	}
	if cfg.SimNet {
		activeNet = &netparams.SimNetParams
		numNets++
	}
	if numNets > 1 {
		str := "%s: the testnet, regtest and simnet params can't be " +
			"used together -- choose one"
		err := fmt.Errorf(str, funcName)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	netDir := filepath.Join(cfg.DataDir, activeNet.Name)

	// Initialize log rotation.  After the log rotation has been
	// initialized, the logger variables may be used.
	initLogRotator(filepath.Join(netDir, "log"))

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// At least one role is required; everything below it depends on
	// which.
	if cfg.StakeholderXpub == "" && cfg.ManagerXpub == "" {
		err := fmt.Errorf("%s: neither a stakeholder nor a manager "+
			"xpub is configured", funcName)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	dcfg := &daemon.Config{
		Net:        activeNet,
		DataDir:    cfg.DataDir,
		UnvaultCSV: cfg.UnvaultCSV,
		CoordinatorPollInterval: time.Duration(
			cfg.CoordinatorPollSeconds) * time.Second,
		Daemon: !cfg.NoDaemon,
	}

	dcfg.StakeholdersXpubs, err = parseXpubs(cfg.Stakeholders)
	if err != nil {
		log.Errorf("Invalid stakeholder set: %v", err)
		return nil, nil, err
	}
	dcfg.ManagersXpubs, err = parseXpubs(cfg.Managers)
	if err != nil {
		log.Errorf("Invalid manager set: %v", err)
		return nil, nil, err
	}

	dcfg.CosignersKeys = make([]*btcec.PublicKey, len(cfg.Cosigners))
	for i, s := range cfg.Cosigners {
		raw, err := hex.DecodeString(s)
		if err != nil {
			log.Errorf("Invalid cosigner key %q: %v", s, err)
			return nil, nil, err
		}
		pubKey, err := btcec.ParsePubKey(raw)
		if err != nil {
			log.Errorf("Invalid cosigner key %q: %v", s, err)
			return nil, nil, err
		}
		dcfg.CosignersKeys[i] = pubKey
	}

	if cfg.StakeholderXpub != "" {
		xpub, err := parseXpub(cfg.StakeholderXpub)
		if err != nil {
			log.Errorf("Invalid stakeholder xpub: %v", err)
			return nil, nil, err
		}
		if !xpubInSet(xpub, dcfg.StakeholdersXpubs) {
			err := fmt.Errorf("our stakeholder xpub is not part " +
				"of the configured stakeholder set")
			log.Errorf("%v", err)
			return nil, nil, err
		}
		if cfg.EmergencyAddress == "" {
			err := fmt.Errorf("%s: stakeholders must configure "+
				"an emergency address", funcName)
			log.Errorf("%v", err)
			return nil, nil, err
		}
		dcfg.Stakeholder = &daemon.StakeholderConfig{
			Xpub:             xpub,
			EmergencyAddress: cfg.EmergencyAddress,
		}
	}

	if cfg.ManagerXpub != "" {
		xpub, err := parseXpub(cfg.ManagerXpub)
		if err != nil {
			log.Errorf("Invalid manager xpub: %v", err)
			return nil, nil, err
		}
		if !xpubInSet(xpub, dcfg.ManagersXpubs) {
			err := fmt.Errorf("our manager xpub is not part of " +
				"the configured manager set")
			log.Errorf("%v", err)
			return nil, nil, err
		}
		if len(cfg.CosignerServers) != len(cfg.CosignerNoiseKeys) {
			err := fmt.Errorf("%s: got %d cosigner servers but "+
				"%d cosigner noise keys", funcName,
				len(cfg.CosignerServers),
				len(cfg.CosignerNoiseKeys))
			log.Errorf("%v", err)
			return nil, nil, err
		}
		cosigners := make(
			[]daemon.CosignerConfig, len(cfg.CosignerServers),
		)
		for i, host := range cfg.CosignerServers {
			noiseKey, err := parseNoiseKey(cfg.CosignerNoiseKeys[i])
			if err != nil {
				log.Errorf("Invalid cosigner noise key: %v",
					err)
				return nil, nil, err
			}
			cosigners[i] = daemon.CosignerConfig{
				Host:     host,
				NoiseKey: noiseKey,
			}
		}
		dcfg.Manager = &daemon.ManagerConfig{
			Xpub:      xpub,
			Cosigners: cosigners,
		}
	}

	if cfg.CoordinatorHost == "" {
		err := fmt.Errorf("%s: a coordinator host is required",
			funcName)
		log.Errorf("%v", err)
		return nil, nil, err
	}
	dcfg.CoordinatorHost = cfg.CoordinatorHost

	dcfg.CoordinatorNoiseKey, err = parseNoiseKey(cfg.CoordinatorNoiseKey)
	if err != nil {
		log.Errorf("Invalid coordinator noise key: %v", err)
		return nil, nil, err
	}

	return &cfg, dcfg, nil
}

// xpubInSet reports whether the given xpub is a member of the set, compared
// by canonical encoding.
func xpubInSet(xpub *hdkeychain.ExtendedKey,
	set []*hdkeychain.ExtendedKey) bool {

	for _, member := range set {
		if member.String() == xpub.String() {
			return true
		}
	}
	return false
}
