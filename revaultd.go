// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"strconv"

	"github.com/revault/revaultd/daemon"
)

func main() {
	// Use all processor cores.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Work around defer not working after os.Exit.
	if err := revaultdMain(); err != nil {
		os.Exit(1)
	}
}

// revaultdMain is a work-around main function that is required since deferred
// functions (such as log flushing) are not called with calls to os.Exit.
// Instead, main runs this function and checks for a non-nil error, at which
// point any defers have already run, and if the error is non-nil, the program
// can be exited with an error exit status.
func revaultdMain() error {
	// Load configuration and parse command line.  This also initializes
	// logging and configures it accordingly.
	cfg, dcfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	// Show version at startup.
	log.Infof("Version %s", version())

	if cfg.Profile != "" {
		go func() {
			listenAddr := net.JoinHostPort("", cfg.Profile)
			log.Infof("Profile server listening on %s", listenAddr)
			profileRedirect := http.RedirectHandler("/debug/pprof",
				http.StatusSeeOther)
			http.Handle("/", profileRedirect)
			log.Errorf("%v", http.ListenAndServe(listenAddr, nil))
		}()
	}

	// Build the global daemon state: derive the vault descriptors, prepare
	// the per-network data directory, and bootstrap the static Noise
	// identity.
	revaultd, err := daemon.FromConfig(dcfg)
	if err != nil {
		log.Errorf("Unable to initialize daemon state: %v", err)
		return err
	}

	if err := writePidFile(revaultd.PidFile()); err != nil {
		log.Errorf("Unable to write pid file: %v", err)
		return err
	}
	addInterruptHandler(func() {
		if err := os.Remove(revaultd.PidFile()); err != nil {
			log.Warnf("Unable to remove pid file: %v", err)
		}
	})

	log.Infof("Running on %s, using data directory %s", revaultd.Net.Name,
		revaultd.DataDir)
	log.Infof("Our static Noise public key: %x", revaultd.NoisePubKey())
	log.Debugf("Deposit descriptor: %s", revaultd.DepositDescriptor)
	log.Debugf("Unvault descriptor: %s", revaultd.UnvaultDescriptor)
	log.Debugf("CPFP descriptor: %s", revaultd.CpfpDescriptor)
	if revaultd.IsStakeholder() {
		emergencyAddr, _ := revaultd.EmergencyAddress()
		log.Debugf("Emergency address: %s", emergencyAddr)
	}

	// Wait for interrupt signal.  The interrupt handlers run in LIFO
	// order, so the pid file is removed last.
	<-interruptHandlersDone
	log.Info("Shutdown complete")
	return nil
}

// writePidFile records the process id in the given file so process
// supervisors and the stop command can find the running daemon.
func writePidFile(path string) error {
	pid := strconv.Itoa(os.Getpid())
	return os.WriteFile(path, []byte(fmt.Sprintf("%s\n", pid)), 0644)
}
