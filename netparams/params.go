// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netparams

import "github.com/btcsuite/btcd/chaincfg"

// Params is used to group parameters for various networks such as the main
// network and test networks.
type Params struct {
	*chaincfg.Params

	// CoordinatorPort is the default port the sig-exchange coordinator
	// listens on for this network.
	CoordinatorPort string
}

// MainNetParams contains parameters specific to running revaultd on the main
// network (wire.MainNet).
var MainNetParams = Params{
	Params:          &chaincfg.MainNetParams,
	CoordinatorPort: "8383",
}

// TestNet3Params contains parameters specific to running revaultd on the
// test network (version 3) (wire.TestNet3).
var TestNet3Params = Params{
	Params:          &chaincfg.TestNet3Params,
	CoordinatorPort: "18383",
}

// RegressionNetParams contains parameters specific to running revaultd
// against a regression test bitcoind (wire.TestNet).
var RegressionNetParams = Params{
	Params:          &chaincfg.RegressionNetParams,
	CoordinatorPort: "28383",
}

// SimNetParams contains parameters specific to the simulation test network
// (wire.SimNet).
var SimNetParams = Params{
	Params:          &chaincfg.SimNetParams,
	CoordinatorPort: "38383",
}
