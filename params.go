// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import "github.com/revault/revaultd/netparams"

// activeNet is the chain parameters revaultd is currently running on.  It is
// set once by loadConfig and read-only afterwards.
var activeNet = &netparams.MainNetParams
