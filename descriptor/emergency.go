// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// EmergencyAddress is the deep-vault destination of the emergency
// transactions.  It is deliberately opaque: the address is agreed upon out
// of band by the stakeholders and only they know what it takes to spend
// from it, so the daemon merely validates that it is well formed for the
// configured network.
type EmergencyAddress struct {
	addr btcutil.Address
}

// ParseEmergencyAddress decodes and validates the configured emergency
// address against the given network.
func ParseEmergencyAddress(s string,
	net *chaincfg.Params) (EmergencyAddress, error) {

	addr, err := btcutil.DecodeAddress(s, net)
	if err != nil {
		return EmergencyAddress{}, fmt.Errorf("invalid emergency "+
			"address %q: %v", s, err)
	}
	if !addr.IsForNet(net) {
		return EmergencyAddress{}, fmt.Errorf("emergency address %q "+
			"is not for network %s", s, net.Name)
	}
	return EmergencyAddress{addr: addr}, nil
}

// Address returns the wrapped address.
func (e EmergencyAddress) Address() btcutil.Address {
	return e.addr
}

// String returns the address in its canonical encoded form.
func (e EmergencyAddress) String() string {
	return e.addr.EncodeAddress()
}
