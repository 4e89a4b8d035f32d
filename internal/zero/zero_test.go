// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package zero

import (
	"bytes"
	"testing"
)

func TestBytes(t *testing.T) {
	t.Parallel()

	b := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	Bytes(b)
	if !bytes.Equal(b, make([]byte, len(b))) {
		t.Fatalf("Bytes failed to zero slice: %x", b)
	}
}

func TestBytea32(t *testing.T) {
	t.Parallel()

	var b [32]byte
	for i := range b {
		b[i] = byte(i + 1)
	}
	Bytea32(&b)
	if b != ([32]byte{}) {
		t.Fatalf("Bytea32 failed to zero array: %x", b)
	}
}
