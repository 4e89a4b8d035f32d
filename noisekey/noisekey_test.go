// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package noisekey

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLoadOrCreateRoundTrip exercises the first-run and restart paths: the
// first call must create the secret file with owner-only permissions and
// non-zero content, the second must read the exact same key back and derive
// the same public key.
func TestLoadOrCreateRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "noise_secret")

	priv1, err := LoadOrCreate(path)
	require.NoError(t, err)
	require.NotEqual(t, PrivateKey{}, *priv1)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, KeySize, fi.Size())
	if runtime.GOOS != "windows" {
		require.EqualValues(t, SecretFileMode, fi.Mode().Perm())
	}

	priv2, err := LoadOrCreate(path)
	require.NoError(t, err)
	require.Equal(t, *priv1, *priv2)
	require.Equal(t, priv1.PubKey(), priv2.PubKey())
}

// TestPubKeyDeterministic asserts public key derivation is a pure function
// of the private scalar.
func TestPubKeyDeterministic(t *testing.T) {
	t.Parallel()

	var priv PrivateKey
	for i := range priv {
		priv[i] = byte(i + 1)
	}
	require.Equal(t, priv.PubKey(), priv.PubKey())

	var other PrivateKey
	copy(other[:], priv[:])
	other[0] ^= 0xff
	require.NotEqual(t, priv.PubKey(), other.PubKey())
}

func TestLoadInvalidKeySize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		content []byte
	}{{
		name:    "empty",
		content: nil,
	}, {
		name:    "short",
		content: make([]byte, KeySize-1),
	}, {
		name:    "long",
		content: make([]byte, KeySize+1),
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "noise_secret")
			// Non-zero fill so the size check, not the zero-key
			// check, is what trips.
			for i := range tc.content {
				tc.content[i] = 0xab
			}
			require.NoError(t, os.WriteFile(path, tc.content, 0600))

			_, err := LoadOrCreate(path)
			var kerr Error
			require.ErrorAs(t, err, &kerr)
			require.Equal(t, ErrInvalidKeySize, kerr.Kind)
		})
	}
}

func TestLoadAllZeroKeyIsCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "noise_secret")
	require.NoError(t, os.WriteFile(path, make([]byte, KeySize), 0600))

	_, err := LoadOrCreate(path)
	require.True(t, errors.Is(err, ErrCorruptKey))
}

// TestCreateDoesNotOverwrite asserts that creation is exclusive: a file that
// exists but cannot be read as a key must never be replaced with fresh key
// material.
func TestCreateDoesNotOverwrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "noise_secret")
	content := []byte("not a key")
	require.NoError(t, os.WriteFile(path, content, 0600))

	_, err := LoadOrCreate(path)
	require.Error(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, content, got)
}
