// Copyright (c) 2026 The Revault developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package noisekey manages the daemon's long-lived static Noise identity:
// a Curve25519 keypair whose secret half lives in a single owner-read-only
// file under the data directory.  The same key is reused across restarts so
// that remote parties (coordinator, cosigners) can authenticate us.
package noisekey

import (
	"crypto/rand"
	"errors"
	"io"
	"os"

	"golang.org/x/crypto/curve25519"

	"github.com/revault/revaultd/internal/zero"
)

// KeySize is the size in bytes of both halves of the static keypair.
const KeySize = 32

// SecretFileMode is the file mode the secret key file is created with.
// Owner read-only: the key is never rewritten in place, rotation is done by
// replacing the file.
const SecretFileMode = 0400

// ErrCorruptKey describes a secret key file whose content is all zeroes.
// An all-zero scalar is never produced by key generation, so loading one
// means the file was corrupted or truncated-and-padded by something else.
var ErrCorruptKey = errors.New("noise secret key is all zeroes")

// PrivateKey is the static Curve25519 secret scalar.
type PrivateKey [KeySize]byte

// PublicKey is the public half of the static identity, shared with remote
// parties out of band.
type PublicKey [KeySize]byte

// PubKey derives the public key by multiplying the secret scalar with the
// curve base point.  The derivation is deterministic and cheap, so it is
// recomputed on every call rather than cached; a key rotated on disk and
// reloaded can therefore never disagree with its public half.
func (k *PrivateKey) PubKey() PublicKey {
	var pub, priv [KeySize]byte
	priv = *k
	curve25519.ScalarBaseMult(&pub, &priv)
	zero.Bytea32(&priv)
	return PublicKey(pub)
}

// LoadOrCreate returns the static private key stored at path, generating and
// persisting a fresh one on first run.
//
// A fresh key is drawn from crypto/rand and written to a file created with
// O_EXCL and SecretFileMode: if the file appears between the existence check
// and the create, the create fails rather than silently replacing key
// material.  An existing file must contain exactly KeySize bytes.
func LoadOrCreate(path string) (*PrivateKey, error) {
	var priv PrivateKey

	exists, err := fileExists(path)
	if err != nil {
		return nil, makeError(ErrReadingKey, err)
	}

	if !exists {
		if _, err := io.ReadFull(rand.Reader, priv[:]); err != nil {
			return nil, makeError(ErrWritingKey, err)
		}

		// Created read-only, opened write-only for the initial write.
		fd, err := os.OpenFile(
			path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, SecretFileMode,
		)
		if err != nil {
			return nil, makeError(ErrWritingKey, err)
		}
		if _, err := fd.Write(priv[:]); err != nil {
			fd.Close()
			return nil, makeError(ErrWritingKey, err)
		}
		if err := fd.Close(); err != nil {
			return nil, makeError(ErrWritingKey, err)
		}
	} else {
		fd, err := os.Open(path)
		if err != nil {
			return nil, makeError(ErrReadingKey, err)
		}
		defer fd.Close()

		// Exactly KeySize bytes, no more, no less.
		n, err := io.ReadFull(fd, priv[:])
		if err != nil {
			zero.Bytes(priv[:n])
			return nil, makeError(ErrInvalidKeySize, err)
		}
		var trailing [1]byte
		if _, err := fd.Read(trailing[:]); err != io.EOF {
			zero.Bytea32((*[KeySize]byte)(&priv))
			return nil, makeError(ErrInvalidKeySize, nil)
		}
	}

	if priv == (PrivateKey{}) {
		return nil, ErrCorruptKey
	}

	return &priv, nil
}

// Zero wipes the secret scalar from memory.  Callers should invoke it when
// the key goes out of use; note it cannot prevent the OS from having swapped
// the page out beforehand.
func (k *PrivateKey) Zero() {
	zero.Bytea32((*[KeySize]byte)(k))
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
