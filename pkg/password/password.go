// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package password hashes and compares user passwords with Argon2id.
//
// Hashes are encoded as
//   $argon2id$v=19$m=16384,t=2,p=2$<salt>$<hash>
// with salt and hash in unpadded standard base64.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    uint32 = 2
	argonMemory  uint32 = 16 * 1024
	argonThreads uint8  = 2
	argonKeyLen  uint32 = 32
	saltLen             = 16

	prefix = "$argon2id$v=19$m=16384,t=2,p=2$"
)

var (
	// ErrMismatch is returned by Compare when the password doesn't match.
	ErrMismatch = errors.New("password: hash and password do not match")

	// ErrMalformed is returned by Compare for hashes this package didn't produce.
	ErrMalformed = errors.New("password: malformed hash")
)

// Argon2id satisfies the hasher used by account and token handlers.
type Argon2id struct{}

func (Argon2id) Hash(plain string) (string, error) {
	return Hash(plain)
}

func (Argon2id) Compare(hashed, plain string) error {
	return Compare(hashed, plain)
}

// Hash returns an encoded Argon2id hash of plain using a random salt.
func Hash(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("password: empty password")
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: reading salt: %v", err)
	}
	key := argon2.IDKey([]byte(plain), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return prefix + base64.RawStdEncoding.EncodeToString(salt) + "$" + base64.RawStdEncoding.EncodeToString(key), nil
}

// Compare checks plain against a hash produced by Hash.
func Compare(hashed, plain string) error {
	parts := strings.Split(hashed, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return ErrMalformed
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ErrMalformed
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return ErrMalformed
	}

	computed := argon2.IDKey([]byte(plain), salt, argonTime, argonMemory, argonThreads, uint32(len(expected)))
	if subtle.ConstantTimeCompare(computed, expected) != 1 {
		return ErrMismatch
	}
	return nil
}
