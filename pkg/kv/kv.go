// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package kv holds the record stores used to persist users, tokens and
// checks. Records are opaque byte slices addressed by collection and key.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no record exists for a collection and key.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned by Create when the collection and key is taken.
	ErrExists = errors.New("already exists")
)

// Store is implemented by each storage engine.
//
// Individual calls are serialized per key but a Store offers no atomicity
// across keys. Callers performing multi-step writes must handle partial
// failure themselves.
type Store interface {
	// Read returns the record stored at collection and key, or ErrNotFound.
	Read(ctx context.Context, collection, key string) ([]byte, error)

	// Create writes a new record. ErrExists is returned if one is present.
	Create(ctx context.Context, collection, key string, data []byte) error

	// Update replaces an existing record. ErrNotFound is returned if
	// nothing is stored at collection and key.
	Update(ctx context.Context, collection, key string, data []byte) error

	// Delete removes a record, returning ErrNotFound if it's missing.
	Delete(ctx context.Context, collection, key string) error

	// Ping reports if the underlying engine is usable.
	Ping() error

	Close() error
}

func recordKey(collection, key string) string {
	return collection + ":" + key
}
