// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package kv

import (
	"context"
	"fmt"

	"github.com/tidwall/buntdb"
)

// OpenBunt returns a Store backed by BuntDB (https://github.com/tidwall/buntdb).
// A path of ":memory:" keeps every record in memory.
func OpenBunt(path string) (*BuntStore, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("problem opening buntdb %s: %v", path, err)
	}
	return &BuntStore{
		db: db,
	}, nil
}

type BuntStore struct {
	db *buntdb.DB
}

func (bs *BuntStore) Close() error {
	return bs.db.Close()
}

func (bs *BuntStore) Ping() error {
	return bs.db.View(func(tx *buntdb.Tx) error {
		_, err := tx.Len()
		return err
	})
}

func (bs *BuntStore) Read(ctx context.Context, collection, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out string
	err := bs.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(recordKey(collection, key))
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		if err == buntdb.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("problem reading %s/%s: %v", collection, key, err)
	}
	return []byte(out), nil
}

func (bs *BuntStore) Create(ctx context.Context, collection, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := recordKey(collection, key)
	err := bs.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(k); err == nil {
			return ErrExists
		} else if err != buntdb.ErrNotFound {
			return err
		}
		_, _, err := tx.Set(k, string(data), nil)
		return err
	})
	if err != nil {
		if err == ErrExists {
			return err
		}
		return fmt.Errorf("problem creating %s/%s: %v", collection, key, err)
	}
	return nil
}

func (bs *BuntStore) Update(ctx context.Context, collection, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := recordKey(collection, key)
	err := bs.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(k); err != nil {
			return err
		}
		_, _, err := tx.Set(k, string(data), nil)
		return err
	})
	if err != nil {
		if err == buntdb.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("problem updating %s/%s: %v", collection, key, err)
	}
	return nil
}

func (bs *BuntStore) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := bs.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(recordKey(collection, key))
		return err
	})
	if err != nil {
		if err == buntdb.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("problem deleting %s/%s: %v", collection, key, err)
	}
	return nil
}
