// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package kv

import (
	"context"
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

var (
	flagDebug = flag.Bool("debug", false, "Create db inside project dir for tests")
)

type testStore struct {
	Store

	// temp dir used
	dir string
}

func (ts *testStore) cleanup() error {
	if ts == nil {
		return nil
	}
	err := ts.Close()
	if ts.dir != "" {
		os.RemoveAll(ts.dir)
	}
	return err
}

// tempPath returns where a test database should be written. When -debug is
// passed the file is kept next to the tests.
func tempPath(t *testing.T, filename string) (string, string) {
	t.Helper()

	if *flagDebug {
		os.Remove(filename)
		return filename, ""
	}
	dir, err := ioutil.TempDir("", "uptime-kv")
	if err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, filename), dir
}

// testStoreContract runs the behavior every Store must share.
func testStoreContract(t *testing.T, s Store) {
	t.Helper()

	ctx := context.Background()

	if err := s.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}

	// read nothing
	if _, err := s.Read(ctx, "users", "5551234567"); err != ErrNotFound {
		t.Errorf("got %#v", err)
	}
	if err := s.Update(ctx, "users", "5551234567", []byte(`{}`)); err != ErrNotFound {
		t.Errorf("got %#v", err)
	}
	if err := s.Delete(ctx, "users", "5551234567"); err != ErrNotFound {
		t.Errorf("got %#v", err)
	}

	// create something
	if err := s.Create(ctx, "users", "5551234567", []byte(`{"phone":"5551234567"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(ctx, "users", "5551234567", []byte(`{"phone":"other"}`)); err != ErrExists {
		t.Errorf("got %#v", err)
	}
	bs, err := s.Read(ctx, "users", "5551234567")
	if err != nil {
		t.Fatal(err)
	}
	if v := string(bs); v != `{"phone":"5551234567"}` {
		t.Errorf("got %s", v)
	}

	// same key in another collection is separate
	if _, err := s.Read(ctx, "checks", "5551234567"); err != ErrNotFound {
		t.Errorf("got %#v", err)
	}

	// update
	if err := s.Update(ctx, "users", "5551234567", []byte(`{"phone":"5551234567","firstName":"Jane"}`)); err != nil {
		t.Fatal(err)
	}
	bs, err = s.Read(ctx, "users", "5551234567")
	if err != nil {
		t.Fatal(err)
	}
	if v := string(bs); v != `{"phone":"5551234567","firstName":"Jane"}` {
		t.Errorf("got %s", v)
	}

	// delete
	if err := s.Delete(ctx, "users", "5551234567"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Read(ctx, "users", "5551234567"); err != ErrNotFound {
		t.Errorf("got %#v", err)
	}

	// canceled contexts don't reach the engine
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.Create(canceled, "users", "5550000000", []byte(`{}`)); err == nil {
		t.Error("expected error")
	}
}
