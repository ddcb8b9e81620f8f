// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/moov-io/uptime/pkg/kv"
	"github.com/moov-io/uptime/pkg/password"

	"github.com/go-kit/kit/log"
)

const (
	testPhone    = "5551234567"
	testPassword = "password"
)

var errTestStorage = errors.New("storage unavailable")

// faultyStore wraps a kv.Store and fails selected operations. Every call
// is recorded as "op collection/key".
type faultyStore struct {
	kv.Store

	mu    sync.Mutex
	fails map[string]error
	calls []string
}

// failOn makes op ("read", "create", "update" or "delete") fail for
// collection and key. An empty key fails every key in collection.
func (s *faultyStore) failOn(op, collection, key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[op+" "+collection+"/"+key] = err
}

func (s *faultyStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails = make(map[string]error)
	s.calls = nil
}

// count returns how many recorded calls start with prefix.
func (s *faultyStore) count(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.calls {
		if strings.HasPrefix(s.calls[i], prefix) {
			n++
		}
	}
	return n
}

func (s *faultyStore) record(op, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op+" "+collection+"/"+key)
	if err, ok := s.fails[op+" "+collection+"/"+key]; ok {
		return err
	}
	if err, ok := s.fails[op+" "+collection+"/"]; ok {
		return err
	}
	return nil
}

func (s *faultyStore) Read(ctx context.Context, collection, key string) ([]byte, error) {
	if err := s.record("read", collection, key); err != nil {
		return nil, err
	}
	return s.Store.Read(ctx, collection, key)
}

func (s *faultyStore) Create(ctx context.Context, collection, key string, data []byte) error {
	if err := s.record("create", collection, key); err != nil {
		return err
	}
	return s.Store.Create(ctx, collection, key, data)
}

func (s *faultyStore) Update(ctx context.Context, collection, key string, data []byte) error {
	if err := s.record("update", collection, key); err != nil {
		return err
	}
	return s.Store.Update(ctx, collection, key, data)
}

func (s *faultyStore) Delete(ctx context.Context, collection, key string) error {
	if err := s.record("delete", collection, key); err != nil {
		return err
	}
	return s.Store.Delete(ctx, collection, key)
}

// fakeHasher avoids argon2's cost in tests.
type fakeHasher struct {
	err error
}

func (h fakeHasher) Hash(plain string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + plain, nil
}

func (h fakeHasher) Compare(hashed, plain string) error {
	if hashed != "hashed:"+plain {
		return password.ErrMismatch
	}
	return nil
}

type testService struct {
	store *faultyStore
	now   time.Time

	tokens   *tokenManager
	accounts *accountHandler
	checks   *checkHandler
	router   http.Handler
}

func newTestService(t *testing.T) *testService {
	t.Helper()

	db, err := kv.OpenBunt(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	svc := &testService{
		store: &faultyStore{Store: db, fails: make(map[string]error)},
		now:   time.Date(2018, time.October, 1, 12, 0, 0, 0, time.UTC),
	}
	logger := log.NewNopLogger()
	recs := records{store: svc.store}

	svc.tokens = &tokenManager{
		logger:  logger,
		records: recs,
		hasher:  fakeHasher{},
		ttl:     time.Hour,
		now:     func() time.Time { return svc.now },
		newID:   randomString,
	}
	svc.accounts = &accountHandler{
		logger:  logger,
		records: recs,
		hasher:  fakeHasher{},
		tokens:  svc.tokens,
	}
	svc.checks = &checkHandler{
		logger:    logger,
		records:   recs,
		tokens:    svc.tokens,
		maxChecks: 5,
		newID:     randomString,
	}
	svc.router = newRouter(logger, newDispatchTable(svc.accounts, svc.tokens, svc.checks))
	return svc
}

func (svc *testService) signup(t *testing.T, phone string) {
	t.Helper()

	err := svc.accounts.create(context.Background(), &newAccount{
		firstName: "Jane",
		lastName:  "Doe",
		phone:     phone,
		password:  testPassword,
	})
	if err != nil {
		t.Fatal(err)
	}
}

// login returns a new token id for phone.
func (svc *testService) login(t *testing.T, phone string) string {
	t.Helper()

	tok, err := svc.tokens.issue(context.Background(), phone, testPassword)
	if err != nil {
		t.Fatal(err)
	}
	return tok.ID
}

func (svc *testService) addCheck(t *testing.T, token, url string) *Check {
	t.Helper()

	check, err := svc.checks.create(context.Background(), &newCheck{
		protocol:       "https",
		url:            url,
		method:         "get",
		successCodes:   []int{200, 201},
		timeoutSeconds: 3,
	}, token)
	if err != nil {
		t.Fatal(err)
	}
	return check
}

func (svc *testService) account(t *testing.T, phone string) *Account {
	t.Helper()

	acct, err := records{store: svc.store}.account(context.Background(), phone)
	if err != nil {
		t.Fatalf("reading account %s: %v", phone, err)
	}
	return acct
}

// do sends a request through the router. An empty token sends no header.
func (svc *testService) do(method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}
	w := httptest.NewRecorder()
	svc.router.ServeHTTP(w, req)
	return w
}

// expectKind fails t unless err is an apiError of kind.
func expectKind(t *testing.T, err error, kind errorKind) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if k := kindOf(err); k != kind {
		t.Fatalf("expected %s error, got %s: %v", kind, k, err)
	}
}
