// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moov-io/uptime/pkg/kv"
	"github.com/moov-io/uptime/pkg/password"

	"github.com/go-kit/kit/log"
)

// passwordHasher produces and checks the hashedPassword stored on accounts.
type passwordHasher interface {
	Hash(plain string) (string, error)

	// Compare returns nil if plain matches hashed, password.ErrMismatch if
	// it doesn't and any other error if hashed can't be checked.
	Compare(hashed, plain string) error
}

// tokenAuthority answers authorization questions for the other handlers.
type tokenAuthority interface {
	// verify returns true if id is an active token issued to phone.
	verify(ctx context.Context, id, phone string) bool

	// owner returns the phone an active token was issued to.
	owner(ctx context.Context, id string) (string, bool)
}

type tokenManager struct {
	logger  log.Logger
	records records
	hasher  passwordHasher

	ttl   time.Duration
	now   func() time.Time
	newID func(length int) (string, error)
}

// issue checks password against the account at phone and stores a new
// token which expires after tm.ttl.
func (tm *tokenManager) issue(ctx context.Context, phone, pass string) (*Token, error) {
	acct, err := tm.records.account(ctx, phone)
	if err != nil {
		if err == kv.ErrNotFound {
			authFailures.With("method", "password").Add(1)
			return nil, errNotFound(fmt.Sprintf("Could not find user with phone number: %s", phone))
		}
		return nil, errServer("Could not read user", err)
	}

	if err := tm.hasher.Compare(acct.HashedPassword, pass); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			authFailures.With("method", "password").Add(1)
			return nil, errAuth("Passwords did not match")
		}
		return nil, errServer("Could not check password", err)
	}
	authSuccesses.With("method", "password").Add(1)

	id, err := tm.newID(idLength)
	if err != nil {
		return nil, errServer("Error creating token id", err)
	}
	tok := &Token{
		ID:      id,
		Phone:   phone,
		Expires: unixMillis(tm.now().Add(tm.ttl)),
	}
	if err := tm.records.create(ctx, tokensCollection, tok.ID, tok); err != nil {
		return nil, errServer("Could not create a new token", err)
	}
	tokenGenerations.With("method", "password").Add(1)
	return tok, nil
}

// lookup returns the stored token, expired or not.
func (tm *tokenManager) lookup(ctx context.Context, id string) (*Token, error) {
	tok, err := tm.records.token(ctx, id)
	if err != nil {
		if err == kv.ErrNotFound {
			return nil, errNotFound("Requested token does not exist")
		}
		return nil, errServer("Could not read token", err)
	}
	return tok, nil
}

// extend pushes an active token's expiry out to now plus tm.ttl. Expired
// tokens are left untouched.
func (tm *tokenManager) extend(ctx context.Context, id string) (*Token, error) {
	tok, err := tm.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	now := tm.now()
	if !tok.active(now) {
		return nil, errValidation("Token has expired and can not be extended")
	}
	tok.Expires = unixMillis(now.Add(tm.ttl))
	if err := tm.records.update(ctx, tokensCollection, tok.ID, tok); err != nil {
		if err == kv.ErrNotFound {
			return nil, errNotFound("Requested token does not exist")
		}
		return nil, errServer("Could not update token with new expiration time", err)
	}
	return tok, nil
}

func (tm *tokenManager) revoke(ctx context.Context, id string) error {
	if err := tm.records.delete(ctx, tokensCollection, id); err != nil {
		if err == kv.ErrNotFound {
			return errNotFound("Requested token does not exist")
		}
		return errServer(fmt.Sprintf("Could not delete token with id: %s", id), err)
	}
	authInactivations.With("method", "token").Add(1)
	return nil
}

func (tm *tokenManager) verify(ctx context.Context, id, phone string) bool {
	if id == "" || phone == "" {
		authFailures.With("method", "token").Add(1)
		return false
	}
	tok, err := tm.records.token(ctx, id)
	if err != nil || tok.Phone != phone || !tok.active(tm.now()) {
		if err != nil && err != kv.ErrNotFound {
			tm.logger.Log("tokens", fmt.Sprintf("verify failed reading token: %v", err))
		}
		authFailures.With("method", "token").Add(1)
		return false
	}
	authSuccesses.With("method", "token").Add(1)
	return true
}

func (tm *tokenManager) owner(ctx context.Context, id string) (string, bool) {
	if id == "" {
		return "", false
	}
	tok, err := tm.records.token(ctx, id)
	if err != nil || !tok.active(tm.now()) {
		authFailures.With("method", "token").Add(1)
		return "", false
	}
	authSuccesses.With("method", "token").Add(1)
	return tok.Phone, true
}

// POST /tokens {"phone": "...", "password": "..."}
func (tm *tokenManager) handlePost(ctx context.Context, req *request) (interface{}, error) {
	phone, err := parsePhone(req.payload.str("phone"))
	if err != nil {
		return nil, err
	}
	pass, err := parsePassword(req.payload)
	if err != nil {
		return nil, err
	}
	return tm.issue(ctx, phone, pass)
}

// GET /tokens?id=...
func (tm *tokenManager) handleGet(ctx context.Context, req *request) (interface{}, error) {
	id, err := parseID(req.query.Get("id"))
	if err != nil {
		return nil, err
	}
	return tm.lookup(ctx, id)
}

// PUT /tokens {"id": "...", "extend": true}
func (tm *tokenManager) handlePut(ctx context.Context, req *request) (interface{}, error) {
	id, err := parseID(req.payload.str("id"))
	if err != nil {
		return nil, err
	}
	if err := parseTrue(req.payload, "extend"); err != nil {
		return nil, err
	}
	if _, err := tm.extend(ctx, id); err != nil {
		return nil, err
	}
	return nil, nil
}

// DELETE /tokens?id=...
func (tm *tokenManager) handleDelete(ctx context.Context, req *request) (interface{}, error) {
	id, err := parseID(req.query.Get("id"))
	if err != nil {
		return nil, err
	}
	return nil, tm.revoke(ctx, id)
}
