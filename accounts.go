// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"

	"github.com/moov-io/uptime/pkg/kv"

	"github.com/go-kit/kit/log"
)

type accountHandler struct {
	logger  log.Logger
	records records
	hasher  passwordHasher
	tokens  tokenAuthority
}

// create stores a new account. The account's phone must not be taken.
func (h *accountHandler) create(ctx context.Context, req *newAccount) error {
	_, err := h.records.account(ctx, req.phone)
	switch {
	case err == nil:
		return errConflict("User with the same phone number exists")
	case err != kv.ErrNotFound:
		return errServer("Could not look up user", err)
	}

	hashed, err := h.hasher.Hash(req.password)
	if err != nil {
		return errServer("Could not hash provided password", err)
	}
	acct := &Account{
		FirstName:      req.firstName,
		LastName:       req.lastName,
		Phone:          req.phone,
		HashedPassword: hashed,
		TOSAgreement:   true,
	}
	if err := h.records.create(ctx, usersCollection, acct.Phone, acct); err != nil {
		if err == kv.ErrExists {
			return errConflict("User with the same phone number exists")
		}
		return errServer("Could not create the user", err)
	}
	return nil
}

func (h *accountHandler) read(ctx context.Context, phone, token string) (*Account, error) {
	if !h.tokens.verify(ctx, token, phone) {
		return nil, errMissingToken()
	}
	acct, err := h.records.account(ctx, phone)
	if err != nil {
		if err == kv.ErrNotFound {
			return nil, errNotFound("Requested user does not exist")
		}
		return nil, errServer("Could not read the user", err)
	}
	return acct, nil
}

// update merges the supplied fields onto the stored account. Fields left
// nil in upd keep their stored values.
func (h *accountHandler) update(ctx context.Context, phone string, upd *accountUpdate, token string) error {
	if !h.tokens.verify(ctx, token, phone) {
		return errMissingToken()
	}
	acct, err := h.records.account(ctx, phone)
	if err != nil {
		if err == kv.ErrNotFound {
			return errNotFound("Requested user does not exist")
		}
		return errServer("Could not read the user", err)
	}

	if upd.firstName != nil {
		acct.FirstName = *upd.firstName
	}
	if upd.lastName != nil {
		acct.LastName = *upd.lastName
	}
	if upd.password != nil {
		hashed, err := h.hasher.Hash(*upd.password)
		if err != nil {
			return errServer("Could not hash provided password", err)
		}
		acct.HashedPassword = hashed
	}

	if err := h.records.update(ctx, usersCollection, acct.Phone, acct); err != nil {
		return errServer("Could not update requested user", err)
	}
	return nil
}

// delete removes the account and then every check it owns. Each check
// delete is attempted even if an earlier one failed. The account stays
// deleted when any check can't be removed.
func (h *accountHandler) delete(ctx context.Context, phone, token string) error {
	if !h.tokens.verify(ctx, token, phone) {
		return errMissingToken()
	}
	acct, err := h.records.account(ctx, phone)
	if err != nil {
		if err == kv.ErrNotFound {
			return errNotFound("Could not find requested user")
		}
		return errServer("Could not read the user", err)
	}
	if err := h.records.delete(ctx, usersCollection, phone); err != nil {
		return errServer("Could not delete the user", err)
	}

	var failures int
	var lastErr error
	for _, id := range acct.Checks {
		if err := h.records.delete(ctx, checksCollection, id); err != nil {
			failures++
			lastErr = err
			h.logger.Log("accounts", fmt.Sprintf("phone=%s check=%s delete failed: %v", phone, id, err))
		}
	}
	if failures > 0 {
		cascadeFailures.With("resource", usersCollection).Add(float64(failures))
		return errPartialFailure(fmt.Sprintf("Errors encountered attempting to delete user checks (%d of %d failed)", failures, len(acct.Checks)), lastErr)
	}
	return nil
}

// POST /users
func (h *accountHandler) handlePost(ctx context.Context, req *request) (interface{}, error) {
	acct, err := parseNewAccount(req.payload)
	if err != nil {
		return nil, err
	}
	return nil, h.create(ctx, acct)
}

// GET /users?phone=...
func (h *accountHandler) handleGet(ctx context.Context, req *request) (interface{}, error) {
	phone, err := parsePhone(req.query.Get("phone"))
	if err != nil {
		return nil, err
	}
	acct, err := h.read(ctx, phone, req.token())
	if err != nil {
		return nil, err
	}
	return acct.view(), nil
}

// PUT /users {"phone": "...", "firstName": "...", ...}
func (h *accountHandler) handlePut(ctx context.Context, req *request) (interface{}, error) {
	phone, err := parsePhone(req.payload.str("phone"))
	if err != nil {
		return nil, err
	}
	upd, err := parseAccountUpdate(req.payload)
	if err != nil {
		return nil, err
	}
	return nil, h.update(ctx, phone, upd, req.token())
}

// DELETE /users?phone=...
func (h *accountHandler) handleDelete(ctx context.Context, req *request) (interface{}, error) {
	phone, err := parsePhone(req.query.Get("phone"))
	if err != nil {
		return nil, err
	}
	return nil, h.delete(ctx, phone, req.token())
}
