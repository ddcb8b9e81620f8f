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

type checkHandler struct {
	logger  log.Logger
	records records
	tokens  tokenAuthority

	// maxChecks is the most checks one account can create.
	maxChecks int
	newID     func(length int) (string, error)
}

// create stores a check owned by whoever token was issued to and appends
// its id onto the owner's account.
//
// The quota is read from the account before either write, so concurrent
// creates for one account can both pass it.
func (h *checkHandler) create(ctx context.Context, req *newCheck, token string) (*Check, error) {
	phone, ok := h.tokens.owner(ctx, token)
	if !ok {
		return nil, errMissingToken()
	}
	acct, err := h.records.account(ctx, phone)
	if err != nil {
		if err == kv.ErrNotFound {
			return nil, errMissingToken()
		}
		return nil, errServer("Could not read the user", err)
	}
	if len(acct.Checks) >= h.maxChecks {
		return nil, errQuota(fmt.Sprintf("User already has maximum number of checks - [ %d ]", h.maxChecks))
	}

	id, err := h.newID(idLength)
	if err != nil {
		return nil, errServer("Error creating check id", err)
	}
	check := &Check{
		ID:             id,
		UserPhone:      phone,
		Protocol:       req.protocol,
		URL:            req.url,
		Method:         req.method,
		SuccessCodes:   req.successCodes,
		TimeoutSeconds: req.timeoutSeconds,
	}
	if err := h.records.create(ctx, checksCollection, check.ID, check); err != nil {
		return nil, errServer("Could not create a check", err)
	}

	acct.Checks = append(acct.Checks, check.ID)
	if err := h.records.update(ctx, usersCollection, acct.Phone, acct); err != nil {
		// The check exists but its owner doesn't list it.
		h.logger.Log("checks", fmt.Sprintf("check=%s orphaned, phone=%s update failed: %v", check.ID, phone, err))
		cascadeFailures.With("resource", checksCollection).Add(1)
		return nil, errPartialFailure("Could not update the user with the new check", err)
	}
	return check, nil
}

// load reads the check at id and verifies token was issued to its owner.
func (h *checkHandler) load(ctx context.Context, id, token string) (*Check, error) {
	check, err := h.records.check(ctx, id)
	if err != nil {
		if err == kv.ErrNotFound {
			return nil, errNotFound(fmt.Sprintf("Check with id: %s does not exist", id))
		}
		return nil, errServer("Could not read the check", err)
	}
	if !h.tokens.verify(ctx, token, check.UserPhone) {
		return nil, errMissingToken()
	}
	return check, nil
}

func (h *checkHandler) read(ctx context.Context, id, token string) (*Check, error) {
	return h.load(ctx, id, token)
}

// update merges the non-nil fields of upd onto the stored check.
func (h *checkHandler) update(ctx context.Context, id string, upd *checkUpdate, token string) (*Check, error) {
	check, err := h.load(ctx, id, token)
	if err != nil {
		return nil, err
	}

	if upd.protocol != nil {
		check.Protocol = *upd.protocol
	}
	if upd.url != nil {
		check.URL = *upd.url
	}
	if upd.method != nil {
		check.Method = *upd.method
	}
	if upd.successCodes != nil {
		check.SuccessCodes = upd.successCodes
	}
	if upd.timeoutSeconds != nil {
		check.TimeoutSeconds = *upd.timeoutSeconds
	}

	if err := h.records.update(ctx, checksCollection, check.ID, check); err != nil {
		return nil, errServer(fmt.Sprintf("Could not update the check with id: %s", check.ID), err)
	}
	return check, nil
}

// delete removes the check and then its id from the owner's account. Once
// the check is gone any later failure is reported as a partial failure.
func (h *checkHandler) delete(ctx context.Context, id, token string) error {
	check, err := h.load(ctx, id, token)
	if err != nil {
		return err
	}
	if err := h.records.delete(ctx, checksCollection, check.ID); err != nil {
		return errServer("Could not delete the check", err)
	}

	acct, err := h.records.account(ctx, check.UserPhone)
	if err != nil {
		return h.cleanupFailed(check, "Could not find user who created the check", err)
	}
	if !acct.removeCheck(check.ID) {
		return h.cleanupFailed(check, "Could not find user check to remove", nil)
	}
	if err := h.records.update(ctx, usersCollection, acct.Phone, acct); err != nil {
		return h.cleanupFailed(check, "Could not update the user with new user data", err)
	}
	return nil
}

func (h *checkHandler) cleanupFailed(check *Check, msg string, err error) error {
	h.logger.Log("checks", fmt.Sprintf("check=%s deleted, phone=%s cleanup failed: %s: %v", check.ID, check.UserPhone, msg, err))
	cascadeFailures.With("resource", checksCollection).Add(1)
	return errPartialFailure(msg, err)
}

// POST /checks
func (h *checkHandler) handlePost(ctx context.Context, req *request) (interface{}, error) {
	check, err := parseNewCheck(req.payload)
	if err != nil {
		return nil, err
	}
	return h.create(ctx, check, req.token())
}

// GET /checks?id=...
func (h *checkHandler) handleGet(ctx context.Context, req *request) (interface{}, error) {
	id, err := parseID(req.query.Get("id"))
	if err != nil {
		return nil, err
	}
	return h.read(ctx, id, req.token())
}

// PUT /checks {"id": "...", "url": "...", ...}
func (h *checkHandler) handlePut(ctx context.Context, req *request) (interface{}, error) {
	id, err := parseID(req.payload.str("id"))
	if err != nil {
		return nil, err
	}
	upd, err := parseCheckUpdate(req.payload)
	if err != nil {
		return nil, err
	}
	return h.update(ctx, id, upd, req.token())
}

// DELETE /checks?id=...
func (h *checkHandler) handleDelete(ctx context.Context, req *request) (interface{}, error) {
	id, err := parseID(req.query.Get("id"))
	if err != nil {
		return nil, err
	}
	return nil, h.delete(ctx, id, req.token())
}
