// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/moov-io/uptime/pkg/kv"
)

const (
	usersCollection  = "users"
	tokensCollection = "tokens"
	checksCollection = "checks"
)

// Account is a user keyed by phone. Checks lists the ids of the checks it
// owns in creation order.
type Account struct {
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Phone          string   `json:"phone"`
	HashedPassword string   `json:"hashedPassword"`
	TOSAgreement   bool     `json:"tosAgreement"`
	Checks         []string `json:"checks,omitempty"`
}

// accountView is what callers see of an Account.
type accountView struct {
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	Phone        string   `json:"phone"`
	TOSAgreement bool     `json:"tosAgreement"`
	Checks       []string `json:"checks"`
}

func (a *Account) view() accountView {
	checks := a.Checks
	if checks == nil {
		checks = []string{}
	}
	return accountView{
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Phone:        a.Phone,
		TOSAgreement: a.TOSAgreement,
		Checks:       checks,
	}
}

// removeCheck drops the first occurrence of id from a.Checks and reports
// if one was found.
func (a *Account) removeCheck(id string) bool {
	for i := range a.Checks {
		if a.Checks[i] == id {
			a.Checks = append(a.Checks[:i], a.Checks[i+1:]...)
			return true
		}
	}
	return false
}

// Token is a session credential. Expires is in unix milliseconds.
type Token struct {
	ID      string `json:"id"`
	Phone   string `json:"phone"`
	Expires int64  `json:"expires"`
}

// active returns true while Expires is strictly after now.
func (t *Token) active(now time.Time) bool {
	return t.Expires > unixMillis(now)
}

func unixMillis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// Check is an endpoint monitored on behalf of the account at UserPhone.
type Check struct {
	ID             string `json:"id"`
	UserPhone      string `json:"userPhone"`
	Protocol       string `json:"protocol"`
	URL            string `json:"url"`
	Method         string `json:"method"`
	SuccessCodes   []int  `json:"successCodes"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// records stores JSON encoded Accounts, Tokens and Checks in a kv.Store.
type records struct {
	store kv.Store
}

func (r records) read(ctx context.Context, collection, key string, v interface{}) error {
	bs, err := r.store.Read(ctx, collection, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(bs, v); err != nil {
		return fmt.Errorf("problem decoding %s/%s: %v", collection, key, err)
	}
	return nil
}

func (r records) create(ctx context.Context, collection, key string, v interface{}) error {
	bs, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("problem encoding %s/%s: %v", collection, key, err)
	}
	return r.store.Create(ctx, collection, key, bs)
}

func (r records) update(ctx context.Context, collection, key string, v interface{}) error {
	bs, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("problem encoding %s/%s: %v", collection, key, err)
	}
	return r.store.Update(ctx, collection, key, bs)
}

func (r records) delete(ctx context.Context, collection, key string) error {
	return r.store.Delete(ctx, collection, key)
}

func (r records) account(ctx context.Context, phone string) (*Account, error) {
	var a Account
	if err := r.read(ctx, usersCollection, phone, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r records) token(ctx context.Context, id string) (*Token, error) {
	var t Token
	if err := r.read(ctx, tokensCollection, id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r records) check(ctx context.Context, id string) (*Check, error) {
	var c Check
	if err := r.read(ctx, checksCollection, id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
