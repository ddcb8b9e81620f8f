// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

const (
	// phoneLength is the number of digits in every account's phone.
	phoneLength = 10

	// idLength is the length of token and check ids.
	idLength = 20

	minTimeoutSeconds = 1
	maxTimeoutSeconds = 5
)

var (
	checkProtocols = []string{"http", "https"}
	checkMethods   = []string{"post", "get", "put", "delete"}
)

// payload is a decoded JSON request body. Fields are left raw so each
// parse function can decide what's acceptable.
type payload map[string]json.RawMessage

// has returns true if key was sent with a non-null value.
func (p payload) has(key string) bool {
	raw, ok := p[key]
	return ok && strings.TrimSpace(string(raw)) != "null"
}

// str returns the string under key, or "" if missing or not a string.
func (p payload) str(key string) string {
	raw, ok := p[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func invalidField(field string) error {
	return errValidation(fmt.Sprintf("Missing or invalid field: %s", field))
}

func parsePhone(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) != phoneLength {
		return "", invalidField("phone")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", invalidField("phone")
		}
	}
	return s, nil
}

func parseID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) != idLength {
		return "", invalidField("id")
	}
	return s, nil
}

// parseName reads firstName or lastName.
func parseName(p payload, field string) (string, error) {
	s := strings.TrimSpace(p.str(field))
	if s == "" {
		return "", invalidField(field)
	}
	return s, nil
}

func parsePassword(p payload) (string, error) {
	s := strings.TrimSpace(p.str("password"))
	if s == "" {
		return "", invalidField("password")
	}
	return s, nil
}

// parseTrue reads a boolean field which must be sent as true.
func parseTrue(p payload, field string) error {
	var v bool
	raw, ok := p[field]
	if !ok || json.Unmarshal(raw, &v) != nil || !v {
		return invalidField(field)
	}
	return nil
}

func parseOneOf(p payload, field string, options []string) (string, error) {
	s := p.str(field)
	for i := range options {
		if s == options[i] {
			return s, nil
		}
	}
	return "", errValidation(fmt.Sprintf("Missing or invalid field: %s must be one of %s", field, strings.Join(options, ", ")))
}

func parseProtocol(p payload) (string, error) {
	return parseOneOf(p, "protocol", checkProtocols)
}

func parseMethod(p payload) (string, error) {
	return parseOneOf(p, "method", checkMethods)
}

func parseURL(p payload) (string, error) {
	s := strings.TrimSpace(p.str("url"))
	if s == "" {
		return "", invalidField("url")
	}
	return s, nil
}

func parseSuccessCodes(p payload) ([]int, error) {
	var codes []int
	raw, ok := p["successCodes"]
	if !ok || json.Unmarshal(raw, &codes) != nil || len(codes) == 0 {
		return nil, invalidField("successCodes")
	}
	return codes, nil
}

func parseTimeoutSeconds(p payload) (int, error) {
	var v float64
	raw, ok := p["timeoutSeconds"]
	if !ok || json.Unmarshal(raw, &v) != nil || v != math.Trunc(v) || v < minTimeoutSeconds || v > maxTimeoutSeconds {
		return 0, errValidation(fmt.Sprintf("Missing or invalid field: timeoutSeconds must be a whole number from %d to %d", minTimeoutSeconds, maxTimeoutSeconds))
	}
	return int(v), nil
}

type newAccount struct {
	firstName, lastName string
	phone               string
	password            string
}

func parseNewAccount(p payload) (*newAccount, error) {
	var (
		acct newAccount
		err  error
	)
	if acct.firstName, err = parseName(p, "firstName"); err != nil {
		return nil, err
	}
	if acct.lastName, err = parseName(p, "lastName"); err != nil {
		return nil, err
	}
	if acct.phone, err = parsePhone(p.str("phone")); err != nil {
		return nil, err
	}
	if acct.password, err = parsePassword(p); err != nil {
		return nil, err
	}
	if err := parseTrue(p, "tosAgreement"); err != nil {
		return nil, err
	}
	return &acct, nil
}

// accountUpdate holds the fields of a sparse account update. nil fields
// were not supplied.
type accountUpdate struct {
	firstName, lastName *string
	password            *string
}

func (u accountUpdate) empty() bool {
	return u.firstName == nil && u.lastName == nil && u.password == nil
}

func parseAccountUpdate(p payload) (*accountUpdate, error) {
	var u accountUpdate
	for _, field := range []string{"firstName", "lastName"} {
		if !p.has(field) {
			continue
		}
		v, err := parseName(p, field)
		if err != nil {
			return nil, err
		}
		if field == "firstName" {
			u.firstName = &v
		} else {
			u.lastName = &v
		}
	}
	if p.has("password") {
		v, err := parsePassword(p)
		if err != nil {
			return nil, err
		}
		u.password = &v
	}
	if u.empty() {
		return nil, errValidation("Missing fields to update: firstName, lastName or password")
	}
	return &u, nil
}

type newCheck struct {
	protocol       string
	url            string
	method         string
	successCodes   []int
	timeoutSeconds int
}

func parseNewCheck(p payload) (*newCheck, error) {
	var (
		c   newCheck
		err error
	)
	if c.protocol, err = parseProtocol(p); err != nil {
		return nil, err
	}
	if c.url, err = parseURL(p); err != nil {
		return nil, err
	}
	if c.method, err = parseMethod(p); err != nil {
		return nil, err
	}
	if c.successCodes, err = parseSuccessCodes(p); err != nil {
		return nil, err
	}
	if c.timeoutSeconds, err = parseTimeoutSeconds(p); err != nil {
		return nil, err
	}
	return &c, nil
}

// checkUpdate holds the fields of a sparse check update. Unset fields
// are nil.
type checkUpdate struct {
	protocol       *string
	url            *string
	method         *string
	successCodes   []int
	timeoutSeconds *int
}

func (u checkUpdate) empty() bool {
	return u.protocol == nil && u.url == nil && u.method == nil && u.successCodes == nil && u.timeoutSeconds == nil
}

func parseCheckUpdate(p payload) (*checkUpdate, error) {
	var u checkUpdate
	if p.has("protocol") {
		v, err := parseProtocol(p)
		if err != nil {
			return nil, err
		}
		u.protocol = &v
	}
	if p.has("url") {
		v, err := parseURL(p)
		if err != nil {
			return nil, err
		}
		u.url = &v
	}
	if p.has("method") {
		v, err := parseMethod(p)
		if err != nil {
			return nil, err
		}
		u.method = &v
	}
	if p.has("successCodes") {
		v, err := parseSuccessCodes(p)
		if err != nil {
			return nil, err
		}
		u.successCodes = v
	}
	if p.has("timeoutSeconds") {
		v, err := parseTimeoutSeconds(p)
		if err != nil {
			return nil, err
		}
		u.timeoutSeconds = &v
	}
	if u.empty() {
		return nil, errValidation("Missing fields to update: protocol, url, method, successCodes or timeoutSeconds")
	}
	return &u, nil
}
