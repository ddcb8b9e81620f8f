// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net/http"
)

type errorKind int

const (
	kindValidation errorKind = iota
	kindAuth
	kindNotFound
	kindConflict
	kindQuota
	kindPartialFailure
	kindServer
	kindMethod
)

func (k errorKind) String() string {
	switch k {
	case kindValidation:
		return "validation"
	case kindAuth:
		return "auth"
	case kindNotFound:
		return "not-found"
	case kindConflict:
		return "conflict"
	case kindQuota:
		return "quota"
	case kindPartialFailure:
		return "partial-failure"
	case kindServer:
		return "server"
	case kindMethod:
		return "method"
	}
	return "unknown"
}

// apiError is returned from every handler. message is shown to the caller,
// err is only ever logged.
type apiError struct {
	kind    errorKind
	message string
	err     error
}

func (e *apiError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

func (e *apiError) Unwrap() error {
	return e.err
}

// status maps an error kind onto the HTTP status clients have always seen.
func (e *apiError) status() int {
	switch e.kind {
	case kindValidation, kindConflict, kindQuota:
		return http.StatusBadRequest
	case kindAuth:
		return http.StatusForbidden
	case kindNotFound:
		return http.StatusNotFound
	case kindMethod:
		return http.StatusMethodNotAllowed
	}
	return http.StatusInternalServerError
}

// kindOf returns the errorKind of err, treating anything that isn't an
// apiError as a server error.
func kindOf(err error) errorKind {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.kind
	}
	return kindServer
}

func errValidation(msg string) error {
	return &apiError{kind: kindValidation, message: msg}
}

func errAuth(msg string) error {
	return &apiError{kind: kindAuth, message: msg}
}

func errNotFound(msg string) error {
	return &apiError{kind: kindNotFound, message: msg}
}

func errConflict(msg string) error {
	return &apiError{kind: kindConflict, message: msg}
}

func errQuota(msg string) error {
	return &apiError{kind: kindQuota, message: msg}
}

// errPartialFailure reports that the primary mutation committed but a
// follow up write (cascade or back-reference) did not.
func errPartialFailure(msg string, err error) error {
	return &apiError{kind: kindPartialFailure, message: msg, err: err}
}

func errServer(msg string, err error) error {
	return &apiError{kind: kindServer, message: msg, err: err}
}

func errMethod(method string) error {
	return &apiError{kind: kindMethod, message: fmt.Sprintf("Method %s is not supported", method)}
}

// errMissingToken is shared by every handler which requires a token.
func errMissingToken() error {
	return errAuth("Missing token in headers or token is invalid.")
}
