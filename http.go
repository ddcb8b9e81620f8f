// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-kit/kit/log"
)

const (
	// maxReadBytes is the number of bytes to read
	// from a request body. It's intended to be used
	// with an io.LimitReader
	maxReadBytes = 1 * 1024 * 1024

	// tokenHeader carries the caller's token id.
	tokenHeader = "token"
)

// request is an incoming HTTP request reduced to what handlers need.
type request struct {
	method  string
	path    string
	query   url.Values
	headers http.Header
	payload payload
}

func (r *request) token() string {
	return strings.TrimSpace(r.headers.Get(tokenHeader))
}

// read consumes an io.Reader (wrapping with io.LimitReader)
// and returns either the resulting bytes or a non-nil error.
func read(r io.Reader) ([]byte, error) {
	r = io.LimitReader(r, maxReadBytes)
	return ioutil.ReadAll(r)
}

// readRequest parses r into a request. An empty body is an empty payload,
// anything else must be a JSON object.
func readRequest(r *http.Request) (*request, error) {
	req := &request{
		method:  r.Method,
		path:    strings.Trim(r.URL.Path, "/"),
		query:   r.URL.Query(),
		headers: r.Header,
		payload: payload{},
	}
	if r.Body == nil {
		return req, nil
	}
	bs, err := read(r.Body)
	if err != nil {
		return nil, errServer("Could not read request body", err)
	}
	if len(bytes.TrimSpace(bs)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(bs, &req.payload); err != nil {
		return nil, errValidation("Request body must be a JSON object")
	}
	if req.payload == nil {
		req.payload = payload{}
	}
	return req, nil
}

// writeResponse JSON encodes body (if non-nil) with a "200 OK".
func writeResponse(w http.ResponseWriter, body interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if body == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(body)
}

// encodeError JSON encodes the supplied error as {"Error": "..."}
//
// Only the message of an apiError is written, underlying errors
// are logged under component.
func encodeError(w http.ResponseWriter, logger log.Logger, component string, err error) {
	if err == nil {
		return
	}
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		apiErr = &apiError{kind: kindServer, message: "Internal error", err: err}
	}
	status := apiErr.status()
	if status == http.StatusInternalServerError {
		internalServerErrors.Add(1)
		logger.Log(component, apiErr.Error())
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"Error": apiErr.message,
	})
}
