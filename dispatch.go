// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
)

// handlerFunc serves one verb of a resource. A nil error means "200 OK"
// with the returned value (if any) as the JSON body.
type handlerFunc func(ctx context.Context, req *request) (interface{}, error)

// dispatchTable maps a resource name and HTTP verb onto its handler.
type dispatchTable map[string]map[string]handlerFunc

func newDispatchTable(accounts *accountHandler, tokens *tokenManager, checks *checkHandler) dispatchTable {
	return dispatchTable{
		usersCollection: {
			http.MethodPost:   accounts.handlePost,
			http.MethodGet:    accounts.handleGet,
			http.MethodPut:    accounts.handlePut,
			http.MethodDelete: accounts.handleDelete,
		},
		tokensCollection: {
			http.MethodPost:   tokens.handlePost,
			http.MethodGet:    tokens.handleGet,
			http.MethodPut:    tokens.handlePut,
			http.MethodDelete: tokens.handleDelete,
		},
		checksCollection: {
			http.MethodPost:   checks.handlePost,
			http.MethodGet:    checks.handleGet,
			http.MethodPut:    checks.handlePut,
			http.MethodDelete: checks.handleDelete,
		},
	}
}

func newRouter(logger log.Logger, table dispatchTable) *mux.Router {
	r := mux.NewRouter()
	r.Methods("GET").Path("/ping").HandlerFunc(pingRoute)
	for resource, verbs := range table {
		r.Path("/" + resource).HandlerFunc(dispatchRoute(logger, resource, verbs))
	}
	r.NotFoundHandler = http.HandlerFunc(notFoundRoute)
	return r
}

func dispatchRoute(logger log.Logger, resource string, verbs map[string]handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handler, ok := verbs[r.Method]
		if !ok {
			encodeError(w, logger, resource, errMethod(r.Method))
			return
		}
		req, err := readRequest(r)
		if err != nil {
			encodeError(w, logger, resource, err)
			return
		}

		body, err := handler(r.Context(), req)
		if err != nil {
			encodeError(w, logger, resource, err)
			return
		}
		if err := writeResponse(w, body); err != nil {
			logger.Log(resource, err)
		}
	}
}

func pingRoute(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func notFoundRoute(w http.ResponseWriter, r *http.Request) {
	encodeError(w, log.NewNopLogger(), "router", errNotFound("Not found"))
}
