// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer returns an admin Server which will bind to addr.
func NewServer(addr string) *Server {
	timeout, _ := time.ParseDuration("45s")
	s := &Server{
		liveChecks: make(map[string]func() error),
	}
	s.svc = &http.Server{
		Addr:         addr,
		Handler:      s.handler(),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		IdleTimeout:  timeout,
	}
	return s
}

// Server represents a holder around a net/http Server which
// is used for admin endpoints. (i.e. metrics, liveness)
type Server struct {
	svc *http.Server

	mu         sync.RWMutex
	liveChecks map[string]func() error
}

func (s *Server) BindAddress() string {
	return s.svc.Addr
}

// AddLivenessCheck registers f to be called on each GET /live. Any non-nil
// error fails the liveness check.
func (s *Server) AddLivenessCheck(name string, f func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveChecks[name] = f
}

// Listen brings up the admin HTTP service. This call blocks.
func (s *Server) Listen() error {
	if s == nil || s.svc == nil {
		return nil
	}
	err := s.svc.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown unbinds the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.svc == nil {
		return nil
	}
	return s.svc.Shutdown(ctx)
}

func (s *Server) handler() http.Handler {
	r := mux.NewRouter()

	// prometheus metrics
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())

	r.Methods("GET").Path("/live").HandlerFunc(s.liveRoute)

	// add all pprof handlers we've configured
	addPprofRoutes(r)

	return r
}

// liveRoute runs each liveness check and returns their results as JSON.
// A single failure returns "503 Service Unavailable".
func (s *Server) liveRoute(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	names := make([]string, 0, len(s.liveChecks))
	for name := range s.liveChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	status := http.StatusOK
	for _, name := range names {
		if err := s.liveChecks[name](); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			results[name] = "good"
		}
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(results)
}
