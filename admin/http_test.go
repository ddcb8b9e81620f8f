// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAdmin__live(t *testing.T) {
	svc := NewServer(":0")

	// nothing registered
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/live", nil)
	svc.handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("got %d", w.Code)
	}

	svc.AddLivenessCheck("storage", func() error { return nil })
	svc.AddLivenessCheck("other", func() error { return errors.New("bad") })

	w = httptest.NewRecorder()
	svc.handler().ServeHTTP(w, httptest.NewRequest("GET", "/live", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("got %d", w.Code)
	}
	var results map[string]string
	if err := json.NewDecoder(w.Body).Decode(&results); err != nil {
		t.Fatal(err)
	}
	if results["storage"] != "good" || results["other"] != "bad" {
		t.Errorf("got %#v", results)
	}
}

func TestAdmin__metrics(t *testing.T) {
	svc := NewServer(":0")
	if v := svc.BindAddress(); v != ":0" {
		t.Errorf("got %s", v)
	}

	w := httptest.NewRecorder()
	svc.handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("got %d", w.Code)
	}
}

func TestAdmin__pprofProfileEnabled(t *testing.T) {
	cases := []struct {
		env      string
		zero     bool
		expected bool
	}{
		{"", true, true},
		{"", false, false},
		{"yes", false, true},
		{"YES", false, true},
		{"no", true, false},
		{"maybe", true, true},
	}
	for i := range cases {
		t.Setenv("PPROF_HEAP", cases[i].env)
		if v := pprofProfileEnabled("heap", cases[i].zero); v != cases[i].expected {
			t.Errorf("env=%q zero=%v got %v", cases[i].env, cases[i].zero, v)
		}
	}
}
