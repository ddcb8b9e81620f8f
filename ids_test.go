// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"testing"
)

func TestIDs__randomString(t *testing.T) {
	seen := make(map[string]bool)
	for _, n := range []int{1, 10, 19, 20} {
		s, err := randomString(n)
		if err != nil {
			t.Fatal(err)
		}
		if len(s) != n {
			t.Errorf("length=%d got %q", n, s)
		}
		if n%2 == 0 {
			if _, err := hex.DecodeString(s); err != nil {
				t.Errorf("got %q: %v", s, err)
			}
		}
		if seen[s] && n >= 10 {
			t.Errorf("duplicate %q", s)
		}
		seen[s] = true
	}

	if _, err := randomString(0); err == nil {
		t.Error("expected error")
	}
}
