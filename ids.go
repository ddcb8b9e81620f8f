// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// randomString returns length lowercase hex characters from crypto/rand.
// Do no assume anything about these ID's other than they are strings.
func randomString(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid id length %d", length)
	}
	bs := make([]byte, (length+1)/2)
	n, err := rand.Read(bs)
	if err != nil || n == 0 {
		return "", fmt.Errorf("generating id: n=%d, err=%v", n, err)
	}
	return hex.EncodeToString(bs)[:length], nil
}
