// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package noise

import (
	"fmt"

	"github.com/onera-app/onera-core/pkg/core/crypto"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrNonceExhausted is returned once a CipherState's counter would wrap,
// forcing connection teardown per spec.md §4.10.
var ErrNonceExhausted = fmt.Errorf("noise: nonce counter exhausted")

// CipherState is one post-handshake directional transport cipher:
// {key(32 B), n(u64)} per spec.md §3. Nonce counters never reverse.
type CipherState struct {
	key []byte
	n   uint64
}

// Encrypt seals plaintext with no additional data, using the canonical
// 12-byte little-endian Noise nonce built from the current counter,
// then advances the counter. This is deliberately NOT secretbox's
// 24-byte nonce format (spec.md §9 open question).
func (c *CipherState) Encrypt(plaintext []byte) ([]byte, error) {
	if c.n == ^uint64(0) {
		return nil, ErrNonceExhausted
	}
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return nil, fmt.Errorf("noise: init transport aead: %w", err)
	}
	ciphertext := aead.Seal(nil, encodeNonce(c.n), plaintext, nil)
	c.n++
	return ciphertext, nil
}

// Decrypt opens a frame encrypted with Encrypt at the matching counter
// value. Any failure is fatal for the session per spec.md §7.
func (c *CipherState) Decrypt(ciphertext []byte) ([]byte, error) {
	if c.n == ^uint64(0) {
		return nil, ErrNonceExhausted
	}
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return nil, fmt.Errorf("noise: init transport aead: %w", err)
	}
	plaintext, err := aead.Open(nil, encodeNonce(c.n), ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("noise: transport decrypt failed")
	}
	c.n++
	return plaintext, nil
}

// Nonce returns the current counter value, primarily for tests asserting
// property 8 (nonce n cannot decrypt at n±1).
func (c *CipherState) Nonce() uint64 { return c.n }

// Zeroize destroys the cipher key. Call on connection teardown or
// cancellation (spec.md §4.11).
func (c *CipherState) Zeroize() {
	crypto.Zeroize(c.key)
	c.key = nil
}
