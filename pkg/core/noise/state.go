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

// Package noise implements Noise_NK_25519_ChaChaPoly_SHA256 (spec.md
// §4.10) as the initiator only — the shape an onera-core client always
// plays talking to a fixed TEE responder. There is no teacher analogue
// (the teacher speaks HPKE-Base, not Noise); this is built the way the
// teacher builds its own HPKE sender/responder split — explicit h/ck
// chaining state, zeroized ephemeral secrets, a Split() into two
// directional CipherStates — see pkg/agent/hpke/common.go and
// pkg/agent/session.SecureSession's directional-key derivation for the
// pattern this mirrors.
package noise

import (
	"crypto/ecdh"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"github.com/onera-app/onera-core/pkg/core/crypto"
	"golang.org/x/crypto/chacha20poly1305"
)

// protocolName is the exact Noise protocol string hashed into the
// initial h value.
const protocolName = "Noise_NK_25519_ChaChaPoly_SHA256"

// symmetricState carries h (running transcript hash) and ck (chaining
// key) through the handshake, plus the handshake AEAD key/counter once
// MixKey has run at least once.
type symmetricState struct {
	h  [32]byte
	ck [32]byte
	k  []byte // nil until the first MixKey
	n  uint64
}

func newSymmetricState() *symmetricState {
	s := &symmetricState{}
	if len(protocolName) <= 32 {
		copy(s.h[:], protocolName)
	} else {
		s.h = sha256.Sum256([]byte(protocolName))
	}
	s.ck = s.h
	return s
}

func (s *symmetricState) mixHash(data []byte) {
	h := sha256.New()
	h.Write(s.h[:])
	h.Write(data)
	copy(s.h[:], h.Sum(nil))
}

// mixKey implements Noise's HKDF(chaining_key, input_key_material, 2):
// temp_key = HMAC-SHA256(ck, ikm); output1 = HMAC-SHA256(temp_key, 0x01);
// output2 = HMAC-SHA256(temp_key, output1 || 0x02). This is the
// canonical Noise KDF, distinct from (and not interchangeable with)
// golang.org/x/crypto/hkdf's RFC 5869 Expand/Extract labeling.
func (s *symmetricState) mixKey(ikm []byte) {
	tempKey := hmacSum(s.ck[:], ikm)
	output1 := hmacSum(tempKey, []byte{0x01})
	output2 := hmacSum(tempKey, append(append([]byte(nil), output1...), 0x02))

	copy(s.ck[:], output1)
	if s.k == nil {
		s.k = make([]byte, 32)
	}
	copy(s.k, output2)
	s.n = 0

	crypto.Zeroize(tempKey)
	crypto.Zeroize(output1)
	crypto.Zeroize(output2)
}

func hmacSum(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// encryptAndHash seals plaintext under the current handshake key (if
// any) using h as associated data, then mixes the ciphertext into h.
func (s *symmetricState) encryptAndHash(plaintext []byte) ([]byte, error) {
	if s.k == nil {
		s.mixHash(plaintext)
		return append([]byte(nil), plaintext...), nil
	}
	aead, err := chacha20poly1305.New(s.k)
	if err != nil {
		return nil, fmt.Errorf("noise: init handshake aead: %w", err)
	}
	ciphertext := aead.Seal(nil, handshakeNonce(s.n), plaintext, s.h[:])
	s.n++
	s.mixHash(ciphertext)
	return ciphertext, nil
}

// decryptAndHash mirrors encryptAndHash on the receive side.
func (s *symmetricState) decryptAndHash(ciphertext []byte) ([]byte, error) {
	if s.k == nil {
		s.mixHash(ciphertext)
		return append([]byte(nil), ciphertext...), nil
	}
	aead, err := chacha20poly1305.New(s.k)
	if err != nil {
		return nil, fmt.Errorf("noise: init handshake aead: %w", err)
	}
	plaintext, err := aead.Open(nil, handshakeNonce(s.n), ciphertext, s.h[:])
	if err != nil {
		return nil, fmt.Errorf("noise: handshake decrypt failed")
	}
	s.n++
	s.mixHash(ciphertext)
	return plaintext, nil
}

// split derives the two directional transport CipherStates from the
// final chaining key, per Noise's Split().
func (s *symmetricState) split() (send, recv *CipherState) {
	tempKey := hmacSum(s.ck[:], nil)
	output1 := hmacSum(tempKey, []byte{0x01})
	output2 := hmacSum(tempKey, append(append([]byte(nil), output1...), 0x02))
	crypto.Zeroize(tempKey)

	send = &CipherState{key: output1}
	recv = &CipherState{key: output2}
	return send, recv
}

func (s *symmetricState) zeroize() {
	crypto.Zeroize(s.ck[:])
	crypto.Zeroize(s.h[:])
	if s.k != nil {
		crypto.Zeroize(s.k)
		s.k = nil
	}
}

// handshakeNonce builds a 12-byte nonce for the handshake AEAD, same
// canonical construction transport frames use (see CipherState).
func handshakeNonce(n uint64) []byte { return encodeNonce(n) }

func encodeNonce(n uint64) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	for i := 0; i < 8; i++ {
		nonce[4+i] = byte(n >> (8 * i))
	}
	return nonce
}

// curve is the single X25519 curve instance state.go's DH calls share.
var curve = ecdh.X25519()
