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
	"crypto/rand"
	"fmt"

	"github.com/onera-app/onera-core/pkg/core/crypto"
)

// Initiator drives one Noise_NK handshake as the initiator (spec.md
// §4.10): it knows the responder's static public key in advance and
// never authenticates its own static key.
type Initiator struct {
	state *symmetricState

	rs      []byte // responder static public key, 32 bytes
	ephPriv *ecdhPrivateKey
	ephPub  []byte

	done bool
}

// ecdhPrivateKey is a thin indirection over crypto/ecdh's private key
// type so state.go's zeroize path has a single concrete shape to clear.
type ecdhPrivateKey struct {
	bytes []byte
}

// NewInitiator begins a handshake against a responder whose 32-byte
// X25519 static public key is rs (typically the AttestationVerifier's
// output).
func NewInitiator(rs []byte) (*Initiator, error) {
	if len(rs) != 32 {
		return nil, fmt.Errorf("noise: responder static key must be 32 bytes")
	}
	state := newSymmetricState()
	state.mixHash(nil) // prologue is always empty
	state.mixHash(rs)  // pre-message: responder's known static key

	return &Initiator{state: state, rs: append([]byte(nil), rs...)}, nil
}

// WriteMessage1 generates a fresh ephemeral key pair and returns the
// first handshake message: e ‖ EncryptAndHash(∅) (spec.md §4.10).
func (i *Initiator) WriteMessage1() ([]byte, error) {
	if i.ephPriv != nil {
		return nil, fmt.Errorf("noise: handshake already started")
	}

	priv, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("noise: generate ephemeral: %w", err)
	}
	i.ephPriv = &ecdhPrivateKey{bytes: priv.Bytes()}
	i.ephPub = priv.PublicKey().Bytes()

	i.state.mixHash(i.ephPub)

	rsPub, err := curve.NewPublicKey(i.rs)
	if err != nil {
		return nil, fmt.Errorf("noise: invalid responder static key: %w", err)
	}
	es, err := priv.ECDH(rsPub)
	if err != nil {
		return nil, fmt.Errorf("noise: es dh: %w", err)
	}
	i.state.mixKey(es)
	crypto.Zeroize(es)

	payload, err := i.state.encryptAndHash(nil)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(i.ephPub)+len(payload))
	out = append(out, i.ephPub...)
	out = append(out, payload...)
	return out, nil
}

// ReadMessage2 consumes the responder's reply: re ‖ encrypted_payload.
// It mixes in the responder's ephemeral key, computes ee, and decrypts
// the (possibly empty) payload.
func (i *Initiator) ReadMessage2(message []byte) ([]byte, error) {
	if i.ephPriv == nil {
		return nil, fmt.Errorf("noise: WriteMessage1 not yet called")
	}
	if i.done {
		return nil, fmt.Errorf("noise: handshake already complete")
	}
	if len(message) < 32 {
		return nil, fmt.Errorf("noise: message 2 too short")
	}

	re := message[:32]
	encryptedPayload := message[32:]

	i.state.mixHash(re)

	rePub, err := curve.NewPublicKey(re)
	if err != nil {
		return nil, fmt.Errorf("noise: invalid responder ephemeral key: %w", err)
	}
	priv, err := curve.NewPrivateKey(i.ephPriv.bytes)
	if err != nil {
		return nil, fmt.Errorf("noise: reconstruct ephemeral: %w", err)
	}
	ee, err := priv.ECDH(rePub)
	if err != nil {
		return nil, fmt.Errorf("noise: ee dh: %w", err)
	}
	i.state.mixKey(ee)
	crypto.Zeroize(ee)

	payload, err := i.state.decryptAndHash(encryptedPayload)
	if err != nil {
		return nil, err
	}

	i.done = true
	return payload, nil
}

// Split finalizes the handshake, returning the initiator's send and
// receive CipherStates, and zeroizes the ephemeral secret and
// intermediate handshake state (spec.md §4.10 invariants).
func (i *Initiator) Split() (send, recv *CipherState, err error) {
	if !i.done {
		return nil, nil, fmt.Errorf("noise: handshake not complete")
	}
	send, recv = i.state.split()
	i.zeroize()
	return send, recv, nil
}

func (i *Initiator) zeroize() {
	i.state.zeroize()
	if i.ephPriv != nil {
		crypto.Zeroize(i.ephPriv.bytes)
		i.ephPriv = nil
	}
}
