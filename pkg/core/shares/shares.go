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

// Package shares implements the master key's 3-of-3 XOR split. This is
// NOT Shamir secret sharing: all three shares are required to
// reconstruct, threshold = N. Do not describe it otherwise (spec.md §9
// open question).
package shares

import (
	"fmt"

	"github.com/onera-app/onera-core/pkg/core/crypto"
)

// Shares holds the three 32-byte XOR shares of a master key.
type Shares struct {
	Device   []byte
	Auth     []byte
	Recovery []byte
}

// Split produces (device, auth, recovery) such that
// device ⊕ auth ⊕ recovery == master. device and auth are drawn fresh
// from the CSPRNG; recovery is computed so the invariant holds.
func Split(master []byte) (*Shares, error) {
	if len(master) != crypto.KeySize {
		return nil, &crypto.Error{Kind: crypto.KindInvalidShareLength, Op: "split", Err: fmt.Errorf("master must be %d bytes", crypto.KeySize)}
	}

	device, err := crypto.Random(crypto.KeySize)
	if err != nil {
		return nil, err
	}
	auth, err := crypto.Random(crypto.KeySize)
	if err != nil {
		return nil, err
	}

	deviceAuth, err := crypto.XOR(device, auth)
	if err != nil {
		return nil, err
	}
	recovery, err := crypto.XOR(deviceAuth, master)
	if err != nil {
		return nil, err
	}
	crypto.Zeroize(deviceAuth)

	return &Shares{Device: device, Auth: auth, Recovery: recovery}, nil
}

// Reconstruct recovers the master key from its three shares, each of
// which must be exactly 32 bytes.
func Reconstruct(device, auth, recovery []byte) ([]byte, error) {
	for _, share := range [][]byte{device, auth, recovery} {
		if len(share) != crypto.KeySize {
			return nil, &crypto.Error{Kind: crypto.KindInvalidShareLength, Op: "reconstruct", Err: fmt.Errorf("share must be %d bytes", crypto.KeySize)}
		}
	}

	deviceAuth, err := crypto.XOR(device, auth)
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(deviceAuth)

	master, err := crypto.XOR(deviceAuth, recovery)
	if err != nil {
		return nil, err
	}
	return master, nil
}
