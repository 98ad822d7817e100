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

// Package securestore defines the abstract device-local, access-controlled
// key/value capability the rest of onera-core builds on, plus reference
// backends (in-memory, encrypted file) for tests and demos. Production
// platform backends (iOS Keychain, Android Keystore) live outside this
// repository and satisfy Store the same way a platform would.
package securestore

import (
	"errors"
)

// Policy constrains how an entry may later be read.
type Policy int

const (
	// PolicyUnlockedThisDeviceOnly is the only policy this system uses:
	// the entry is non-transferable and unreadable while the device is
	// locked.
	PolicyUnlockedThisDeviceOnly Policy = iota
)

// ErrNotFound is returned by Get when key has no entry.
var ErrNotFound = errors.New("securestore: not found")

// Store is the device-local encrypted key/value capability spec.md §4.2
// defines. Implementations MUST encrypt entries at rest and bind them to
// the device (non-transferable backups).
type Store interface {
	Put(key string, value []byte, policy Policy) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	Exists(key string) bool
	ClearAll() error
}
