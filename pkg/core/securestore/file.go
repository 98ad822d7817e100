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

package securestore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/onera-app/onera-core/pkg/core/crypto"
)

// fileEntry is the on-disk shape of one FileStore entry: the wire AEAD
// construction (XSalsa20-Poly1305), not AES-GCM, to stay consistent with
// every other persisted envelope in this system.
type fileEntry struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FileStore is a reference Store backend that encrypts each entry with a
// key derived from a caller-supplied device passphrase via Argon2id, one
// JSON file per key under basePath. It stands in for a platform Keychain
// in tests and CLI demos; it is not itself a hardware-backed store.
type FileStore struct {
	basePath   string
	passphrase []byte
	mu         sync.RWMutex
}

// NewFileStore creates (if needed) basePath and returns a FileStore whose
// entries are all sealed under a key derived from passphrase.
func NewFileStore(basePath string, passphrase []byte) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0700); err != nil {
		return nil, fmt.Errorf("securestore: create directory: %w", err)
	}
	return &FileStore{basePath: basePath, passphrase: append([]byte(nil), passphrase...)}, nil
}

func (f *FileStore) Put(key string, value []byte, _ Policy) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	salt, err := crypto.Random(16)
	if err != nil {
		return err
	}
	kek := crypto.KDFPassword(f.passphrase, salt, crypto.DefaultArgon2Params)
	defer crypto.Zeroize(kek)

	ciphertext, nonce, err := crypto.AEADSeal(kek, value)
	if err != nil {
		return err
	}

	entry := fileEntry{
		Version:    1,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		UpdatedAt:  time.Now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("securestore: marshal entry: %w", err)
	}
	return os.WriteFile(f.entryPath(key), data, 0600)
}

func (f *FileStore) Get(key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.entryPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("securestore: read entry: %w", err)
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("securestore: unmarshal entry: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(entry.Salt)
	if err != nil {
		return nil, fmt.Errorf("securestore: decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(entry.Nonce)
	if err != nil {
		return nil, fmt.Errorf("securestore: decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(entry.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("securestore: decode ciphertext: %w", err)
	}

	kek := crypto.KDFPassword(f.passphrase, salt, crypto.DefaultArgon2Params)
	defer crypto.Zeroize(kek)

	return crypto.AEADOpen(kek, ciphertext, nonce)
}

func (f *FileStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.entryPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("securestore: delete entry: %w", err)
	}
	return nil
}

func (f *FileStore) Exists(key string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, err := os.Stat(f.entryPath(key))
	return err == nil
}

func (f *FileStore) ClearAll() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		return fmt.Errorf("securestore: list directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(f.basePath, e.Name())); err != nil {
			return fmt.Errorf("securestore: remove entry: %w", err)
		}
	}
	return nil
}

func (f *FileStore) entryPath(key string) string {
	safe := filepath.Base(key)
	return filepath.Join(f.basePath, safe+".json")
}
