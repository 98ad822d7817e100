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

// Package vault implements CredentialVault (spec.md §4.8): LLM-provider
// API keys sealed under the master key, one row per provider, opened
// into a move-once wrapper the caller must not retain.
package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/onera-app/onera-core/pkg/core/crypto"
	"github.com/onera-app/onera-core/pkg/core/transport"
)

// Row is one provider's sealed API key as stored server-side.
type Row struct {
	Provider   string
	Ciphertext []byte
	Nonce      []byte
	CreatedAt  time.Time
}

// DecryptedCredential is a move-once wrapper around a decrypted API
// key: Close zeroizes the buffer, and the LLM adapter this is handed to
// MUST NOT retain it beyond a single request (spec.md §4.8).
type DecryptedCredential struct {
	Provider string
	key      []byte
	closed   bool
}

// Bytes returns the decrypted key. Panics if called after Close.
func (d *DecryptedCredential) Bytes() []byte {
	if d.closed {
		panic("vault: use of DecryptedCredential after Close")
	}
	return d.key
}

// Close zeroizes the decrypted key. Idempotent.
func (d *DecryptedCredential) Close() {
	if d.closed {
		return
	}
	crypto.Zeroize(d.key)
	d.closed = true
}

// MasterKeyFunc supplies the currently-unlocked master key, or
// (nil, false) when the session is locked. Vault is given this instead
// of a raw key so it always reads through SecureSession's current state.
type MasterKeyFunc func() ([]byte, bool)

// ErrLocked is returned by every Vault operation when the session is
// locked.
var ErrLocked = fmt.Errorf("vault: session locked")

// Vault implements CredentialVault against a BlobStore collaborator,
// sealing/opening each row exactly as a chat title is sealed (spec.md
// §4.8), reusing pkg/core/crypto directly rather than duplicating the
// AEAD call sites.
type Vault struct {
	store     transport.BlobStore
	masterKey MasterKeyFunc
}

// New constructs a Vault backed by store, reading the master key
// through masterKey on every operation.
func New(store transport.BlobStore, masterKey MasterKeyFunc) *Vault {
	return &Vault{store: store, masterKey: masterKey}
}

// List returns the provider names with stored credentials, without
// decrypting anything.
func (v *Vault) List(ctx context.Context, token string) ([]string, error) {
	summaries, err := v.store.List(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("vault: list: %w", err)
	}
	providers := make([]string, len(summaries))
	for i, s := range summaries {
		providers[i] = s.ID
	}
	return providers, nil
}

// Store seals key under the master key and upserts the row for provider.
func (v *Vault) Store(ctx context.Context, token, provider string, key []byte) error {
	master, ok := v.masterKey()
	if !ok {
		return ErrLocked
	}

	ciphertext, nonce, err := crypto.AEADSeal(master, key)
	if err != nil {
		return fmt.Errorf("vault: seal credential: %w", err)
	}

	record := &transport.EncryptedRecord{
		ID: provider,
		Fields: map[string]string{
			"ciphertext": encodeB64(ciphertext),
			"nonce":      encodeB64(nonce),
		},
	}
	if _, err := v.store.Create(ctx, token, record); err != nil {
		if err := v.store.Update(ctx, token, record); err != nil {
			return fmt.Errorf("vault: store credential: %w", err)
		}
	}
	return nil
}

// Fetch retrieves and decrypts provider's credential. The returned
// wrapper MUST be closed by the caller; the LLM adapter it is forwarded
// to must not retain it past a single request.
func (v *Vault) Fetch(ctx context.Context, token, provider string) (*DecryptedCredential, error) {
	master, ok := v.masterKey()
	if !ok {
		return nil, ErrLocked
	}

	record, err := v.store.Get(ctx, token, provider)
	if err != nil {
		return nil, fmt.Errorf("vault: fetch: %w", err)
	}

	ciphertext, err := decodeB64(record.Fields["ciphertext"])
	if err != nil {
		return nil, fmt.Errorf("vault: decode ciphertext: %w", err)
	}
	nonce, err := decodeB64(record.Fields["nonce"])
	if err != nil {
		return nil, fmt.Errorf("vault: decode nonce: %w", err)
	}

	key, err := crypto.AEADOpen(master, ciphertext, nonce)
	if err != nil {
		return nil, fmt.Errorf("vault: could not decrypt credential")
	}

	return &DecryptedCredential{Provider: provider, key: key}, nil
}

// Delete removes provider's stored credential.
func (v *Vault) Delete(ctx context.Context, token, provider string) error {
	if err := v.store.Delete(ctx, token, provider); err != nil {
		return fmt.Errorf("vault: delete: %w", err)
	}
	return nil
}
