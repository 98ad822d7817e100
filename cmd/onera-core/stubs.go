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

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/onera-app/onera-core/pkg/core/transport"
)

// The collaborators below are in-memory stand-ins for the server-side
// RPC surfaces and platform capabilities spec.md §6 declares. A real
// deployment replaces every one of these with a client for onera's API
// and the host platform's Keychain/WebAuthn bridge; this CLI exists to
// exercise the setup -> unlock -> seal-chat -> lock flow end to end
// without one.

type memKeyShareStore struct {
	mu      sync.Mutex
	records map[string]*transport.KeySharesRecord
	pwEnv   map[string]*transport.PasswordEnvelope
}

func newMemKeyShareStore() *memKeyShareStore {
	return &memKeyShareStore{
		records: make(map[string]*transport.KeySharesRecord),
		pwEnv:   make(map[string]*transport.PasswordEnvelope),
	}
}

func (m *memKeyShareStore) Check(ctx context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[token]
	return ok, nil
}

func (m *memKeyShareStore) Get(ctx context.Context, token string) (*transport.KeySharesRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[token]
	if !ok {
		return nil, fmt.Errorf("key shares: no record for token %q", token)
	}
	cp := *rec
	return &cp, nil
}

func (m *memKeyShareStore) Create(ctx context.Context, token string, record *transport.KeySharesRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[token]; exists {
		return fmt.Errorf("key shares: record already exists for token %q", token)
	}
	cp := *record
	m.records[token] = &cp
	return nil
}

func (m *memKeyShareStore) Update(ctx context.Context, token string, record *transport.KeySharesRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[token]; !exists {
		return fmt.Errorf("key shares: no record for token %q", token)
	}
	cp := *record
	m.records[token] = &cp
	return nil
}

func (m *memKeyShareStore) GetPasswordEnvelope(ctx context.Context, token string) (*transport.PasswordEnvelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	env, ok := m.pwEnv[token]
	if !ok {
		return nil, fmt.Errorf("key shares: no password envelope for token %q", token)
	}
	cp := *env
	return &cp, nil
}

func (m *memKeyShareStore) GetPasskeyOptions(ctx context.Context, token string) ([]transport.PasskeyAuthOption, error) {
	return nil, transport.ErrPasskeyUnavailable
}

func (m *memKeyShareStore) GetPasskeyEnvelope(ctx context.Context, token, credentialID string) (*transport.PasskeyEnvelope, error) {
	return nil, transport.ErrPasskeyUnavailable
}

func (m *memKeyShareStore) CreatePasskeyEnvelope(ctx context.Context, token string, envelope *transport.PasskeyEnvelope) error {
	return transport.ErrPasskeyUnavailable
}

type memDeviceRegistry struct {
	mu      sync.Mutex
	secrets map[string][]byte
	devices map[string][]transport.Device
}

func newMemDeviceRegistry() *memDeviceRegistry {
	return &memDeviceRegistry{secrets: make(map[string][]byte), devices: make(map[string][]transport.Device)}
}

func (m *memDeviceRegistry) Register(ctx context.Context, token string, req transport.DeviceRegistrationRequest) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	secret := uuid.New()
	m.secrets[req.DeviceID] = secret[:]
	m.devices[token] = append(m.devices[token], transport.Device{
		DeviceID:   req.DeviceID,
		Platform:   req.UserAgent,
		CreatedAt:  time.Now(),
		LastSeenAt: time.Now(),
	})
	return append([]byte(nil), secret[:]...), nil
}

func (m *memDeviceRegistry) GetSecret(ctx context.Context, token, deviceID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	secret, ok := m.secrets[deviceID]
	if !ok {
		return nil, fmt.Errorf("device registry: unknown device %q", deviceID)
	}
	return append([]byte(nil), secret...), nil
}

func (m *memDeviceRegistry) UpdateLastSeen(ctx context.Context, token, deviceID string) error {
	return nil
}

func (m *memDeviceRegistry) List(ctx context.Context, token string) ([]transport.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]transport.Device(nil), m.devices[token]...), nil
}

func (m *memDeviceRegistry) Revoke(ctx context.Context, token, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, deviceID)
	return nil
}

type memBlobStore struct {
	mu      sync.Mutex
	records map[string]*transport.EncryptedRecord
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{records: make(map[string]*transport.EncryptedRecord)}
}

func (m *memBlobStore) List(ctx context.Context, token string) ([]transport.EncryptedSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]transport.EncryptedSummary, 0, len(m.records))
	for id := range m.records {
		out = append(out, transport.EncryptedSummary{ID: id, UpdatedAt: time.Now()})
	}
	return out, nil
}

func (m *memBlobStore) Get(ctx context.Context, token, id string) (*transport.EncryptedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("blob store: no record %q", id)
	}
	return rec, nil
}

func (m *memBlobStore) Create(ctx context.Context, token string, record *transport.EncryptedRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record
	return record.ID, nil
}

func (m *memBlobStore) Update(ctx context.Context, token string, record *transport.EncryptedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record
	return nil
}

func (m *memBlobStore) Delete(ctx context.Context, token, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

// cliPlatformInfo reports fixed identifiers; a real platform bridge
// reads these from the OS.
type cliPlatformInfo struct{}

func (cliPlatformInfo) Platform() string  { return "cli" }
func (cliPlatformInfo) Model() string     { return "onera-core-cli" }
func (cliPlatformInfo) OSVersion() string { return "demo" }
func (cliPlatformInfo) VendorID() string  { return "local" }
