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

// Package transport declares the typed external collaborators onera-core
// consumes but never implements beyond a test double: the server-side RPC
// surfaces (§6) and the platform capabilities (PasskeyProvider,
// SecureStore's sibling capabilities Clock/Rng/Logger). Apart from
// RealClock, the time-package Clock defined below, production
// implementations of these interfaces live outside this repository; the
// core only depends on the shapes declared here.
package transport

import (
	"context"
	"fmt"
	"time"
)

// ErrPasskeyCancelled and ErrPasskeyUnavailable are the sentinel errors a
// PasskeyProvider implementation returns from Authenticate/CreateCredential
// so callers can distinguish a user-dismissed prompt from a platform that
// offers no authenticator at all (spec.md §4.5.4 failure taxonomy).
var (
	ErrPasskeyCancelled   = fmt.Errorf("transport: passkey prompt cancelled")
	ErrPasskeyUnavailable = fmt.Errorf("transport: no passkey authenticator available")
)

// KeySharesRecord is the server-side record backing the auth/recovery
// shares and the wrapped key material spec.md §4.5.1 step 5 transmits.
type KeySharesRecord struct {
	AuthShare          []byte
	EncRecoveryShare   []byte
	EncRecoveryNonce   []byte
	PublicKey          []byte
	EncPrivateKey      []byte
	EncPrivateNonce    []byte
	EncRecoveryKey     []byte
	EncRecoveryKeyNonce []byte
	MasterKeyRecovery  []byte
	MasterKeyRecoveryNonce []byte
}

// KeyShareStore is the RPC collaborator holding the server-side half of
// the master-key split (§6).
type KeyShareStore interface {
	Check(ctx context.Context, token string) (bool, error)
	Get(ctx context.Context, token string) (*KeySharesRecord, error)
	Create(ctx context.Context, token string, record *KeySharesRecord) error
	Update(ctx context.Context, token string, record *KeySharesRecord) error
	GetPasswordEnvelope(ctx context.Context, token string) (*PasswordEnvelope, error)
	GetPasskeyOptions(ctx context.Context, token string) ([]PasskeyAuthOption, error)
	GetPasskeyEnvelope(ctx context.Context, token, credentialID string) (*PasskeyEnvelope, error)
	CreatePasskeyEnvelope(ctx context.Context, token string, envelope *PasskeyEnvelope) error
}

// PasswordEnvelope is the server-held wrapping of the master key under a
// password-derived KEK (spec.md §3 PasswordEnvelope).
type PasswordEnvelope struct {
	Ciphertext []byte
	Nonce      []byte
	Salt       []byte
	Ops        uint32
	Mem        uint32
	Threads    uint8
}

// PasskeyEnvelope is the server-held wrapping of the master key under a
// WebAuthn-PRF-derived (or device-bound fallback) KEK (spec.md §3
// PasskeyEnvelope).
type PasskeyEnvelope struct {
	CredentialID string
	PRFSalt      []byte
	Ciphertext   []byte
	Nonce        []byte
}

// Device is a single registered device as returned by DeviceRegistry.List.
type Device struct {
	DeviceID    string
	Platform    string
	Fingerprint string
	LastSeenAt  time.Time
	CreatedAt   time.Time
}

// DeviceRegistrationRequest is the payload DeviceIdentity.Register sends.
type DeviceRegistrationRequest struct {
	DeviceID      string
	EncryptedName []byte
	NameNonce     []byte
	UserAgent     string
}

// DeviceRegistry is the RPC collaborator managing per-device secrets and
// revocation (§6).
type DeviceRegistry interface {
	Register(ctx context.Context, token string, req DeviceRegistrationRequest) (deviceSecret []byte, err error)
	GetSecret(ctx context.Context, token, deviceID string) (deviceSecret []byte, err error)
	UpdateLastSeen(ctx context.Context, token, deviceID string) error
	List(ctx context.Context, token string) ([]Device, error)
	Revoke(ctx context.Context, token, deviceID string) error
}

// EncryptedSummary is the list-view shape a BlobStore returns without
// fetching the full record.
type EncryptedSummary struct {
	ID        string
	UpdatedAt time.Time
}

// EncryptedRecord is one opaque, fully-sealed blob: a chat envelope or a
// credential-vault row. The core only ever reads/writes the base64
// fields defined in spec.md §3/§6; BlobStore never sees plaintext.
type EncryptedRecord struct {
	ID     string
	Fields map[string]string
}

// BlobStore is the generic authenticated-blob RPC surface (§6), shared
// by the chat and credential-vault entity types.
type BlobStore interface {
	List(ctx context.Context, token string) ([]EncryptedSummary, error)
	Get(ctx context.Context, token, id string) (*EncryptedRecord, error)
	Create(ctx context.Context, token string, record *EncryptedRecord) (id string, err error)
	Update(ctx context.Context, token string, record *EncryptedRecord) error
	Delete(ctx context.Context, token, id string) error
}

// PasskeyAuthOption binds one registered credential to the PRF salt it
// was created with, per spec.md §4.5.4 step 1.
type PasskeyAuthOption struct {
	CredentialID string
	PRFSalt      []byte
}

// PasskeyAssertion is what PasskeyProvider.Authenticate returns: the
// chosen credential, the raw WebAuthn assertion, and — when the
// authenticator supports the PRF extension — its 32-byte PRF output.
type PasskeyAssertion struct {
	CredentialID string
	Assertion    []byte
	PRFOutput    []byte // nil when the authenticator lacks PRF support
}

// PasskeyCreation is what PasskeyProvider.CreateCredential returns.
type PasskeyCreation struct {
	CredentialID string
	Attestation  []byte
	PRFOutput    []byte
}

// PasskeyProvider is the platform capability that prompts the user and
// talks to the authenticator (§6). It is never implemented by this repo.
type PasskeyProvider interface {
	CreateCredential(ctx context.Context, options any) (*PasskeyCreation, error)
	Authenticate(ctx context.Context, options []PasskeyAuthOption) (*PasskeyAssertion, error)
}

// PlatformInfo supplies the host-reported identifiers DeviceIdentity
// folds into its stable fingerprint (§4.4): model, OS version, and any
// available vendor identifier. Implementations live outside this repo.
type PlatformInfo interface {
	Platform() string
	Model() string
	OSVersion() string
	VendorID() string
}

// Clock is the trivial injected time capability (§6), letting tests
// drive SecureSession's idle/background timers with a virtual clock
// (spec.md §8 scenarios S4/S5).
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is the subset of time.Timer that Clock.NewTimer must return, so
// a fake clock can swap in a controllable timer.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
	C() <-chan time.Time
}

// RealClock is the production Clock backed by the time package.
type RealClock struct{}

func (RealClock) Now() time.Time                       { return time.Now() }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (RealClock) NewTimer(d time.Duration) Timer       { return &realTimer{t: time.NewTimer(d)} }

type realTimer struct{ t *time.Timer }

func (r *realTimer) Stop() bool                 { return r.t.Stop() }
func (r *realTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }
func (r *realTimer) C() <-chan time.Time        { return r.t.C }
