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

// Package unlock implements UnlockPaths (spec.md §4.5): master-key setup
// and the four reconstruction paths (device share, password, passkey
// PRF, recovery mnemonic), orchestrated by Orchestrator the way
// pkg/agent/hpke.Client composes transport, resolver, and session
// collaborators into one orchestrating type.
package unlock

import (
	"context"
	"errors"
	"fmt"

	"github.com/onera-app/onera-core/internal/metrics"
	"github.com/onera-app/onera-core/pkg/core/crypto"
	"github.com/onera-app/onera-core/pkg/core/device"
	"github.com/onera-app/onera-core/pkg/core/securestore"
	"github.com/onera-app/onera-core/pkg/core/session"
	"github.com/onera-app/onera-core/pkg/core/shares"
	"github.com/onera-app/onera-core/pkg/core/transport"
)

// Kind identifies the failure taxonomy spec.md §4.5 names.
type Kind int

const (
	KindDeviceNotProvisioned Kind = iota
	KindBadPassword
	KindPasskeyUnavailable
	KindPasskeyCancelled
	KindInvalidMnemonic
	KindBadRecoveryKey
	KindTransportFailure
)

// Error is the single unlock-path rejection type. UserMessage maps to
// the stable, non-leaking strings spec.md §7 requires.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("unlock: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the stable, caller-facing string for e.Kind. Never
// includes key material, passwords, or ciphertext.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindDeviceNotProvisioned:
		return "device not authorised"
	case KindBadPassword:
		return "wrong password"
	case KindPasskeyUnavailable, KindPasskeyCancelled:
		return "passkey unavailable"
	case KindInvalidMnemonic, KindBadRecoveryKey:
		return "invalid recovery phrase"
	default:
		return "network error"
	}
}

func wrap(kind Kind, op string, err error) error { return &Error{Kind: kind, Op: op, Err: err} }

const passkeyFallbackKEKKey = "passkey_fallback_kek"

// SetupResult is returned once, by Setup, carrying the mnemonic the
// caller must display and discard (spec.md §4.5.1 step 7).
type SetupResult struct {
	Mnemonic  string
	PublicKey []byte
}

// Orchestrator composes ShareSplitter, DeviceIdentity, SecureStore, and
// the external KeyShareStore/DeviceRegistry/PasskeyProvider collaborators
// to populate a session.Session.
type Orchestrator struct {
	store    securestore.Store
	identity *device.Identity
	shares   transport.KeyShareStore
	registry transport.DeviceRegistry
	passkeys transport.PasskeyProvider
	sess     *session.Session
}

// New constructs an Orchestrator. passkeys may be nil if the deployment
// does not offer passkey unlock.
func New(store securestore.Store, identity *device.Identity, shareStore transport.KeyShareStore, registry transport.DeviceRegistry, passkeys transport.PasskeyProvider, sess *session.Session) *Orchestrator {
	return &Orchestrator{store: store, identity: identity, shares: shareStore, registry: registry, passkeys: passkeys, sess: sess}
}

// Setup provisions a brand-new user (spec.md §4.5.1): generates the
// master key and an X25519 identity key pair, splits the master key
// three ways, derives the mnemonic-backed recovery key, seals every
// server-bound envelope, registers this device, and unlocks the
// session. The mnemonic is returned exactly once; the caller must
// display and discard it.
func (o *Orchestrator) Setup(ctx context.Context, token, deviceName, userAgent string) (*SetupResult, error) {
	master, err := crypto.Random(crypto.KeySize)
	if err != nil {
		return nil, wrap(KindTransportFailure, "setup", err)
	}
	keyPair, err := crypto.X25519Keypair()
	if err != nil {
		crypto.Zeroize(master)
		return nil, wrap(KindTransportFailure, "setup", err)
	}
	split, err := shares.Split(master)
	if err != nil {
		crypto.Zeroize(master)
		crypto.Zeroize(keyPair.Private)
		return nil, wrap(KindTransportFailure, "setup", err)
	}
	mnemonic, err := crypto.MnemonicGenerate()
	if err != nil {
		zeroizeSetup(master, keyPair, split)
		return nil, wrap(KindTransportFailure, "setup", err)
	}
	recoveryKey := crypto.KDFFromMnemonic(mnemonic)

	record := &transport.KeySharesRecord{AuthShare: split.Auth, PublicKey: keyPair.Public}
	if record.EncRecoveryShare, record.EncRecoveryNonce, err = crypto.AEADSeal(recoveryKey, split.Recovery); err != nil {
		zeroizeSetup(master, keyPair, split)
		crypto.Zeroize(recoveryKey)
		return nil, wrap(KindTransportFailure, "setup", err)
	}
	if record.EncPrivateKey, record.EncPrivateNonce, err = crypto.AEADSeal(master, keyPair.Private); err != nil {
		zeroizeSetup(master, keyPair, split)
		crypto.Zeroize(recoveryKey)
		return nil, wrap(KindTransportFailure, "setup", err)
	}
	if record.EncRecoveryKey, record.EncRecoveryKeyNonce, err = crypto.AEADSeal(master, recoveryKey); err != nil {
		zeroizeSetup(master, keyPair, split)
		crypto.Zeroize(recoveryKey)
		return nil, wrap(KindTransportFailure, "setup", err)
	}
	// master_key_recovery: a redundant envelope letting the recovery
	// mnemonic regenerate master directly, without needing a locally
	// held device share (spec.md §4.5.1 step 4, §4.5.5).
	if record.MasterKeyRecovery, record.MasterKeyRecoveryNonce, err = crypto.AEADSeal(recoveryKey, master); err != nil {
		zeroizeSetup(master, keyPair, split)
		crypto.Zeroize(recoveryKey)
		return nil, wrap(KindTransportFailure, "setup", err)
	}

	if err := o.shares.Create(ctx, token, record); err != nil {
		zeroizeSetup(master, keyPair, split)
		crypto.Zeroize(recoveryKey)
		return nil, wrap(KindTransportFailure, "setup", err)
	}

	deviceSecret, err := o.identity.Register(ctx, master, o.registry, token, deviceName, userAgent)
	if err != nil {
		zeroizeSetup(master, keyPair, split)
		crypto.Zeroize(recoveryKey)
		return nil, wrap(KindTransportFailure, "setup", err)
	}
	if err := o.identity.SealDeviceShare(deviceSecret, split.Device); err != nil {
		crypto.Zeroize(deviceSecret)
		zeroizeSetup(master, keyPair, split)
		crypto.Zeroize(recoveryKey)
		return nil, wrap(KindTransportFailure, "setup", err)
	}
	if err := o.identity.SealLocalRecoveryShare(deviceSecret, split.Recovery); err != nil {
		crypto.Zeroize(deviceSecret)
		zeroizeSetup(master, keyPair, split)
		crypto.Zeroize(recoveryKey)
		return nil, wrap(KindTransportFailure, "setup", err)
	}
	crypto.Zeroize(deviceSecret)

	metrics.SessionUnlocks.WithLabelValues("setup", "success").Inc()
	o.sess.Unlock(session.Keys{MasterKey: master, SecretKey: keyPair.Private, PublicKey: keyPair.Public, RecoveryKey: recoveryKey})

	crypto.Zeroize(split.Device)
	crypto.Zeroize(split.Auth)
	crypto.Zeroize(split.Recovery)

	return &SetupResult{Mnemonic: mnemonic, PublicKey: keyPair.Public}, nil
}

func zeroizeSetup(master []byte, keyPair *crypto.X25519KeyPair, split *shares.Shares) {
	crypto.Zeroize(master)
	crypto.Zeroize(keyPair.Private)
	crypto.Zeroize(split.Device)
	crypto.Zeroize(split.Auth)
	crypto.Zeroize(split.Recovery)
}

// UnlockWithDeviceShare silently reconstructs the master key from the
// locally-sealed device share plus the server-held auth share (spec.md
// §4.5.2). Fails DeviceNotProvisioned if no local device share exists.
func (o *Orchestrator) UnlockWithDeviceShare(ctx context.Context, token string) error {
	if !o.identity.HasDeviceShare() {
		metrics.SessionUnlocks.WithLabelValues("device", "failure").Inc()
		return wrap(KindDeviceNotProvisioned, "unlock_device", device.ErrNotProvisioned)
	}

	deviceID, err := o.identity.GetOrCreateDeviceID()
	if err != nil {
		metrics.SessionUnlocks.WithLabelValues("device", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_device", err)
	}
	deviceSecret, err := o.registry.GetSecret(ctx, token, deviceID)
	if err != nil {
		metrics.SessionUnlocks.WithLabelValues("device", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_device", err)
	}
	defer crypto.Zeroize(deviceSecret)

	record, err := o.shares.Get(ctx, token)
	if err != nil {
		metrics.SessionUnlocks.WithLabelValues("device", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_device", err)
	}

	deviceShare, err := o.identity.OpenDeviceShare(deviceSecret)
	if err != nil {
		metrics.SessionUnlocks.WithLabelValues("device", "failure").Inc()
		return wrap(KindDeviceNotProvisioned, "unlock_device", err)
	}
	defer crypto.Zeroize(deviceShare)

	recoveryShare, err := o.identity.OpenLocalRecoveryShare(deviceSecret)
	if err != nil {
		metrics.SessionUnlocks.WithLabelValues("device", "failure").Inc()
		return wrap(KindDeviceNotProvisioned, "unlock_device", err)
	}
	defer crypto.Zeroize(recoveryShare)

	master, err := shares.Reconstruct(deviceShare, record.AuthShare, recoveryShare)
	if err != nil {
		metrics.SessionUnlocks.WithLabelValues("device", "failure").Inc()
		return wrap(KindDeviceNotProvisioned, "unlock_device", err)
	}

	secretKey, err := crypto.AEADOpen(master, record.EncPrivateKey, record.EncPrivateNonce)
	if err != nil {
		crypto.Zeroize(master)
		metrics.SessionUnlocks.WithLabelValues("device", "failure").Inc()
		return wrap(KindDeviceNotProvisioned, "unlock_device", fmt.Errorf("could not decrypt"))
	}

	metrics.SessionUnlocks.WithLabelValues("device", "success").Inc()
	o.sess.Unlock(session.Keys{MasterKey: master, SecretKey: secretKey, PublicKey: record.PublicKey})
	return nil
}

// UnlockWithPassword reconstructs the master key from the server-held
// PasswordEnvelope (spec.md §4.5.3). Fails BadPassword on any AEAD
// mismatch without distinguishing the cause.
func (o *Orchestrator) UnlockWithPassword(ctx context.Context, token, password string) error {
	envelope, err := o.shares.GetPasswordEnvelope(ctx, token)
	if err != nil {
		metrics.SessionUnlocks.WithLabelValues("password", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_password", err)
	}

	kek := crypto.KDFPassword([]byte(password), envelope.Salt, crypto.Argon2Params{Ops: envelope.Ops, Mem: envelope.Mem, Threads: envelope.Threads})
	master, err := crypto.AEADOpen(kek, envelope.Ciphertext, envelope.Nonce)
	crypto.Zeroize(kek)
	if err != nil {
		metrics.SessionUnlocks.WithLabelValues("password", "failure").Inc()
		return wrap(KindBadPassword, "unlock_password", fmt.Errorf("could not decrypt"))
	}

	record, err := o.shares.Get(ctx, token)
	if err != nil {
		crypto.Zeroize(master)
		metrics.SessionUnlocks.WithLabelValues("password", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_password", err)
	}
	secretKey, err := crypto.AEADOpen(master, record.EncPrivateKey, record.EncPrivateNonce)
	if err != nil {
		crypto.Zeroize(master)
		metrics.SessionUnlocks.WithLabelValues("password", "failure").Inc()
		return wrap(KindBadPassword, "unlock_password", fmt.Errorf("could not decrypt"))
	}

	metrics.SessionUnlocks.WithLabelValues("password", "success").Inc()
	o.sess.Unlock(session.Keys{MasterKey: master, SecretKey: secretKey, PublicKey: record.PublicKey})
	return nil
}

// UnlockWithPasskey reconstructs the master key from a WebAuthn PRF
// output, falling back to a previously-enrolled device-bound KEK when
// the authenticator lacks PRF support (spec.md §4.5.4).
func (o *Orchestrator) UnlockWithPasskey(ctx context.Context, token string) error {
	if o.passkeys == nil {
		metrics.SessionUnlocks.WithLabelValues("passkey", "failure").Inc()
		return wrap(KindPasskeyUnavailable, "unlock_passkey", transport.ErrPasskeyUnavailable)
	}

	options, err := o.shares.GetPasskeyOptions(ctx, token)
	if err != nil {
		metrics.SessionUnlocks.WithLabelValues("passkey", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_passkey", err)
	}

	assertion, err := o.passkeys.Authenticate(ctx, options)
	if err != nil {
		metrics.SessionUnlocks.WithLabelValues("passkey", "failure").Inc()
		if errors.Is(err, transport.ErrPasskeyCancelled) {
			return wrap(KindPasskeyCancelled, "unlock_passkey", err)
		}
		return wrap(KindPasskeyUnavailable, "unlock_passkey", err)
	}

	envelope, err := o.shares.GetPasskeyEnvelope(ctx, token, assertion.CredentialID)
	if err != nil {
		metrics.SessionUnlocks.WithLabelValues("passkey", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_passkey", err)
	}

	var kek []byte
	if assertion.PRFOutput != nil {
		kek, err = crypto.KDFHKDF(assertion.PRFOutput, envelope.PRFSalt, []byte("onera-webauthn-prf-kek-v1"), crypto.KeySize)
		if err != nil {
			metrics.SessionUnlocks.WithLabelValues("passkey", "failure").Inc()
			return wrap(KindPasskeyUnavailable, "unlock_passkey", err)
		}
	} else {
		// Fallback: the authenticator lacks PRF support. Use the
		// device-bound KEK generated locally when this credential was
		// enrolled (spec.md §4.5.4 step 5).
		kek, err = o.store.Get(passkeyFallbackKEKKey)
		if err != nil {
			metrics.SessionUnlocks.WithLabelValues("passkey", "failure").Inc()
			return wrap(KindPasskeyUnavailable, "unlock_passkey", err)
		}
	}

	master, err := crypto.AEADOpen(kek, envelope.Ciphertext, envelope.Nonce)
	crypto.Zeroize(kek)
	if err != nil {
		metrics.SessionUnlocks.WithLabelValues("passkey", "failure").Inc()
		return wrap(KindPasskeyUnavailable, "unlock_passkey", fmt.Errorf("could not decrypt"))
	}

	record, err := o.shares.Get(ctx, token)
	if err != nil {
		crypto.Zeroize(master)
		metrics.SessionUnlocks.WithLabelValues("passkey", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_passkey", err)
	}
	secretKey, err := crypto.AEADOpen(master, record.EncPrivateKey, record.EncPrivateNonce)
	if err != nil {
		crypto.Zeroize(master)
		metrics.SessionUnlocks.WithLabelValues("passkey", "failure").Inc()
		return wrap(KindPasskeyUnavailable, "unlock_passkey", fmt.Errorf("could not decrypt"))
	}

	metrics.SessionUnlocks.WithLabelValues("passkey", "success").Inc()
	o.sess.Unlock(session.Keys{MasterKey: master, SecretKey: secretKey, PublicKey: record.PublicKey})
	return nil
}

// EnrollPasskey registers a new passkey credential while the session is
// already unlocked, sealing the current master key under a PRF-derived
// KEK (or, when the authenticator lacks PRF support, a freshly generated
// device-bound KEK persisted to SecureStore) and uploading the resulting
// PasskeyEnvelope. This is the registration half of spec.md §4.5.4's
// fallback path.
func (o *Orchestrator) EnrollPasskey(ctx context.Context, token string, prfSalt []byte) error {
	if o.passkeys == nil {
		return wrap(KindPasskeyUnavailable, "enroll_passkey", transport.ErrPasskeyUnavailable)
	}
	master, ok := o.sess.MasterKey()
	if !ok {
		return wrap(KindTransportFailure, "enroll_passkey", fmt.Errorf("session locked"))
	}

	creation, err := o.passkeys.CreateCredential(ctx, prfSalt)
	if err != nil {
		return wrap(KindPasskeyUnavailable, "enroll_passkey", err)
	}

	var kek []byte
	if creation.PRFOutput != nil {
		kek, err = crypto.KDFHKDF(creation.PRFOutput, prfSalt, []byte("onera-webauthn-prf-kek-v1"), crypto.KeySize)
		if err != nil {
			return wrap(KindPasskeyUnavailable, "enroll_passkey", err)
		}
	} else {
		kek, err = crypto.Random(crypto.KeySize)
		if err != nil {
			return wrap(KindPasskeyUnavailable, "enroll_passkey", err)
		}
		if err := o.store.Put(passkeyFallbackKEKKey, kek, securestore.PolicyUnlockedThisDeviceOnly); err != nil {
			crypto.Zeroize(kek)
			return wrap(KindTransportFailure, "enroll_passkey", err)
		}
	}

	ciphertext, nonce, err := crypto.AEADSeal(kek, master)
	crypto.Zeroize(kek)
	if err != nil {
		return wrap(KindTransportFailure, "enroll_passkey", err)
	}

	envelope := &transport.PasskeyEnvelope{CredentialID: creation.CredentialID, PRFSalt: prfSalt, Ciphertext: ciphertext, Nonce: nonce}
	if err := o.shares.CreatePasskeyEnvelope(ctx, token, envelope); err != nil {
		return wrap(KindTransportFailure, "enroll_passkey", err)
	}
	return nil
}

// UnlockWithMnemonic reconstructs the master key directly from the
// redundant master_key_recovery envelope (spec.md §4.5.5), then
// re-provisions a fresh device share on this device. The invariant is
// atomic: if re-provisioning fails, the session is never marked
// unlocked. Fails InvalidMnemonic on checksum error, BadRecoveryKey on
// AEAD failure.
func (o *Orchestrator) UnlockWithMnemonic(ctx context.Context, token, phrase, deviceName, userAgent string) error {
	if !crypto.MnemonicValidate(phrase) {
		metrics.SessionUnlocks.WithLabelValues("mnemonic", "failure").Inc()
		return wrap(KindInvalidMnemonic, "unlock_mnemonic", fmt.Errorf("invalid checksum"))
	}
	recoveryKey := crypto.KDFFromMnemonic(phrase)

	record, err := o.shares.Get(ctx, token)
	if err != nil {
		crypto.Zeroize(recoveryKey)
		metrics.SessionUnlocks.WithLabelValues("mnemonic", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_mnemonic", err)
	}

	master, err := crypto.AEADOpen(recoveryKey, record.MasterKeyRecovery, record.MasterKeyRecoveryNonce)
	if err != nil {
		crypto.Zeroize(recoveryKey)
		metrics.SessionUnlocks.WithLabelValues("mnemonic", "failure").Inc()
		return wrap(KindBadRecoveryKey, "unlock_mnemonic", fmt.Errorf("could not decrypt"))
	}

	secretKey, err := crypto.AEADOpen(master, record.EncPrivateKey, record.EncPrivateNonce)
	if err != nil {
		crypto.Zeroize(master)
		crypto.Zeroize(recoveryKey)
		metrics.SessionUnlocks.WithLabelValues("mnemonic", "failure").Inc()
		return wrap(KindBadRecoveryKey, "unlock_mnemonic", fmt.Errorf("could not decrypt"))
	}

	// Re-provision: mint a fresh device share for this device, keeping
	// auth_share fixed and recomputing recovery_share so the 3-of-3
	// invariant still holds, then upload the updated record. Nothing
	// below marks the session unlocked until every step succeeds.
	newDeviceShare, err := crypto.Random(crypto.KeySize)
	if err != nil {
		crypto.Zeroize(master)
		crypto.Zeroize(secretKey)
		crypto.Zeroize(recoveryKey)
		metrics.SessionUnlocks.WithLabelValues("mnemonic", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_mnemonic", err)
	}
	deviceAuth, err := crypto.XOR(newDeviceShare, record.AuthShare)
	if err != nil {
		crypto.Zeroize(master)
		crypto.Zeroize(secretKey)
		crypto.Zeroize(recoveryKey)
		crypto.Zeroize(newDeviceShare)
		metrics.SessionUnlocks.WithLabelValues("mnemonic", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_mnemonic", err)
	}
	newRecoveryShare, err := crypto.XOR(deviceAuth, master)
	crypto.Zeroize(deviceAuth)
	if err != nil {
		crypto.Zeroize(master)
		crypto.Zeroize(secretKey)
		crypto.Zeroize(recoveryKey)
		crypto.Zeroize(newDeviceShare)
		metrics.SessionUnlocks.WithLabelValues("mnemonic", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_mnemonic", err)
	}

	updated := *record
	if updated.EncRecoveryShare, updated.EncRecoveryNonce, err = crypto.AEADSeal(recoveryKey, newRecoveryShare); err != nil {
		crypto.Zeroize(master)
		crypto.Zeroize(secretKey)
		crypto.Zeroize(recoveryKey)
		crypto.Zeroize(newDeviceShare)
		crypto.Zeroize(newRecoveryShare)
		metrics.SessionUnlocks.WithLabelValues("mnemonic", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_mnemonic", err)
	}

	if err := o.shares.Update(ctx, token, &updated); err != nil {
		crypto.Zeroize(master)
		crypto.Zeroize(secretKey)
		crypto.Zeroize(recoveryKey)
		crypto.Zeroize(newDeviceShare)
		crypto.Zeroize(newRecoveryShare)
		metrics.SessionUnlocks.WithLabelValues("mnemonic", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_mnemonic", err)
	}

	deviceSecret, err := o.identity.Register(ctx, master, o.registry, token, deviceName, userAgent)
	if err != nil {
		crypto.Zeroize(master)
		crypto.Zeroize(secretKey)
		crypto.Zeroize(recoveryKey)
		crypto.Zeroize(newDeviceShare)
		crypto.Zeroize(newRecoveryShare)
		metrics.SessionUnlocks.WithLabelValues("mnemonic", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_mnemonic", err)
	}
	if err := o.identity.SealDeviceShare(deviceSecret, newDeviceShare); err != nil {
		crypto.Zeroize(deviceSecret)
		crypto.Zeroize(master)
		crypto.Zeroize(secretKey)
		crypto.Zeroize(recoveryKey)
		crypto.Zeroize(newDeviceShare)
		crypto.Zeroize(newRecoveryShare)
		metrics.SessionUnlocks.WithLabelValues("mnemonic", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_mnemonic", err)
	}
	if err := o.identity.SealLocalRecoveryShare(deviceSecret, newRecoveryShare); err != nil {
		crypto.Zeroize(deviceSecret)
		crypto.Zeroize(master)
		crypto.Zeroize(secretKey)
		crypto.Zeroize(recoveryKey)
		crypto.Zeroize(newDeviceShare)
		crypto.Zeroize(newRecoveryShare)
		metrics.SessionUnlocks.WithLabelValues("mnemonic", "failure").Inc()
		return wrap(KindTransportFailure, "unlock_mnemonic", err)
	}
	crypto.Zeroize(deviceSecret)
	crypto.Zeroize(newDeviceShare)
	crypto.Zeroize(newRecoveryShare)

	metrics.SessionUnlocks.WithLabelValues("mnemonic", "success").Inc()
	o.sess.Unlock(session.Keys{MasterKey: master, SecretKey: secretKey, PublicKey: record.PublicKey, RecoveryKey: recoveryKey})
	return nil
}
