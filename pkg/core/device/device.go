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

// Package device implements DeviceIdentity (spec.md §4.4): a persisted
// device id, a stable fingerprint, device registration, and the
// device-share sealing key derivation.
package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/onera-app/onera-core/pkg/core/crypto"
	"github.com/onera-app/onera-core/pkg/core/securestore"
	"github.com/onera-app/onera-core/pkg/core/transport"
)

// devicePersonal is the fixed BLAKE2b personalization string spec.md
// §3/§4.4 mandates for the device-share key.
const devicePersonal = "onera.deviceshare.v2"

const (
	keyDeviceID               = "device_id"
	keyEncryptedDeviceShare   = "encrypted_device_share"
	keyDeviceShareNonce       = "device_share_nonce"
	keyEncryptedRecoveryShare = "encrypted_local_recovery_share"
	keyRecoveryShareNonce     = "local_recovery_share_nonce"
)

// Identity binds a persistent per-device UUID to a stable fingerprint
// and the device-share sealing key, per spec.md §4.4.
type Identity struct {
	store    securestore.Store
	platform transport.PlatformInfo
}

// New constructs an Identity backed by store for persistence and
// platform for fingerprint inputs.
func New(store securestore.Store, platform transport.PlatformInfo) *Identity {
	return &Identity{store: store, platform: platform}
}

// GetOrCreateDeviceID returns the persisted device UUID, generating and
// storing one on first call. Deterministic across cold starts once
// created (spec.md §4.4).
func (i *Identity) GetOrCreateDeviceID() (string, error) {
	if raw, err := i.store.Get(keyDeviceID); err == nil {
		return string(raw), nil
	} else if err != securestore.ErrNotFound {
		return "", fmt.Errorf("device: read device id: %w", err)
	}

	id := uuid.New().String()
	if err := i.store.Put(keyDeviceID, []byte(id), securestore.PolicyUnlockedThisDeviceOnly); err != nil {
		return "", fmt.Errorf("device: persist device id: %w", err)
	}
	return id, nil
}

// Fingerprint returns the stable "model|os-version|vendor-id" join
// spec.md §4.4 requires to be deterministic across cold starts on the
// same device and user install.
func (i *Identity) Fingerprint() string {
	return strings.Join([]string{i.platform.Model(), i.platform.OSVersion(), i.platform.VendorID()}, "|")
}

// Register encrypts a human-readable device name under masterKey and
// calls DeviceRegistry.Register, returning the server-issued
// device_secret (spec.md §4.4).
func (i *Identity) Register(ctx context.Context, masterKey []byte, registry transport.DeviceRegistry, token, deviceName, userAgent string) ([]byte, error) {
	deviceID, err := i.GetOrCreateDeviceID()
	if err != nil {
		return nil, err
	}

	encName, nonce, err := crypto.AEADSeal(masterKey, []byte(deviceName))
	if err != nil {
		return nil, fmt.Errorf("device: seal device name: %w", err)
	}

	secret, err := registry.Register(ctx, token, transport.DeviceRegistrationRequest{
		DeviceID:      deviceID,
		EncryptedName: encName,
		NameNonce:     nonce,
		UserAgent:     userAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("device: register: %w", err)
	}
	return secret, nil
}

// DeriveDeviceShareKey computes BLAKE2b-256(device_id ‖ fingerprint ‖
// secret) with the fixed personal string "onera.deviceshare.v2"
// (spec.md §3/§4.4). Used only to seal/open the device share on disk.
func (i *Identity) DeriveDeviceShareKey(secret []byte) ([]byte, error) {
	deviceID, err := i.GetOrCreateDeviceID()
	if err != nil {
		return nil, err
	}

	transcript := make([]byte, 0, len(deviceID)+len(i.Fingerprint())+len(secret))
	transcript = append(transcript, []byte(deviceID)...)
	transcript = append(transcript, []byte(i.Fingerprint())...)
	transcript = append(transcript, secret...)

	key, err := crypto.KDFBlake2b(transcript, devicePersonal, crypto.KeySize)
	crypto.Zeroize(transcript)
	if err != nil {
		return nil, fmt.Errorf("device: derive device share key: %w", err)
	}
	return key, nil
}

// SealDeviceShare AEAD-seals share under the device-share key and
// persists both the ciphertext and nonce under SecureStore.
func (i *Identity) SealDeviceShare(secret, share []byte) error {
	key, err := i.DeriveDeviceShareKey(secret)
	if err != nil {
		return err
	}
	defer crypto.Zeroize(key)

	ciphertext, nonce, err := crypto.AEADSeal(key, share)
	if err != nil {
		return fmt.Errorf("device: seal device share: %w", err)
	}
	if err := i.store.Put(keyEncryptedDeviceShare, ciphertext, securestore.PolicyUnlockedThisDeviceOnly); err != nil {
		return fmt.Errorf("device: persist encrypted device share: %w", err)
	}
	if err := i.store.Put(keyDeviceShareNonce, nonce, securestore.PolicyUnlockedThisDeviceOnly); err != nil {
		return fmt.Errorf("device: persist device share nonce: %w", err)
	}
	return nil
}

// ErrNotProvisioned is returned by OpenDeviceShare when no device share
// has been persisted on this device (spec.md §4.5.2's
// DeviceNotProvisioned failure).
var ErrNotProvisioned = fmt.Errorf("device: no device share provisioned")

// OpenDeviceShare re-derives the device-share key from secret and opens
// the persisted device share. Returns ErrNotProvisioned if no share has
// ever been sealed on this device.
func (i *Identity) OpenDeviceShare(secret []byte) ([]byte, error) {
	ciphertext, err := i.store.Get(keyEncryptedDeviceShare)
	if err == securestore.ErrNotFound {
		return nil, ErrNotProvisioned
	} else if err != nil {
		return nil, fmt.Errorf("device: read encrypted device share: %w", err)
	}
	nonce, err := i.store.Get(keyDeviceShareNonce)
	if err != nil {
		return nil, fmt.Errorf("device: read device share nonce: %w", err)
	}

	key, err := i.DeriveDeviceShareKey(secret)
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(key)

	share, err := crypto.AEADOpen(key, ciphertext, nonce)
	if err != nil {
		return nil, fmt.Errorf("device: open device share: %w", err)
	}
	return share, nil
}

// HasDeviceShare reports whether a device share has been persisted on
// this device without attempting to open it.
func (i *Identity) HasDeviceShare() bool {
	return i.store.Exists(keyEncryptedDeviceShare)
}

// SealLocalRecoveryShare persists an encrypted copy of the recovery
// share on this device, sealed under the same device-share key as
// SealDeviceShare. Silent device-share unlock (spec.md §4.5.2) needs
// this redundant local copy because the server only ever holds
// recovery_share sealed under the mnemonic-derived recovery key, which
// the silent path never has.
func (i *Identity) SealLocalRecoveryShare(secret, recoveryShare []byte) error {
	key, err := i.DeriveDeviceShareKey(secret)
	if err != nil {
		return err
	}
	defer crypto.Zeroize(key)

	ciphertext, nonce, err := crypto.AEADSeal(key, recoveryShare)
	if err != nil {
		return fmt.Errorf("device: seal local recovery share: %w", err)
	}
	if err := i.store.Put(keyEncryptedRecoveryShare, ciphertext, securestore.PolicyUnlockedThisDeviceOnly); err != nil {
		return fmt.Errorf("device: persist encrypted recovery share: %w", err)
	}
	if err := i.store.Put(keyRecoveryShareNonce, nonce, securestore.PolicyUnlockedThisDeviceOnly); err != nil {
		return fmt.Errorf("device: persist recovery share nonce: %w", err)
	}
	return nil
}

// OpenLocalRecoveryShare re-derives the device-share key from secret and
// opens the locally-persisted recovery share sealed by
// SealLocalRecoveryShare.
func (i *Identity) OpenLocalRecoveryShare(secret []byte) ([]byte, error) {
	ciphertext, err := i.store.Get(keyEncryptedRecoveryShare)
	if err == securestore.ErrNotFound {
		return nil, ErrNotProvisioned
	} else if err != nil {
		return nil, fmt.Errorf("device: read encrypted recovery share: %w", err)
	}
	nonce, err := i.store.Get(keyRecoveryShareNonce)
	if err != nil {
		return nil, fmt.Errorf("device: read recovery share nonce: %w", err)
	}

	key, err := i.DeriveDeviceShareKey(secret)
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(key)

	share, err := crypto.AEADOpen(key, ciphertext, nonce)
	if err != nil {
		return nil, fmt.Errorf("device: open local recovery share: %w", err)
	}
	return share, nil
}
