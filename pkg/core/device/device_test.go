package device

import (
	"bytes"
	"context"
	"testing"

	"github.com/onera-app/onera-core/pkg/core/securestore"
	"github.com/onera-app/onera-core/pkg/core/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct{ model, os, vendor string }

func (p fakePlatform) Platform() string  { return "test" }
func (p fakePlatform) Model() string     { return p.model }
func (p fakePlatform) OSVersion() string { return p.os }
func (p fakePlatform) VendorID() string  { return p.vendor }

type fakeRegistry struct{ lastReq transport.DeviceRegistrationRequest }

func (r *fakeRegistry) Register(ctx context.Context, token string, req transport.DeviceRegistrationRequest) ([]byte, error) {
	r.lastReq = req
	return []byte("server-issued-secret-bytes"), nil
}
func (r *fakeRegistry) GetSecret(ctx context.Context, token, deviceID string) ([]byte, error) {
	return nil, nil
}
func (r *fakeRegistry) UpdateLastSeen(ctx context.Context, token, deviceID string) error { return nil }
func (r *fakeRegistry) List(ctx context.Context, token string) ([]transport.Device, error) {
	return nil, nil
}
func (r *fakeRegistry) Revoke(ctx context.Context, token, deviceID string) error { return nil }

func TestGetOrCreateDeviceID_StableAcrossCalls(t *testing.T) {
	id := New(securestore.NewMemoryStore(), fakePlatform{model: "m", os: "1", vendor: "v"})
	first, err := id.GetOrCreateDeviceID()
	require.NoError(t, err)
	second, err := id.GetOrCreateDeviceID()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFingerprint_StableAndDeterministic(t *testing.T) {
	id := New(securestore.NewMemoryStore(), fakePlatform{model: "iPhone16,2", os: "17.4", vendor: "abc-123"})
	assert.Equal(t, "iPhone16,2|17.4|abc-123", id.Fingerprint())
	assert.Equal(t, id.Fingerprint(), id.Fingerprint())
}

func TestRegister_SealsNameAndForwardsRequest(t *testing.T) {
	id := New(securestore.NewMemoryStore(), fakePlatform{model: "m", os: "1", vendor: "v"})
	registry := &fakeRegistry{}
	master := bytes.Repeat([]byte{0x01}, 32)

	secret, err := id.Register(context.Background(), master, registry, "tok", "My Phone", "ua/1.0")
	require.NoError(t, err)
	assert.Equal(t, []byte("server-issued-secret-bytes"), secret)
	assert.NotEmpty(t, registry.lastReq.DeviceID)
	assert.NotEmpty(t, registry.lastReq.EncryptedName)
	assert.Equal(t, "ua/1.0", registry.lastReq.UserAgent)
}

func TestDeviceShare_SealOpenRoundTrip(t *testing.T) {
	id := New(securestore.NewMemoryStore(), fakePlatform{model: "m", os: "1", vendor: "v"})
	secret := []byte("device-secret")
	share := bytes.Repeat([]byte{0xAB}, 32)

	require.False(t, id.HasDeviceShare())
	require.NoError(t, id.SealDeviceShare(secret, share))
	require.True(t, id.HasDeviceShare())

	got, err := id.OpenDeviceShare(secret)
	require.NoError(t, err)
	assert.Equal(t, share, got)
}

func TestOpenDeviceShare_NotProvisionedWhenNeverSealed(t *testing.T) {
	id := New(securestore.NewMemoryStore(), fakePlatform{model: "m", os: "1", vendor: "v"})
	_, err := id.OpenDeviceShare([]byte("secret"))
	assert.ErrorIs(t, err, ErrNotProvisioned)
}

func TestLocalRecoveryShare_SealOpenRoundTrip(t *testing.T) {
	id := New(securestore.NewMemoryStore(), fakePlatform{model: "m", os: "1", vendor: "v"})
	secret := []byte("device-secret")
	recoveryShare := bytes.Repeat([]byte{0xCD}, 32)

	require.NoError(t, id.SealLocalRecoveryShare(secret, recoveryShare))
	got, err := id.OpenLocalRecoveryShare(secret)
	require.NoError(t, err)
	assert.Equal(t, recoveryShare, got)
}

func TestOpenLocalRecoveryShare_NotProvisionedWhenNeverSealed(t *testing.T) {
	id := New(securestore.NewMemoryStore(), fakePlatform{model: "m", os: "1", vendor: "v"})
	_, err := id.OpenLocalRecoveryShare([]byte("secret"))
	assert.ErrorIs(t, err, ErrNotProvisioned)
}

func TestDeviceShare_WrongSecretFailsToOpen(t *testing.T) {
	id := New(securestore.NewMemoryStore(), fakePlatform{model: "m", os: "1", vendor: "v"})
	share := bytes.Repeat([]byte{0xAB}, 32)
	require.NoError(t, id.SealDeviceShare([]byte("correct-secret"), share))

	_, err := id.OpenDeviceShare([]byte("wrong-secret"))
	assert.Error(t, err)
}
