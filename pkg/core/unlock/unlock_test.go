package unlock

import (
	"context"
	"testing"
	"time"

	"github.com/onera-app/onera-core/pkg/core/crypto"
	"github.com/onera-app/onera-core/pkg/core/device"
	"github.com/onera-app/onera-core/pkg/core/securestore"
	"github.com/onera-app/onera-core/pkg/core/session"
	"github.com/onera-app/onera-core/pkg/core/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct{}

func (fakePlatform) Platform() string  { return "test" }
func (fakePlatform) Model() string     { return "unit-test" }
func (fakePlatform) OSVersion() string { return "0" }
func (fakePlatform) VendorID() string  { return "test-vendor" }

type fakeShareStore struct {
	record *transport.KeySharesRecord
	pwEnv  *transport.PasswordEnvelope
	pkEnv  map[string]*transport.PasskeyEnvelope
	pkOpts []transport.PasskeyAuthOption
}

func newFakeShareStore() *fakeShareStore {
	return &fakeShareStore{pkEnv: make(map[string]*transport.PasskeyEnvelope)}
}

func (f *fakeShareStore) Check(ctx context.Context, token string) (bool, error) {
	return f.record != nil, nil
}
func (f *fakeShareStore) Get(ctx context.Context, token string) (*transport.KeySharesRecord, error) {
	if f.record == nil {
		return nil, assert.AnError
	}
	cp := *f.record
	return &cp, nil
}
func (f *fakeShareStore) Create(ctx context.Context, token string, record *transport.KeySharesRecord) error {
	cp := *record
	f.record = &cp
	return nil
}
func (f *fakeShareStore) Update(ctx context.Context, token string, record *transport.KeySharesRecord) error {
	cp := *record
	f.record = &cp
	return nil
}
func (f *fakeShareStore) GetPasswordEnvelope(ctx context.Context, token string) (*transport.PasswordEnvelope, error) {
	if f.pwEnv == nil {
		return nil, assert.AnError
	}
	return f.pwEnv, nil
}
func (f *fakeShareStore) GetPasskeyOptions(ctx context.Context, token string) ([]transport.PasskeyAuthOption, error) {
	return f.pkOpts, nil
}
func (f *fakeShareStore) GetPasskeyEnvelope(ctx context.Context, token, credentialID string) (*transport.PasskeyEnvelope, error) {
	env, ok := f.pkEnv[credentialID]
	if !ok {
		return nil, assert.AnError
	}
	return env, nil
}
func (f *fakeShareStore) CreatePasskeyEnvelope(ctx context.Context, token string, envelope *transport.PasskeyEnvelope) error {
	f.pkEnv[envelope.CredentialID] = envelope
	return nil
}

type fakeRegistry struct {
	secrets map[string][]byte
}

func newFakeRegistry() *fakeRegistry { return &fakeRegistry{secrets: make(map[string][]byte)} }

func (r *fakeRegistry) Register(ctx context.Context, token string, req transport.DeviceRegistrationRequest) ([]byte, error) {
	secret, err := crypto.Random(32)
	if err != nil {
		return nil, err
	}
	r.secrets[req.DeviceID] = secret
	return secret, nil
}
func (r *fakeRegistry) GetSecret(ctx context.Context, token, deviceID string) ([]byte, error) {
	secret, ok := r.secrets[deviceID]
	if !ok {
		return nil, assert.AnError
	}
	return secret, nil
}
func (r *fakeRegistry) UpdateLastSeen(ctx context.Context, token, deviceID string) error { return nil }
func (r *fakeRegistry) List(ctx context.Context, token string) ([]transport.Device, error) {
	return nil, nil
}
func (r *fakeRegistry) Revoke(ctx context.Context, token, deviceID string) error { return nil }

type fakePasskeys struct {
	assertion *transport.PasskeyAssertion
	creation  *transport.PasskeyCreation
	err       error
}

func (p *fakePasskeys) CreateCredential(ctx context.Context, options any) (*transport.PasskeyCreation, error) {
	return p.creation, p.err
}
func (p *fakePasskeys) Authenticate(ctx context.Context, options []transport.PasskeyAuthOption) (*transport.PasskeyAssertion, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.assertion, nil
}

func newTestOrchestrator(passkeys transport.PasskeyProvider) (*Orchestrator, *fakeShareStore, *fakeRegistry, *session.Session) {
	store := securestore.NewMemoryStore()
	identity := device.New(store, fakePlatform{})
	shareStore := newFakeShareStore()
	registry := newFakeRegistry()
	sess := session.New(transport.RealClock{}, session.Config{IdleTimeout: time.Hour, BackgroundTimeout: time.Hour})
	return New(store, identity, shareStore, registry, passkeys, sess), shareStore, registry, sess
}

func TestSetup_UnlocksSessionAndReturnsMnemonic(t *testing.T) {
	o, _, _, sess := newTestOrchestrator(nil)
	result, err := o.Setup(context.Background(), "tok", "device-1", "ua/1.0")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Mnemonic)
	assert.True(t, crypto.MnemonicValidate(result.Mnemonic))
	assert.True(t, sess.IsUnlocked())
}

func TestUnlockWithDeviceShare_SilentlyUnlocksAfterSetup(t *testing.T) {
	o, _, _, sess := newTestOrchestrator(nil)
	_, err := o.Setup(context.Background(), "tok", "device-1", "ua/1.0")
	require.NoError(t, err)

	sess.Lock(session.LockReasonExplicit)
	require.False(t, sess.IsUnlocked())

	err = o.UnlockWithDeviceShare(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, sess.IsUnlocked())
}

func TestUnlockWithDeviceShare_FailsWithoutLocalShare(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(nil)
	err := o.UnlockWithDeviceShare(context.Background(), "tok")
	var unlockErr *Error
	require.ErrorAs(t, err, &unlockErr)
	assert.Equal(t, KindDeviceNotProvisioned, unlockErr.Kind)
}

func TestUnlockWithPassword_SuccessAndBadPassword(t *testing.T) {
	o, shareStore, _, sess := newTestOrchestrator(nil)
	_, err := o.Setup(context.Background(), "tok", "device-1", "ua/1.0")
	require.NoError(t, err)

	master, ok := sess.MasterKey()
	require.True(t, ok)
	masterCopy := append([]byte(nil), master...)

	params := crypto.DefaultArgon2Params
	salt, err := crypto.Random(16)
	require.NoError(t, err)
	kek := crypto.KDFPassword([]byte("correct horse"), salt, params)
	ciphertext, nonce, err := crypto.AEADSeal(kek, masterCopy)
	require.NoError(t, err)
	shareStore.pwEnv = &transport.PasswordEnvelope{
		Ciphertext: ciphertext, Nonce: nonce, Salt: salt,
		Ops: params.Ops, Mem: params.Mem, Threads: params.Threads,
	}

	sess.Lock(session.LockReasonExplicit)

	err = o.UnlockWithPassword(context.Background(), "tok", "wrong password")
	var unlockErr *Error
	require.ErrorAs(t, err, &unlockErr)
	assert.Equal(t, KindBadPassword, unlockErr.Kind)
	assert.False(t, sess.IsUnlocked())

	err = o.UnlockWithPassword(context.Background(), "tok", "correct horse")
	require.NoError(t, err)
	assert.True(t, sess.IsUnlocked())
}

func TestUnlockWithPasskey_PRFSuccess(t *testing.T) {
	o, _, _, sess := newTestOrchestrator(&fakePasskeys{})
	_, err := o.Setup(context.Background(), "tok", "device-1", "ua/1.0")
	require.NoError(t, err)

	master, ok := sess.MasterKey()
	require.True(t, ok)
	masterCopy := append([]byte(nil), master...)

	prfOutput, err := crypto.Random(32)
	require.NoError(t, err)
	prfSalt, err := crypto.Random(16)
	require.NoError(t, err)

	passkeys := &fakePasskeys{
		creation:  &transport.PasskeyCreation{CredentialID: "cred-1", PRFOutput: prfOutput},
		assertion: &transport.PasskeyAssertion{CredentialID: "cred-1", PRFOutput: prfOutput},
	}
	o.passkeys = passkeys

	require.NoError(t, o.EnrollPasskey(context.Background(), "tok", prfSalt))

	sess.Lock(session.LockReasonExplicit)
	require.NoError(t, o.UnlockWithPasskey(context.Background(), "tok"))
	assert.True(t, sess.IsUnlocked())

	reopened, ok := sess.MasterKey()
	require.True(t, ok)
	assert.Equal(t, masterCopy, reopened)
}

func TestUnlockWithPasskey_CancelledMapsToPasskeyCancelled(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(&fakePasskeys{err: transport.ErrPasskeyCancelled})
	err := o.UnlockWithPasskey(context.Background(), "tok")
	var unlockErr *Error
	require.ErrorAs(t, err, &unlockErr)
	assert.Equal(t, KindPasskeyCancelled, unlockErr.Kind)
}

func TestUnlockWithPasskey_NoProviderIsUnavailable(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(nil)
	err := o.UnlockWithPasskey(context.Background(), "tok")
	var unlockErr *Error
	require.ErrorAs(t, err, &unlockErr)
	assert.Equal(t, KindPasskeyUnavailable, unlockErr.Kind)
}

func TestUnlockWithMnemonic_SuccessReprovisionsDeviceShare(t *testing.T) {
	o, _, _, sess := newTestOrchestrator(nil)
	result, err := o.Setup(context.Background(), "tok", "device-1", "ua/1.0")
	require.NoError(t, err)

	sess.Lock(session.LockReasonExplicit)

	err = o.UnlockWithMnemonic(context.Background(), "tok", result.Mnemonic, "device-1", "ua/1.0")
	require.NoError(t, err)
	assert.True(t, sess.IsUnlocked())

	// The silent device-share path must keep working after re-provisioning.
	sess.Lock(session.LockReasonExplicit)
	require.NoError(t, o.UnlockWithDeviceShare(context.Background(), "tok"))
	assert.True(t, sess.IsUnlocked())
}

func TestUnlockWithMnemonic_InvalidChecksumRejected(t *testing.T) {
	o, _, _, sess := newTestOrchestrator(nil)
	err := o.UnlockWithMnemonic(context.Background(), "tok", "not a valid mnemonic phrase at all", "device-1", "ua/1.0")
	var unlockErr *Error
	require.ErrorAs(t, err, &unlockErr)
	assert.Equal(t, KindInvalidMnemonic, unlockErr.Kind)
	assert.False(t, sess.IsUnlocked())
}

func TestUnlockWithMnemonic_WrongPhraseFailsWithoutPartialUnlock(t *testing.T) {
	o, _, _, sess := newTestOrchestrator(nil)
	_, err := o.Setup(context.Background(), "tok", "device-1", "ua/1.0")
	require.NoError(t, err)
	sess.Lock(session.LockReasonExplicit)

	other, err := crypto.MnemonicGenerate()
	require.NoError(t, err)

	err = o.UnlockWithMnemonic(context.Background(), "tok", other, "device-1", "ua/1.0")
	var unlockErr *Error
	require.ErrorAs(t, err, &unlockErr)
	assert.Equal(t, KindBadRecoveryKey, unlockErr.Kind)
	assert.False(t, sess.IsUnlocked(), "a failed mnemonic unlock must never leave the session unlocked")
}
