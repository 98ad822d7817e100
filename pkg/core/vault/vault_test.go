package vault

import (
	"bytes"
	"context"
	"testing"

	"github.com/onera-app/onera-core/pkg/core/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlobStore struct {
	records map[string]*transport.EncryptedRecord
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{records: make(map[string]*transport.EncryptedRecord)}
}

func (f *fakeBlobStore) List(ctx context.Context, token string) ([]transport.EncryptedSummary, error) {
	out := make([]transport.EncryptedSummary, 0, len(f.records))
	for id := range f.records {
		out = append(out, transport.EncryptedSummary{ID: id})
	}
	return out, nil
}

func (f *fakeBlobStore) Get(ctx context.Context, token, id string) (*transport.EncryptedRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, assert.AnError
	}
	return rec, nil
}

func (f *fakeBlobStore) Create(ctx context.Context, token string, record *transport.EncryptedRecord) (string, error) {
	if _, exists := f.records[record.ID]; exists {
		return "", assert.AnError
	}
	f.records[record.ID] = record
	return record.ID, nil
}

func (f *fakeBlobStore) Update(ctx context.Context, token string, record *transport.EncryptedRecord) error {
	f.records[record.ID] = record
	return nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, token, id string) error {
	delete(f.records, id)
	return nil
}

func masterKeyFunc(master []byte, unlocked bool) MasterKeyFunc {
	return func() ([]byte, bool) {
		if !unlocked {
			return nil, false
		}
		return master, true
	}
}

func TestVault_StoreFetch_RoundTrip(t *testing.T) {
	master := bytes.Repeat([]byte{0x01}, 32)
	v := New(newFakeBlobStore(), masterKeyFunc(master, true))
	ctx := context.Background()

	require.NoError(t, v.Store(ctx, "tok", "openai", []byte("sk-test-key")))

	cred, err := v.Fetch(ctx, "tok", "openai")
	require.NoError(t, err)
	defer cred.Close()
	assert.Equal(t, []byte("sk-test-key"), cred.Bytes())
}

func TestVault_Store_FailsWhenLocked(t *testing.T) {
	v := New(newFakeBlobStore(), masterKeyFunc(nil, false))
	err := v.Store(context.Background(), "tok", "openai", []byte("key"))
	assert.ErrorIs(t, err, ErrLocked)
}

func TestVault_Fetch_FailsWhenLocked(t *testing.T) {
	master := bytes.Repeat([]byte{0x02}, 32)
	store := newFakeBlobStore()
	v := New(store, masterKeyFunc(master, true))
	require.NoError(t, v.Store(context.Background(), "tok", "openai", []byte("key")))

	locked := New(store, masterKeyFunc(nil, false))
	_, err := locked.Fetch(context.Background(), "tok", "openai")
	assert.ErrorIs(t, err, ErrLocked)
}

func TestVault_Fetch_WrongMasterKeyFails(t *testing.T) {
	master := bytes.Repeat([]byte{0x03}, 32)
	wrong := bytes.Repeat([]byte{0x04}, 32)
	store := newFakeBlobStore()
	v := New(store, masterKeyFunc(master, true))
	require.NoError(t, v.Store(context.Background(), "tok", "openai", []byte("key")))

	wrongVault := New(store, masterKeyFunc(wrong, true))
	_, err := wrongVault.Fetch(context.Background(), "tok", "openai")
	assert.Error(t, err)
}

func TestVault_DecryptedCredential_PanicsAfterClose(t *testing.T) {
	master := bytes.Repeat([]byte{0x05}, 32)
	v := New(newFakeBlobStore(), masterKeyFunc(master, true))
	require.NoError(t, v.Store(context.Background(), "tok", "openai", []byte("key")))

	cred, err := v.Fetch(context.Background(), "tok", "openai")
	require.NoError(t, err)
	cred.Close()
	cred.Close() // idempotent

	assert.Panics(t, func() { cred.Bytes() })
}

func TestVault_Delete(t *testing.T) {
	master := bytes.Repeat([]byte{0x06}, 32)
	store := newFakeBlobStore()
	v := New(store, masterKeyFunc(master, true))
	require.NoError(t, v.Store(context.Background(), "tok", "openai", []byte("key")))

	require.NoError(t, v.Delete(context.Background(), "tok", "openai"))
	_, err := store.Get(context.Background(), "tok", "openai")
	assert.Error(t, err)
}

func TestVault_List(t *testing.T) {
	master := bytes.Repeat([]byte{0x07}, 32)
	v := New(newFakeBlobStore(), masterKeyFunc(master, true))
	ctx := context.Background()
	require.NoError(t, v.Store(ctx, "tok", "openai", []byte("key1")))
	require.NoError(t, v.Store(ctx, "tok", "anthropic", []byte("key2")))

	providers, err := v.List(ctx, "tok")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"openai", "anthropic"}, providers)
}
