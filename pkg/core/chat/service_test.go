package chat

import (
	"bytes"
	"context"
	"testing"
	"time"

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

func TestService_CreateOpen_RoundTrip(t *testing.T) {
	master := bytes.Repeat([]byte{0x09}, 32)
	store := newFakeBlobStore()
	svc := NewService(store, NewKeyCache(10, time.Minute), masterKeyFunc(master, true))

	ctx := context.Background()
	messages := []Message{{Role: "user", Content: "hello"}}
	require.NoError(t, svc.Create(ctx, "tok", "chat-1", "title", messages))

	opened, err := svc.Open(ctx, "tok", "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "title", opened.Title)
	assert.Equal(t, messages, opened.Body.Messages)
}

func TestService_Open_UsesCacheWithoutMasterKey(t *testing.T) {
	master := bytes.Repeat([]byte{0x0A}, 32)
	store := newFakeBlobStore()
	cache := NewKeyCache(10, time.Minute)
	ctx := context.Background()

	unlockedSvc := NewService(store, cache, masterKeyFunc(master, true))
	require.NoError(t, unlockedSvc.Create(ctx, "tok", "chat-1", "title", nil))

	lockedSvc := NewService(store, cache, masterKeyFunc(nil, false))
	opened, err := lockedSvc.Open(ctx, "tok", "chat-1")
	require.NoError(t, err, "a cache hit should not require the master key")
	assert.Equal(t, "title", opened.Title)
}

func TestService_Create_FailsWhenLocked(t *testing.T) {
	store := newFakeBlobStore()
	svc := NewService(store, NewKeyCache(10, time.Minute), masterKeyFunc(nil, false))

	err := svc.Create(context.Background(), "tok", "chat-1", "title", nil)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestService_Update_ReSealsUnderSameChatKey(t *testing.T) {
	master := bytes.Repeat([]byte{0x0B}, 32)
	store := newFakeBlobStore()
	svc := NewService(store, NewKeyCache(10, time.Minute), masterKeyFunc(master, true))
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "tok", "chat-1", "title", nil))
	updated := []Message{{Role: "assistant", Content: "reply"}}
	require.NoError(t, svc.Update(ctx, "tok", "chat-1", "new title", updated))

	opened, err := svc.Open(ctx, "tok", "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "new title", opened.Title)
	assert.Equal(t, updated, opened.Body.Messages)
}

func TestService_Delete_EvictsCache(t *testing.T) {
	master := bytes.Repeat([]byte{0x0C}, 32)
	store := newFakeBlobStore()
	cache := NewKeyCache(10, time.Minute)
	svc := NewService(store, cache, masterKeyFunc(master, true))
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "tok", "chat-1", "title", nil))
	require.NoError(t, svc.Delete(ctx, "tok", "chat-1"))

	_, ok := cache.Get("chat-1")
	assert.False(t, ok)
	_, err := store.Get(ctx, "tok", "chat-1")
	assert.Error(t, err)
}

func TestService_List(t *testing.T) {
	master := bytes.Repeat([]byte{0x0D}, 32)
	store := newFakeBlobStore()
	svc := NewService(store, NewKeyCache(10, time.Minute), masterKeyFunc(master, true))
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "tok", "chat-1", "a", nil))
	require.NoError(t, svc.Create(ctx, "tok", "chat-2", "b", nil))

	ids, err := svc.List(ctx, "tok")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"chat-1", "chat-2"}, ids)
}
