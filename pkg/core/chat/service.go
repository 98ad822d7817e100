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

package chat

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/onera-app/onera-core/pkg/core/transport"
)

// MasterKeyFunc supplies the currently-unlocked master key, or
// (nil, false) when the session is locked. Mirrors vault.MasterKeyFunc
// so both entity types read the master key the same way: through
// SecureSession's current state, never a retained copy.
type MasterKeyFunc func() ([]byte, bool)

// ErrLocked is returned by every Service operation when the session is
// locked.
var ErrLocked = fmt.Errorf("chat: session locked")

// Service implements the chat half of spec.md §4.7 against a BlobStore
// collaborator and a KeyCache, the way vault.Vault binds CredentialVault
// to a BlobStore: one small adapter per entity type rather than a
// god-object owning every collaborator.
type Service struct {
	store     transport.BlobStore
	cache     *KeyCache
	masterKey MasterKeyFunc
}

// NewService constructs a Service backed by store, caching unwrapped
// chat keys in cache, reading the master key through masterKey.
func NewService(store transport.BlobStore, cache *KeyCache, masterKey MasterKeyFunc) *Service {
	return &Service{store: store, cache: cache, masterKey: masterKey}
}

// List returns the chat ids available, without opening anything.
func (s *Service) List(ctx context.Context, token string) ([]string, error) {
	summaries, err := s.store.List(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("chat: list: %w", err)
	}
	ids := make([]string, len(summaries))
	for i, sm := range summaries {
		ids[i] = sm.ID
	}
	return ids, nil
}

// Create seals a brand-new chat and uploads its envelope, caching the
// freshly-generated chat key.
func (s *Service) Create(ctx context.Context, token, chatID, title string, messages []Message) error {
	master, ok := s.masterKey()
	if !ok {
		return ErrLocked
	}

	env, chatKey, err := Seal(master, title, messages)
	if err != nil {
		return err
	}

	record := envelopeToRecord(chatID, env)
	if _, err := s.store.Create(ctx, token, record); err != nil {
		return fmt.Errorf("chat: create: %w", err)
	}
	s.cache.Put(chatID, chatKey)
	return nil
}

// Open fetches and decrypts chatID, preferring a cached chat key over
// re-unwrapping it from the master key.
func (s *Service) Open(ctx context.Context, token, chatID string) (*Opened, error) {
	record, err := s.store.Get(ctx, token, chatID)
	if err != nil {
		return nil, fmt.Errorf("chat: fetch: %w", err)
	}
	env, err := recordToEnvelope(record)
	if err != nil {
		return nil, err
	}

	if chatKey, hit := s.cache.Get(chatID); hit {
		opened, err := OpenWithKey(chatKey, env)
		if err != nil {
			return nil, err
		}
		return opened, nil
	}

	master, ok := s.masterKey()
	if !ok {
		return nil, ErrLocked
	}
	opened, err := Open(master, env)
	if err != nil {
		return nil, err
	}
	s.cache.Put(chatID, opened.ChatKey)
	return opened, nil
}

// Update re-seals title/messages under chatID's existing chat key
// (cache hit) or a newly-unwrapped one (cache miss), then uploads.
func (s *Service) Update(ctx context.Context, token, chatID, title string, messages []Message) error {
	chatKey, hit := s.cache.Get(chatID)
	if !hit {
		opened, err := s.Open(ctx, token, chatID)
		if err != nil {
			return err
		}
		chatKey = opened.ChatKey
	}

	master, ok := s.masterKey()
	if !ok {
		return ErrLocked
	}
	env, err := SealWithKey(master, chatKey, title, messages)
	if err != nil {
		return err
	}

	record := envelopeToRecord(chatID, env)
	if err := s.store.Update(ctx, token, record); err != nil {
		return fmt.Errorf("chat: update: %w", err)
	}
	s.cache.Put(chatID, chatKey)
	return nil
}

// Delete removes chatID's envelope and evicts its cached key.
func (s *Service) Delete(ctx context.Context, token, chatID string) error {
	if err := s.store.Delete(ctx, token, chatID); err != nil {
		return fmt.Errorf("chat: delete: %w", err)
	}
	s.cache.Remove(chatID)
	return nil
}

func envelopeToRecord(chatID string, env *Envelope) *transport.EncryptedRecord {
	return &transport.EncryptedRecord{
		ID: chatID,
		Fields: map[string]string{
			"encrypted_chat_key": b64(env.EncryptedChatKey),
			"chat_key_nonce":     b64(env.ChatKeyNonce),
			"encrypted_title":    b64(env.EncryptedTitle),
			"title_nonce":        b64(env.TitleNonce),
			"encrypted_body":     b64(env.EncryptedBody),
			"body_nonce":         b64(env.BodyNonce),
			"created_at":         env.CreatedAt.Format(time.RFC3339Nano),
			"updated_at":         env.UpdatedAt.Format(time.RFC3339Nano),
		},
	}
}

func recordToEnvelope(record *transport.EncryptedRecord) (*Envelope, error) {
	env := &Envelope{}
	var err error
	if env.EncryptedChatKey, err = unb64(record.Fields["encrypted_chat_key"]); err != nil {
		return nil, fmt.Errorf("chat: decode encrypted_chat_key: %w", err)
	}
	if env.ChatKeyNonce, err = unb64(record.Fields["chat_key_nonce"]); err != nil {
		return nil, fmt.Errorf("chat: decode chat_key_nonce: %w", err)
	}
	if env.EncryptedTitle, err = unb64(record.Fields["encrypted_title"]); err != nil {
		return nil, fmt.Errorf("chat: decode encrypted_title: %w", err)
	}
	if env.TitleNonce, err = unb64(record.Fields["title_nonce"]); err != nil {
		return nil, fmt.Errorf("chat: decode title_nonce: %w", err)
	}
	if env.EncryptedBody, err = unb64(record.Fields["encrypted_body"]); err != nil {
		return nil, fmt.Errorf("chat: decode encrypted_body: %w", err)
	}
	if env.BodyNonce, err = unb64(record.Fields["body_nonce"]); err != nil {
		return nil, fmt.Errorf("chat: decode body_nonce: %w", err)
	}
	env.CreatedAt, _ = time.Parse(time.RFC3339Nano, record.Fields["created_at"])
	env.UpdatedAt, _ = time.Parse(time.RFC3339Nano, record.Fields["updated_at"])
	return env, nil
}

func b64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func unb64(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }
