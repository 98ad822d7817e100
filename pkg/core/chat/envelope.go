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

// Package chat implements ChatEnvelope sealing/opening and the
// ChatKeyCache (spec.md §4.7): per-chat data-encryption keys wrapped
// under the master key, with title and message-body sealing under the
// chat key itself.
package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/onera-app/onera-core/pkg/core/crypto"
)

// Message is one entry of a ChatBody (spec.md §3).
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// Body is the versioned payload sealed as encrypted_body. version=1 is
// the only format this repo emits or accepts.
type Body struct {
	Messages []Message `json:"messages"`
	Version  int       `json:"version"`
}

// CurrentBodyVersion is the ChatBody.version this repo writes.
const CurrentBodyVersion = 1

// Envelope is the six-base64-field-plus-timestamps shape spec.md §3/§6
// defines. Fields here are raw bytes; callers base64-encode at the
// BlobStore boundary.
type Envelope struct {
	EncryptedChatKey []byte
	ChatKeyNonce     []byte
	EncryptedTitle   []byte
	TitleNonce       []byte
	EncryptedBody    []byte
	BodyNonce        []byte
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ErrDecryptionFailed is returned by Open on any AEAD failure, without
// distinguishing which field or why (spec.md §7).
var ErrDecryptionFailed = fmt.Errorf("chat: could not decrypt")

// Seal creates a fresh envelope for a new chat: generates a chat key,
// wraps it under masterKey, then seals title and body under the chat
// key, per spec.md §4.7.
func Seal(masterKey []byte, title string, messages []Message) (*Envelope, []byte, error) {
	chatKey, err := crypto.Random(crypto.KeySize)
	if err != nil {
		return nil, nil, fmt.Errorf("chat: generate chat key: %w", err)
	}
	env, err := SealWithKey(masterKey, chatKey, title, messages)
	if err != nil {
		crypto.Zeroize(chatKey)
		return nil, nil, err
	}
	return env, chatKey, nil
}

// SealWithKey seals title and messages under an existing chatKey
// (re-sealing an already-opened chat after an edit), wrapping chatKey
// under masterKey for storage.
func SealWithKey(masterKey, chatKey []byte, title string, messages []Message) (*Envelope, error) {
	wrap, wrapNonce, err := crypto.AEADSeal(masterKey, chatKey)
	if err != nil {
		return nil, fmt.Errorf("chat: wrap chat key: %w", err)
	}

	titleCT, titleNonce, err := crypto.AEADSeal(chatKey, []byte(title))
	if err != nil {
		return nil, fmt.Errorf("chat: seal title: %w", err)
	}

	body := Body{Messages: messages, Version: CurrentBodyVersion}
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("chat: marshal body: %w", err)
	}
	bodyCT, bodyNonce, err := crypto.AEADSeal(chatKey, bodyJSON)
	if err != nil {
		return nil, fmt.Errorf("chat: seal body: %w", err)
	}

	now := time.Now()
	return &Envelope{
		EncryptedChatKey: wrap,
		ChatKeyNonce:     wrapNonce,
		EncryptedTitle:   titleCT,
		TitleNonce:       titleNonce,
		EncryptedBody:    bodyCT,
		BodyNonce:        bodyNonce,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Opened is a fully-decrypted chat: the recovered chat key (so callers
// can cache it), title, and message body.
type Opened struct {
	ChatKey []byte
	Title   string
	Body    Body
}

// Open unwraps env.EncryptedChatKey under masterKey, then opens the
// title and body under the recovered chat key. Any AEAD failure maps to
// the generic ErrDecryptionFailed (spec.md §7: never leak which field
// was at fault).
func Open(masterKey []byte, env *Envelope) (*Opened, error) {
	chatKey, err := crypto.AEADOpen(masterKey, env.EncryptedChatKey, env.ChatKeyNonce)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return OpenWithKey(chatKey, env)
}

// OpenWithKey opens env's title and body using an already-unwrapped
// chatKey (the ChatKeyCache hit path, avoiding a master-key unwrap).
func OpenWithKey(chatKey []byte, env *Envelope) (*Opened, error) {
	titlePT, err := crypto.AEADOpen(chatKey, env.EncryptedTitle, env.TitleNonce)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	bodyPT, err := crypto.AEADOpen(chatKey, env.EncryptedBody, env.BodyNonce)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	var body Body
	if err := json.Unmarshal(bodyPT, &body); err != nil {
		return nil, fmt.Errorf("chat: malformed chat body: %w", err)
	}

	return &Opened{ChatKey: chatKey, Title: string(titlePT), Body: body}, nil
}
