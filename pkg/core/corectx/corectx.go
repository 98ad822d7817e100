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

// Package corectx is onera-core's composition root (spec.md §9): it
// explicitly constructs and wires together every collaborator the rest
// of the system needs, in one place, the way pkg/agent/core.Core builds
// its crypto/DID/verification trio in New rather than reaching for
// package-level globals. Nothing in this package is a singleton var;
// every dependent is handed a *CoreContext (or one of its fields)
// directly by its caller.
package corectx

import (
	"context"
	"fmt"

	"github.com/onera-app/onera-core/internal/config"
	"github.com/onera-app/onera-core/internal/logger"
	"github.com/onera-app/onera-core/pkg/core/attestation"
	"github.com/onera-app/onera-core/pkg/core/chat"
	"github.com/onera-app/onera-core/pkg/core/device"
	"github.com/onera-app/onera-core/pkg/core/inference"
	"github.com/onera-app/onera-core/pkg/core/securestore"
	"github.com/onera-app/onera-core/pkg/core/session"
	"github.com/onera-app/onera-core/pkg/core/transport"
	"github.com/onera-app/onera-core/pkg/core/unlock"
	"github.com/onera-app/onera-core/pkg/core/vault"
)

// Collaborators bundles every externally-supplied dependency corectx
// cannot construct itself: the server-side RPC surfaces and platform
// capabilities spec.md §6 declares but never implements. Production
// wiring of these (iOS Keychain, the onera-api HTTP client, a WebAuthn
// platform bridge) lives outside this repository.
type Collaborators struct {
	Store          securestore.Store
	Platform       transport.PlatformInfo
	Clock          transport.Clock
	KeyShares      transport.KeyShareStore
	DeviceRegistry transport.DeviceRegistry
	Passkeys       transport.PasskeyProvider // nil if this deployment offers no passkey unlock
	ChatBlobs      transport.BlobStore
	VaultBlobs     transport.BlobStore
	TrustRoots     []attestation.Root
}

// CoreContext owns the fully-wired collaborator graph: one SecureSession,
// one DeviceIdentity, one unlock Orchestrator, and the entity services
// built on top of them. Construct once per process (or once per test)
// via New.
type CoreContext struct {
	Config *config.Config
	Logger logger.Logger

	Session  *session.Session
	Identity *device.Identity
	Unlock   *unlock.Orchestrator
	Chats    *chat.Service
	Vault    *vault.Vault
	Attest   *attestation.Verifier

	chatCache      *chat.KeyCache
	deviceRegistry transport.DeviceRegistry
}

// New wires a CoreContext from cfg and collab. cfg may be nil, in which
// case production defaults apply throughout (session.DefaultConfig,
// chat.DefaultCacheSize/TTL, attestation.DefaultFetchTimeout).
func New(cfg *config.Config, collab Collaborators, log logger.Logger) (*CoreContext, error) {
	if collab.Store == nil {
		return nil, fmt.Errorf("corectx: Collaborators.Store is required")
	}
	if collab.Platform == nil {
		return nil, fmt.Errorf("corectx: Collaborators.Platform is required")
	}
	if collab.KeyShares == nil || collab.DeviceRegistry == nil {
		return nil, fmt.Errorf("corectx: Collaborators.KeyShares and DeviceRegistry are required")
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	clock := collab.Clock
	if clock == nil {
		clock = transport.RealClock{}
	}

	sessionCfg := session.DefaultConfig()
	cacheSize, cacheTTL := chat.DefaultCacheSize, chat.DefaultCacheTTL
	attestCfg := attestation.Config{}
	if cfg != nil {
		if cfg.Session != nil {
			sessionCfg = session.Config{IdleTimeout: cfg.Session.IdleTimeout, BackgroundTimeout: cfg.Session.BackgroundTimeout}
		}
		if cfg.ChatCache != nil {
			cacheSize, cacheTTL = cfg.ChatCache.Size, cfg.ChatCache.TTL
		}
		if cfg.Attestation != nil {
			attestCfg.FetchTimeout = cfg.Attestation.FetchTimeout
		}
	}

	sess := session.New(clock, sessionCfg)
	identity := device.New(collab.Store, collab.Platform)
	orchestrator := unlock.New(collab.Store, identity, collab.KeyShares, collab.DeviceRegistry, collab.Passkeys, sess)

	cc := &CoreContext{
		Config:         cfg,
		Logger:         log,
		Session:        sess,
		Identity:       identity,
		Unlock:         orchestrator,
		deviceRegistry: collab.DeviceRegistry,
	}

	if collab.ChatBlobs != nil {
		cc.chatCache = chat.NewKeyCache(cacheSize, cacheTTL)
		cc.Chats = chat.NewService(collab.ChatBlobs, cc.chatCache, sess.MasterKey)
		sess.OnLock(func(reason session.LockReason) {
			cc.chatCache.Clear()
			log.Info("chat key cache cleared on lock", logger.String("reason", string(reason)))
		})
	}

	if collab.VaultBlobs != nil {
		cc.Vault = vault.New(collab.VaultBlobs, sess.MasterKey)
	}

	if len(collab.TrustRoots) > 0 {
		cc.Attest = attestation.New(collab.TrustRoots, attestCfg)
	}

	return cc, nil
}

// ListDevices returns every device registered to this account, via the
// DeviceRegistry collaborator (spec.md §6).
func (cc *CoreContext) ListDevices(ctx context.Context, token string) ([]transport.Device, error) {
	return cc.deviceRegistry.List(ctx, token)
}

// RevokeDevice revokes deviceID's registration, invalidating its
// device_secret server-side.
func (cc *CoreContext) RevokeDevice(ctx context.Context, token, deviceID string) error {
	return cc.deviceRegistry.Revoke(ctx, token, deviceID)
}

// NewInferenceChannel builds a fresh, single-use Channel against this
// CoreContext's AttestationVerifier (spec.md §4.11). Returns an error if
// no trust roots were configured.
func (cc *CoreContext) NewInferenceChannel() (*inference.Channel, error) {
	if cc.Attest == nil {
		return nil, fmt.Errorf("corectx: no attestation trust roots configured")
	}
	handshakeTimeout := inference.DefaultHandshakeTimeout
	if cc.Config != nil && cc.Config.Handshake != nil && cc.Config.Handshake.Timeout > 0 {
		handshakeTimeout = cc.Config.Handshake.Timeout
	}
	return inference.New(cc.Attest, handshakeTimeout), nil
}

// Shutdown locks the session and releases process-owned resources
// (the chat cache's background GC goroutine). Call once at teardown.
func (cc *CoreContext) Shutdown() {
	cc.Session.Shutdown()
	if cc.chatCache != nil {
		cc.chatCache.Close()
	}
}
