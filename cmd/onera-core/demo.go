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

package main

import (
	"context"
	"fmt"

	"github.com/onera-app/onera-core/internal/logger"
	"github.com/onera-app/onera-core/pkg/core/corectx"
	"github.com/onera-app/onera-core/pkg/core/securestore"
)

// demoRig bundles one freshly-wired CoreContext plus the in-memory
// server-side stubs backing it, so each subcommand can drive its own
// isolated setup -> unlock -> seal-chat -> lock run without a real
// backend or platform bridge.
type demoRig struct {
	ctx *corectx.CoreContext
	log logger.Logger
}

func newDemoRig() *demoRig {
	log := logger.GetDefaultLogger()
	collab := corectx.Collaborators{
		Store:          securestore.NewMemoryStore(),
		Platform:       cliPlatformInfo{},
		KeyShares:      newMemKeyShareStore(),
		DeviceRegistry: newMemDeviceRegistry(),
		ChatBlobs:      newMemBlobStore(),
		VaultBlobs:     newMemBlobStore(),
	}
	cc, err := corectx.New(nil, collab, log)
	if err != nil {
		// The collaborators above are always fully populated; New only
		// fails when a required collaborator is missing.
		panic(fmt.Sprintf("onera-core demo: wiring corectx: %v", err))
	}
	return &demoRig{ctx: cc, log: log}
}

// setup runs the one-time provisioning flow and returns the mnemonic
// the caller must display and discard.
func (r *demoRig) setup(ctx context.Context) (string, error) {
	result, err := r.ctx.Unlock.Setup(ctx, token, deviceName, "onera-core-cli/1.0")
	if err != nil {
		return "", fmt.Errorf("setup: %w", err)
	}
	return result.Mnemonic, nil
}
