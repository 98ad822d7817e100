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
	"fmt"

	"github.com/onera-app/onera-core/pkg/core/session"
	"github.com/spf13/cobra"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Provision an account, lock it, then unlock it again via the silent device-share path",
	Long: `unlock demonstrates the silent device-share unlock path against the
in-memory stubs: a fresh account is provisioned, locked, then brought back
to SecureSession=Unlocked via the device share this device already holds.
The password, passkey and mnemonic paths are not exercised here.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rig := newDemoRig()
		if _, err := rig.setup(ctx); err != nil {
			return err
		}

		rig.ctx.Session.Lock(session.LockReasonExplicit)
		fmt.Println("locked:", !rig.ctx.Session.IsUnlocked())

		if err := rig.ctx.Unlock.UnlockWithDeviceShare(ctx, token); err != nil {
			return fmt.Errorf("unlock with device share: %w", err)
		}
		fmt.Println("unlocked via device share:", rig.ctx.Session.IsUnlocked())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unlockCmd)
}
