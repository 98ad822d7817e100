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

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Provision an account, then list and revoke its registered devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rig := newDemoRig()
		if _, err := rig.setup(ctx); err != nil {
			return err
		}

		devices, err := rig.ctx.ListDevices(ctx, token)
		if err != nil {
			return fmt.Errorf("list devices: %w", err)
		}
		for _, d := range devices {
			fmt.Printf("device %s  platform=%s  registered=%s\n", d.DeviceID, d.Platform, d.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
		}

		if len(devices) == 0 {
			return nil
		}
		revoked := devices[0].DeviceID
		if err := rig.ctx.RevokeDevice(ctx, token, revoked); err != nil {
			return fmt.Errorf("revoke device: %w", err)
		}
		fmt.Println("revoked:", revoked)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
