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

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Provision a new account: split the master key, seal every envelope, unlock",
	RunE: func(cmd *cobra.Command, args []string) error {
		rig := newDemoRig()
		mnemonic, err := rig.setup(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println("account provisioned and unlocked")
		fmt.Println("recovery phrase (write this down, it is shown once):")
		fmt.Println("  " + mnemonic)
		fmt.Println("session unlocked:", rig.ctx.Session.IsUnlocked())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
