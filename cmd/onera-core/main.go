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

// Command onera-core is a demonstration harness for the E2EE core: it
// drives setup -> unlock -> seal-chat -> lock against in-memory
// collaborator stubs, with no server or platform bridge required.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	token      string
	deviceName string
)

var rootCmd = &cobra.Command{
	Use:   "onera-core",
	Short: "Demo CLI for the onera E2EE core",
	Long: `onera-core exercises the client-side end-to-end-encryption core
against in-memory collaborator stubs standing in for the onera API,
the device Keychain, and a WebAuthn platform bridge. Every subcommand
provisions its own fresh account, since nothing here is persisted
across process invocations.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&token, "token", "demo-account", "account token identifying the demo session")
	rootCmd.PersistentFlags().StringVar(&deviceName, "device-name", "onera-core-cli", "device name registered with the device registry")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
