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

	"github.com/onera-app/onera-core/pkg/core/chat"
	"github.com/spf13/cobra"
)

var chatTitle string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Provision an account, then seal, open, and update a chat",
	Long: `chat demonstrates the symmetric envelope layer: after setup it seals
a new chat under a freshly-generated chat key, opens it back (exercising
the chat-key cache), appends a message, and re-seals it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rig := newDemoRig()
		if _, err := rig.setup(ctx); err != nil {
			return err
		}

		const chatID = "demo-chat-1"
		messages := []chat.Message{{Role: "user", Content: "hello", CreatedAt: 0}}
		if err := rig.ctx.Chats.Create(ctx, token, chatID, chatTitle, messages); err != nil {
			return fmt.Errorf("seal chat: %w", err)
		}
		fmt.Println("chat sealed:", chatID)

		opened, err := rig.ctx.Chats.Open(ctx, token, chatID)
		if err != nil {
			return fmt.Errorf("open chat: %w", err)
		}
		fmt.Printf("chat opened: title=%q messages=%d\n", opened.Title, len(opened.Body.Messages))

		opened.Body.Messages = append(opened.Body.Messages, chat.Message{Role: "assistant", Content: "hi there", CreatedAt: 1})
		if err := rig.ctx.Chats.Update(ctx, token, chatID, opened.Title, opened.Body.Messages); err != nil {
			return fmt.Errorf("update chat: %w", err)
		}
		fmt.Println("chat updated, now", len(opened.Body.Messages), "messages")

		ids, err := rig.ctx.Chats.List(ctx, token)
		if err != nil {
			return fmt.Errorf("list chats: %w", err)
		}
		fmt.Println("chats:", ids)
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatTitle, "title", "demo chat", "title for the chat created by this demo")
	rootCmd.AddCommand(chatCmd)
}
