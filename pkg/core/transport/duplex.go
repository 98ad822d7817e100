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

package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Duplex is the raw binary frame transport InferenceChannel drives the
// Noise_NK handshake and the encrypted transport-cipher frames over.
// It carries opaque bytes only — no framing, signing, or encryption of
// its own; that's NoiseNK's and InferenceChannel's job.
type Duplex interface {
	WriteFrame(ctx context.Context, frame []byte) error
	ReadFrame(ctx context.Context) ([]byte, error)
	Close() error
}

// WSDuplex implements Duplex over a gorilla/websocket binary connection.
// Adapted from the teacher's WSTransport: a dial/read/write-timeout
// triple and a connection mutex, generalized from a request/response
// wire shape to a plain bidirectional frame stream (Noise has no message
// IDs to correlate).
type WSDuplex struct {
	url          string
	dialTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSDuplex creates a WSDuplex that will dial url with the given
// timeouts on first use.
func NewWSDuplex(url string, dialTimeout, readTimeout, writeTimeout time.Duration) *WSDuplex {
	return &WSDuplex{url: url, dialTimeout: dialTimeout, readTimeout: readTimeout, writeTimeout: writeTimeout}
}

// Dial establishes the WebSocket connection. InferenceChannel.connect
// calls this before the NK handshake begins.
func (d *WSDuplex) Dial(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return nil
	}

	dialer := &websocket.Dialer{HandshakeTimeout: d.dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, d.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("transport: websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("transport: websocket dial failed: %w", err)
	}
	d.conn = conn
	return nil
}

// WriteFrame sends one binary frame.
func (d *WSDuplex) WriteFrame(ctx context.Context, frame []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return fmt.Errorf("transport: not connected")
	}
	if err := d.conn.SetWriteDeadline(time.Now().Add(d.writeTimeout)); err != nil {
		return fmt.Errorf("transport: set write deadline: %w", err)
	}
	if err := d.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("transport: write frame: %w", err)
	}
	return nil
}

// ReadFrame blocks for the next binary frame, or returns an error once
// the peer closes the connection or the read deadline elapses.
func (d *WSDuplex) ReadFrame(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()

	if conn == nil {
		return nil, fmt.Errorf("transport: not connected")
	}
	if err := conn.SetReadDeadline(time.Now().Add(d.readTimeout)); err != nil {
		return nil, fmt.Errorf("transport: set read deadline: %w", err)
	}

	kind, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("transport: read frame: %w", err)
	}
	if kind != websocket.BinaryMessage {
		return nil, fmt.Errorf("transport: unexpected frame kind %d", kind)
	}
	return data, nil
}

// Close sends a normal-closure control frame and tears down the
// connection. Idempotent.
func (d *WSDuplex) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	_ = d.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := d.conn.Close()
	d.conn = nil
	return err
}
