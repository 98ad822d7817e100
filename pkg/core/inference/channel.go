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

// Package inference implements InferenceChannel (spec.md §4.11):
// composing a duplex transport, AttestationVerifier, and NoiseNK into a
// connect -> stream -> close API to a TEE inference endpoint. Grounded
// directly on pkg/agent/transport/websocket.WSTransport's
// dial/read/write timeout and connection-mutex pattern, adapted into a
// framed duplex reader/writer with the Noise transport ciphers layered
// on top.
package inference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/onera-app/onera-core/internal/metrics"
	"github.com/onera-app/onera-core/pkg/core/attestation"
	"github.com/onera-app/onera-core/pkg/core/noise"
	"github.com/onera-app/onera-core/pkg/core/transport"
)

// DefaultHandshakeTimeout and DefaultPingInterval are spec.md §5's
// defaults for the NK handshake wall-clock bound and transport
// keepalive.
const (
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultPingInterval     = 30 * time.Second
)

// Channel is a single-shot, single-connection wrapper: once closed it
// is not reusable, and connecting an already-connected Channel closes
// the prior session first (spec.md §4.11).
type Channel struct {
	verifier         *attestation.Verifier
	handshakeTimeout time.Duration

	mu     sync.Mutex
	duplex *transport.WSDuplex
	send   *noise.CipherState
	recv   *noise.CipherState
	closed bool
}

// New constructs a Channel that verifies attestation via verifier
// before every handshake.
func New(verifier *attestation.Verifier, handshakeTimeout time.Duration) *Channel {
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}
	return &Channel{verifier: verifier, handshakeTimeout: handshakeTimeout}
}

// Connect verifies attestation for attestationURL, dials endpoint, and
// performs the Noise_NK handshake over the resulting duplex. Connecting
// an already-connected channel first closes the existing session.
func (c *Channel) Connect(ctx context.Context, endpoint, attestationURL string, dialTimeout, readTimeout, writeTimeout time.Duration) error {
	c.mu.Lock()
	if c.duplex != nil {
		c.teardownLocked()
	}
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("inference: channel is closed and not reusable")
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.handshakeTimeout)
	defer cancel()

	verified, err := c.verifier.Verify(ctx, attestationURL)
	if err != nil {
		metrics.HandshakesFailed.WithLabelValues("attestation_invalid").Inc()
		return fmt.Errorf("inference: verify attestation: %w", err)
	}

	duplex := transport.NewWSDuplex(endpoint, dialTimeout, readTimeout, writeTimeout)
	if err := duplex.Dial(ctx); err != nil {
		metrics.HandshakesFailed.WithLabelValues("transport_error").Inc()
		return fmt.Errorf("inference: dial: %w", err)
	}

	metrics.HandshakesInitiated.Inc()
	timer := time.Now()

	initiator, err := noise.NewInitiator(verified.ServerStaticKey[:])
	if err != nil {
		duplex.Close()
		metrics.HandshakesFailed.WithLabelValues("handshake_error").Inc()
		return fmt.Errorf("inference: init handshake: %w", err)
	}

	msg1, err := initiator.WriteMessage1()
	if err != nil {
		duplex.Close()
		metrics.HandshakesFailed.WithLabelValues("handshake_error").Inc()
		return fmt.Errorf("inference: build message 1: %w", err)
	}
	if err := duplex.WriteFrame(ctx, msg1); err != nil {
		duplex.Close()
		metrics.HandshakesFailed.WithLabelValues("transport_error").Inc()
		return fmt.Errorf("inference: send message 1: %w", err)
	}

	msg2, err := duplex.ReadFrame(ctx)
	if err != nil {
		duplex.Close()
		metrics.HandshakesFailed.WithLabelValues("transport_error").Inc()
		return fmt.Errorf("inference: receive message 2: %w", err)
	}
	if _, err := initiator.ReadMessage2(msg2); err != nil {
		duplex.Close()
		metrics.HandshakesFailed.WithLabelValues("decrypt_error").Inc()
		return fmt.Errorf("inference: process message 2: %w", err)
	}

	send, recv, err := initiator.Split()
	if err != nil {
		duplex.Close()
		metrics.HandshakesFailed.WithLabelValues("handshake_error").Inc()
		return fmt.Errorf("inference: split: %w", err)
	}

	metrics.HandshakesCompleted.Inc()
	metrics.HandshakeDuration.Observe(time.Since(timer).Seconds())

	c.mu.Lock()
	c.duplex = duplex
	c.send = send
	c.recv = recv
	c.mu.Unlock()
	return nil
}

// Frames is a pull-based stream of decrypted response frames. The
// implementation buffers at most one in-flight decrypted frame
// (spec.md §4.11 back-pressure rule): Next blocks until the consumer is
// ready to receive the next one.
type Frames struct {
	ch     chan frameOrErr
	cancel context.CancelFunc
	done   chan struct{}
}

type frameOrErr struct {
	data []byte
	err  error
}

// Next blocks for the next decrypted frame. ok is false once the stream
// has ended (empty frame, orderly close, or a fatal decrypt failure).
func (f *Frames) Next() (data []byte, ok bool, err error) {
	item, open := <-f.ch
	if !open {
		return nil, false, nil
	}
	if item.err != nil {
		return nil, false, item.err
	}
	if len(item.data) == 0 {
		return nil, false, nil
	}
	return item.data, true, nil
}

// Cancel stops the stream: the underlying transport is closed and the
// cipher states are zeroized (spec.md §4.11 cancellation rule).
func (f *Frames) Cancel() {
	f.cancel()
	<-f.done
}

// SendAndStream encrypts and sends one request frame, then returns a
// Frames stream that decrypts every inbound frame until an empty frame
// or an orderly close.
func (c *Channel) SendAndStream(ctx context.Context, request []byte) (*Frames, error) {
	c.mu.Lock()
	duplex, send, recv := c.duplex, c.send, c.recv
	c.mu.Unlock()
	if duplex == nil || send == nil || recv == nil {
		return nil, fmt.Errorf("inference: channel not connected")
	}

	ciphertext, err := send.Encrypt(request)
	if err != nil {
		return nil, fmt.Errorf("inference: encrypt request: %w", err)
	}
	if err := duplex.WriteFrame(ctx, ciphertext); err != nil {
		return nil, fmt.Errorf("inference: send request: %w", err)
	}
	metrics.FramesSent.Inc()

	streamCtx, cancel := context.WithCancel(ctx)
	frames := &Frames{ch: make(chan frameOrErr, 1), cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(frames.done)
		defer close(frames.ch)
		for {
			select {
			case <-streamCtx.Done():
				c.Close()
				return
			default:
			}

			raw, err := duplex.ReadFrame(streamCtx)
			if err != nil {
				select {
				case frames.ch <- frameOrErr{err: fmt.Errorf("inference: read frame: %w", err)}:
				case <-streamCtx.Done():
				}
				return
			}
			if len(raw) == 0 {
				return
			}

			plaintext, err := recv.Decrypt(raw)
			if err != nil {
				metrics.FrameDecryptFailures.Inc()
				select {
				case frames.ch <- frameOrErr{err: fmt.Errorf("inference: decrypt frame: %w", err)}:
				case <-streamCtx.Done():
				}
				return
			}
			metrics.FramesReceived.Inc()

			select {
			case frames.ch <- frameOrErr{data: plaintext}:
			case <-streamCtx.Done():
				c.Close()
				return
			}
			if len(plaintext) == 0 {
				return
			}
		}
	}()

	return frames, nil
}

// Close tears down the transport and zeroizes both cipher states.
// Single-shot: a closed Channel cannot be reconnected.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.closed = true
	return nil
}

func (c *Channel) teardownLocked() {
	if c.duplex != nil {
		c.duplex.Close()
		c.duplex = nil
	}
	if c.send != nil {
		c.send.Zeroize()
		c.send = nil
	}
	if c.recv != nil {
		c.recv.Zeroize()
		c.recv = nil
	}
}
