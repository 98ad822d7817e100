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

// Package attestation implements AttestationVerifier (spec.md §4.9):
// fetching, parsing, and validating a signed TEE attestation report,
// then extracting the server's X25519 static public key NoiseNK needs.
// The HTTP fetch is bounded by a configurable timeout, grounded on the
// teacher's pkg/agent/transport/websocket dial/read/write timeout
// fields; signature verification uses stdlib crypto/ed25519, the
// teacher's primary signature algorithm (pkg/agent/crypto/keys).
package attestation

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Kind identifies why attestation verification failed.
type Kind int

const (
	KindFetchFailed Kind = iota
	KindParseFailed
	KindUnknownType
	KindBadSignature
	KindUnknownRoot
	KindStale
	KindMalformedKey
)

// Error is the single AttestationInvalid{reason} rejection spec.md §4.9
// describes.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("attestation: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Root is one embedded, versioned trust anchor. A deployment passes in
// whatever set is current; the verifier never hardcodes roots.
type Root struct {
	Version   int
	PublicKey ed25519.PublicKey
}

// Report is the document a TEE endpoint serves: a discriminator-tagged,
// signed envelope around the claims and the server's static X25519 key.
type Report struct {
	AttestationType string          `json:"attestation_type"`
	RootVersion     int             `json:"root_version"`
	ServerStaticKey string          `json:"server_static_pub_key"` // base64, 32 bytes
	Claims          json.RawMessage `json:"claims"`
	IssuedAt        time.Time       `json:"issued_at"`
	ValidUntil      time.Time       `json:"valid_until"`
	Signature       string          `json:"signature"` // base64 Ed25519 signature over the envelope sans Signature
}

// Verified is what a successful verification yields: the attestation
// family, the extracted server static key, and the parsed claims.
type Verified struct {
	AttestationType string
	ServerStaticKey [32]byte
	Claims          json.RawMessage
	ValidUntil      time.Time
}

// KnownAttestationTypes enumerates the vendor-specific discriminators
// this verifier recognizes. Reports of any other type fail with
// KindUnknownType.
var KnownAttestationTypes = map[string]bool{
	"nitro-enclave-v1": true,
	"sev-snp-v1":       true,
	"tdx-v1":           true,
}

// Verifier fetches and validates attestation reports. It is pure modulo
// clock and network: every trust anchor is passed in explicitly.
type Verifier struct {
	httpClient   *http.Client
	roots        map[int]Root
	clockSkew    time.Duration
	fetchTimeout time.Duration
}

// Config controls Verifier's timeout and skew tolerance.
type Config struct {
	FetchTimeout time.Duration
	ClockSkew    time.Duration
}

// DefaultFetchTimeout is spec.md §5's default attestation fetch bound.
const DefaultFetchTimeout = 10 * time.Second

// DefaultClockSkew is the tolerance applied to freshness checks.
const DefaultClockSkew = 2 * time.Minute

// New constructs a Verifier trusting roots, keyed by their version.
func New(roots []Root, cfg Config) *Verifier {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = DefaultClockSkew
	}
	rootMap := make(map[int]Root, len(roots))
	for _, r := range roots {
		rootMap[r.Version] = r
	}
	return &Verifier{
		httpClient:   &http.Client{Timeout: cfg.FetchTimeout},
		roots:        rootMap,
		clockSkew:    cfg.ClockSkew,
		fetchTimeout: cfg.FetchTimeout,
	}
}

// Verify fetches the attestation document at url, validates its
// signature chain, freshness, and format, and returns the extracted
// server static key and claims.
func (v *Verifier) Verify(ctx context.Context, url string) (*Verified, error) {
	ctx, cancel := context.WithTimeout(ctx, v.fetchTimeout)
	defer cancel()

	report, err := v.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return v.validate(report)
}

func (v *Verifier) fetch(ctx context.Context, url string) (*Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindFetchFailed, Op: "fetch", Err: err}
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindFetchFailed, Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: KindFetchFailed, Op: "fetch", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{Kind: KindFetchFailed, Op: "fetch", Err: err}
	}

	var report Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, &Error{Kind: KindParseFailed, Op: "parse", Err: err}
	}
	return &report, nil
}

func (v *Verifier) validate(report *Report) (*Verified, error) {
	if !KnownAttestationTypes[report.AttestationType] {
		return nil, &Error{Kind: KindUnknownType, Op: "validate", Err: fmt.Errorf("unrecognized attestation_type %q", report.AttestationType)}
	}

	root, ok := v.roots[report.RootVersion]
	if !ok {
		return nil, &Error{Kind: KindUnknownRoot, Op: "validate", Err: fmt.Errorf("unknown root version %d", report.RootVersion)}
	}

	sig, err := decodeB64(report.Signature)
	if err != nil {
		return nil, &Error{Kind: KindParseFailed, Op: "validate", Err: fmt.Errorf("decode signature: %w", err)}
	}
	transcript := signedTranscript(report)
	if !ed25519.Verify(root.PublicKey, transcript, sig) {
		return nil, &Error{Kind: KindBadSignature, Op: "validate", Err: fmt.Errorf("signature verification failed")}
	}

	now := time.Now()
	if now.After(report.ValidUntil.Add(v.clockSkew)) {
		return nil, &Error{Kind: KindStale, Op: "validate", Err: fmt.Errorf("report expired at %s", report.ValidUntil)}
	}
	if now.Before(report.IssuedAt.Add(-v.clockSkew)) {
		return nil, &Error{Kind: KindStale, Op: "validate", Err: fmt.Errorf("report issued in the future at %s", report.IssuedAt)}
	}

	keyBytes, err := decodeB64(report.ServerStaticKey)
	if err != nil || len(keyBytes) != 32 {
		return nil, &Error{Kind: KindMalformedKey, Op: "validate", Err: fmt.Errorf("server_static_pub_key must decode to 32 bytes")}
	}

	var key [32]byte
	copy(key[:], keyBytes)

	return &Verified{
		AttestationType: report.AttestationType,
		ServerStaticKey: key,
		Claims:          report.Claims,
		ValidUntil:      report.ValidUntil,
	}, nil
}

// signedTranscript reconstructs the exact bytes the server signed: the
// envelope with Signature cleared, canonically re-marshaled.
func signedTranscript(report *Report) []byte {
	unsigned := *report
	unsigned.Signature = ""
	data, _ := json.Marshal(unsigned)
	return data
}
