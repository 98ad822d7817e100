package inference

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onera-app/onera-core/pkg/core/attestation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_Connect_FailsWhenAttestationUnverifiable(t *testing.T) {
	attSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer attSrv.Close()

	verifier := attestation.New(nil, attestation.Config{FetchTimeout: time.Second})
	ch := New(verifier, time.Second)

	err := ch.Connect(context.Background(), "ws://unused", attSrv.URL, time.Second, time.Second, time.Second)
	require.Error(t, err)
}

func TestChannel_Connect_FailsWhenDialUnreachable(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	serverKey := make([]byte, 32)
	report := attestation.Report{
		AttestationType: "nitro-enclave-v1",
		RootVersion:     1,
		ServerStaticKey: base64.StdEncoding.EncodeToString(serverKey),
		Claims:          json.RawMessage(`{}`),
		IssuedAt:        time.Now().Add(-time.Minute),
		ValidUntil:      time.Now().Add(time.Hour),
	}
	unsigned, err := json.Marshal(report)
	require.NoError(t, err)
	report.Signature = base64.StdEncoding.EncodeToString(ed25519.Sign(priv, unsigned))
	body, err := json.Marshal(report)
	require.NoError(t, err)

	attSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
	defer attSrv.Close()

	verifier := attestation.New([]attestation.Root{{Version: 1, PublicKey: pub}}, attestation.Config{FetchTimeout: time.Second})
	ch := New(verifier, time.Second)

	err = ch.Connect(context.Background(), "ws://127.0.0.1:1", attSrv.URL, 100*time.Millisecond, time.Second, time.Second)
	assert.Error(t, err)
}

func TestChannel_SendAndStream_FailsWhenNotConnected(t *testing.T) {
	verifier := attestation.New(nil, attestation.Config{})
	ch := New(verifier, time.Second)
	_, err := ch.SendAndStream(context.Background(), []byte("hi"))
	assert.Error(t, err)
}

func TestChannel_Close_IsIdempotentWhenNeverConnected(t *testing.T) {
	verifier := attestation.New(nil, attestation.Config{})
	ch := New(verifier, time.Second)
	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
}
