package attestation

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedReport(t *testing.T, priv ed25519.PrivateKey, mutate func(*Report)) []byte {
	t.Helper()
	serverKey := make([]byte, 32)
	for i := range serverKey {
		serverKey[i] = byte(i)
	}
	report := Report{
		AttestationType: "nitro-enclave-v1",
		RootVersion:     1,
		ServerStaticKey: base64.StdEncoding.EncodeToString(serverKey),
		Claims:          json.RawMessage(`{"ok":true}`),
		IssuedAt:        time.Now().Add(-time.Minute),
		ValidUntil:      time.Now().Add(time.Hour),
	}
	if mutate != nil {
		mutate(&report)
	}
	transcript := signedTranscript(&report)
	sig := ed25519.Sign(priv, transcript)
	report.Signature = base64.StdEncoding.EncodeToString(sig)

	out, err := json.Marshal(report)
	require.NoError(t, err)
	return out
}

func newTestServer(t *testing.T, body []byte) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
}

func TestVerify_Succeeds(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	body := signedReport(t, priv, nil)
	srv := newTestServer(t, body)
	defer srv.Close()

	v := New([]Root{{Version: 1, PublicKey: pub}}, Config{})
	verified, err := v.Verify(t.Context(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "nitro-enclave-v1", verified.AttestationType)
}

func TestVerify_UnknownRootRejected(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	body := signedReport(t, priv, nil)
	srv := newTestServer(t, body)
	defer srv.Close()

	v := New(nil, Config{})
	_, err = v.Verify(t.Context(), srv.URL)
	var attErr *Error
	require.ErrorAs(t, err, &attErr)
	assert.Equal(t, KindUnknownRoot, attErr.Kind)
}

func TestVerify_BadSignatureRejected(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, otherPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	body := signedReport(t, otherPriv, nil)
	srv := newTestServer(t, body)
	defer srv.Close()

	v := New([]Root{{Version: 1, PublicKey: pub}}, Config{})
	_, err = v.Verify(t.Context(), srv.URL)
	var attErr *Error
	require.ErrorAs(t, err, &attErr)
	assert.Equal(t, KindBadSignature, attErr.Kind)
}

func TestVerify_UnknownTypeRejected(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	body := signedReport(t, priv, func(r *Report) { r.AttestationType = "made-up-vendor" })
	srv := newTestServer(t, body)
	defer srv.Close()

	v := New([]Root{{Version: 1, PublicKey: pub}}, Config{})
	_, err = v.Verify(t.Context(), srv.URL)
	var attErr *Error
	require.ErrorAs(t, err, &attErr)
	assert.Equal(t, KindUnknownType, attErr.Kind)
}

func TestVerify_StaleReportRejected(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	body := signedReport(t, priv, func(r *Report) {
		r.IssuedAt = time.Now().Add(-2 * time.Hour)
		r.ValidUntil = time.Now().Add(-time.Hour)
	})
	srv := newTestServer(t, body)
	defer srv.Close()

	v := New([]Root{{Version: 1, PublicKey: pub}}, Config{})
	_, err = v.Verify(t.Context(), srv.URL)
	var attErr *Error
	require.ErrorAs(t, err, &attErr)
	assert.Equal(t, KindStale, attErr.Kind)
}

func TestVerify_MalformedKeyRejected(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	body := signedReport(t, priv, func(r *Report) { r.ServerStaticKey = base64.StdEncoding.EncodeToString([]byte("too-short")) })
	srv := newTestServer(t, body)
	defer srv.Close()

	v := New([]Root{{Version: 1, PublicKey: pub}}, Config{})
	_, err = v.Verify(t.Context(), srv.URL)
	var attErr *Error
	require.ErrorAs(t, err, &attErr)
	assert.Equal(t, KindMalformedKey, attErr.Kind)
}

func TestVerify_FetchFailedOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := New(nil, Config{})
	_, err := v.Verify(t.Context(), srv.URL)
	var attErr *Error
	require.ErrorAs(t, err, &attErr)
	assert.Equal(t, KindFetchFailed, attErr.Kind)
}
