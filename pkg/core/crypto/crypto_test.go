package crypto

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXOR(t *testing.T) {
	a := bytes.Repeat([]byte{0x11}, 32)
	b := bytes.Repeat([]byte{0x22}, 32)
	c := bytes.Repeat([]byte{0x33}, 32)

	// S1 (share round-trip) from spec.md §8: 0x11 ^ 0x22 ^ 0x33 = 0x00.
	ab, err := XOR(a, b)
	require.NoError(t, err)
	abc, err := XOR(ab, c)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0x00}, 32), abc)

	_, err = XOR(a, []byte{1, 2, 3})
	assert.Error(t, err)
}

func TestAEADRoundTrip(t *testing.T) {
	key, err := Random(KeySize)
	require.NoError(t, err)
	plaintext := []byte("hello onera")

	ct, nonce, err := AEADSeal(key, plaintext)
	require.NoError(t, err)
	assert.Len(t, nonce, NonceSize)

	got, err := AEADOpen(key, ct, nonce)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestAEADOpen_TamperDetection(t *testing.T) {
	key, err := Random(KeySize)
	require.NoError(t, err)
	ct, nonce, err := AEADSeal(key, []byte("secret message"))
	require.NoError(t, err)

	tamperedCT := append([]byte(nil), ct...)
	tamperedCT[0] ^= 0x01
	_, err = AEADOpen(key, tamperedCT, nonce)
	assert.Error(t, err)

	tamperedNonce := append([]byte(nil), nonce...)
	tamperedNonce[0] ^= 0x01
	_, err = AEADOpen(key, ct, tamperedNonce)
	assert.Error(t, err)
}

func TestAEADOpen_WrongKey(t *testing.T) {
	key, err := Random(KeySize)
	require.NoError(t, err)
	other, err := Random(KeySize)
	require.NoError(t, err)

	ct, nonce, err := AEADSeal(key, []byte("payload"))
	require.NoError(t, err)

	_, err = AEADOpen(other, ct, nonce)
	require.Error(t, err)
	cerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindAuthFailure, cerr.Kind)
	// The error must never leak which of key/nonce/ciphertext was at fault.
	assert.NotContains(t, err.Error(), "key")
}

func TestX25519DH_Agreement(t *testing.T) {
	alice, err := X25519Keypair()
	require.NoError(t, err)
	bob, err := X25519Keypair()
	require.NoError(t, err)

	aliceShared, err := X25519DH(alice.Private, bob.Public)
	require.NoError(t, err)
	bobShared, err := X25519DH(bob.Private, alice.Public)
	require.NoError(t, err)

	assert.Equal(t, aliceShared, bobShared)
}

func TestMnemonicGenerateAndValidate(t *testing.T) {
	phrase, err := MnemonicGenerate()
	require.NoError(t, err)
	assert.Len(t, strings.Fields(phrase), 24)
	assert.True(t, MnemonicValidate(phrase))
}

func TestMnemonicValidate_KnownVector(t *testing.T) {
	phrase := strings.TrimSpace(`abandon abandon abandon abandon abandon abandon
	abandon abandon abandon abandon abandon abandon abandon abandon abandon
	abandon abandon abandon abandon abandon abandon abandon abandon art`)
	phrase = strings.Join(strings.Fields(phrase), " ")
	assert.True(t, MnemonicValidate(phrase))
}

func TestMnemonicValidate_CorruptedChecksum(t *testing.T) {
	words := strings.Fields(strings.Join(strings.Fields(`abandon abandon abandon abandon abandon abandon
	abandon abandon abandon abandon abandon abandon abandon abandon abandon
	abandon abandon abandon abandon abandon abandon abandon abandon zoo`), " "))
	phrase := strings.Join(words, " ")
	assert.False(t, MnemonicValidate(phrase))
}

func TestKDFFromMnemonic_Deterministic(t *testing.T) {
	phrase := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	k1 := KDFFromMnemonic(phrase)
	k2 := KDFFromMnemonic(phrase)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, KeySize)
}

func TestKDFHKDF(t *testing.T) {
	ikm, err := Random(32)
	require.NoError(t, err)
	out, err := KDFHKDF(ikm, []byte("salt"), []byte("onera-webauthn-prf-kek-v1"), 32)
	require.NoError(t, err)
	assert.Len(t, out, 32)

	out2, err := KDFHKDF(ikm, []byte("salt"), []byte("onera-webauthn-prf-kek-v1"), 32)
	require.NoError(t, err)
	assert.Equal(t, out, out2)
}

func TestKDFBlake2b_DeviceShareKey(t *testing.T) {
	input := []byte("device-id|fingerprint|secret")
	out, err := KDFBlake2b(input, "onera.deviceshare.v2", 32)
	require.NoError(t, err)
	assert.Len(t, out, 32)

	out2, err := KDFBlake2b(input, "onera.deviceshare.v2", 32)
	require.NoError(t, err)
	assert.Equal(t, out, out2)

	otherPersonal, err := KDFBlake2b(input, "other-personal-string", 32)
	require.NoError(t, err)
	assert.NotEqual(t, out, otherPersonal)
}

func TestConstantTimeEq(t *testing.T) {
	a := []byte("secret")
	b := []byte("secret")
	c := []byte("secree")

	assert.True(t, ConstantTimeEq(a, b))
	assert.False(t, ConstantTimeEq(a, c))
	assert.False(t, ConstantTimeEq(a, []byte("short")))
}

func TestZeroize(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	Zeroize(buf)
	for _, b := range buf {
		assert.Equal(t, byte(0), b)
	}
}

func TestRandom_Uniqueness(t *testing.T) {
	a, err := Random(32)
	require.NoError(t, err)
	b, err := Random(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
