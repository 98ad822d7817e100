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

// Package crypto is the narrow primitive surface everything else in
// onera-core is built on: AEAD, KDFs, X25519, mnemonics, and the handful
// of constant-time/zeroize helpers nothing above this layer should need
// to reimplement.
package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
	"strings"

	"github.com/onera-app/onera-core/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"
)

// KeySize is the length, in bytes, of a MasterKey, ChatKey, share, or any
// other symmetric secret in this system.
const KeySize = 32

// NonceSize is the secretbox (XSalsa20-Poly1305) nonce length mandated by
// the wire format.
const NonceSize = 24

// Kind identifies the broad category of a crypto failure, per the error
// taxonomy.
type Kind int

const (
	KindRngFailure Kind = iota
	KindLengthMismatch
	KindAuthFailure
	KindKdfFailure
	KindInvalidShareLength
)

// Error wraps a crypto primitive failure. Error never embeds key
// material, derived keys, or ciphertext bytes in its message.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("crypto: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Random returns n bytes read from the OS CSPRNG.
func Random(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		metrics.CryptoErrors.WithLabelValues("random", "rng_failure").Inc()
		return nil, newError(KindRngFailure, "random", err)
	}
	metrics.CryptoOperations.WithLabelValues("random").Inc()
	return buf, nil
}

// XOR returns the bitwise XOR of a and b, which must be the same length.
func XOR(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		metrics.CryptoErrors.WithLabelValues("xor", "length_mismatch").Inc()
		return nil, newError(KindLengthMismatch, "xor", fmt.Errorf("len(a)=%d != len(b)=%d", len(a), len(b)))
	}
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	metrics.CryptoOperations.WithLabelValues("xor").Inc()
	return out, nil
}

// AEADSeal encrypts plaintext under key using XSalsa20-Poly1305, returning
// a fresh random nonce and ciphertext with the Poly1305 tag appended —
// the exact wire construction declared in spec §3/§6.
func AEADSeal(key, plaintext []byte) (ciphertext, nonce []byte, err error) {
	timer := prometheus.NewTimer(metrics.CryptoOperationDuration.WithLabelValues("aead_seal"))
	defer timer.ObserveDuration()

	if len(key) != KeySize {
		metrics.CryptoErrors.WithLabelValues("aead_seal", "length_mismatch").Inc()
		return nil, nil, newError(KindLengthMismatch, "aead_seal", fmt.Errorf("key must be %d bytes", KeySize))
	}

	var nonceArr [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonceArr[:]); err != nil {
		metrics.CryptoErrors.WithLabelValues("aead_seal", "rng_failure").Inc()
		return nil, nil, newError(KindRngFailure, "aead_seal", err)
	}

	var keyArr [KeySize]byte
	copy(keyArr[:], key)

	ciphertext = secretbox.Seal(nil, plaintext, &nonceArr, &keyArr)
	Zeroize(keyArr[:])

	metrics.CryptoOperations.WithLabelValues("aead_seal").Inc()
	return ciphertext, nonceArr[:], nil
}

// AEADOpen authenticates and decrypts ciphertext produced by AEADSeal.
// It fails with KindAuthFailure on any tag mismatch or tampering, and
// deliberately never reveals whether the key, nonce, or ciphertext was
// at fault (spec §7).
func AEADOpen(key, ciphertext, nonce []byte) ([]byte, error) {
	timer := prometheus.NewTimer(metrics.CryptoOperationDuration.WithLabelValues("aead_open"))
	defer timer.ObserveDuration()

	if len(key) != KeySize || len(nonce) != NonceSize {
		metrics.CryptoErrors.WithLabelValues("aead_open", "length_mismatch").Inc()
		return nil, newError(KindLengthMismatch, "aead_open", fmt.Errorf("invalid key or nonce length"))
	}

	var nonceArr [NonceSize]byte
	copy(nonceArr[:], nonce)
	var keyArr [KeySize]byte
	copy(keyArr[:], key)
	defer Zeroize(keyArr[:])

	plaintext, ok := secretbox.Open(nil, ciphertext, &nonceArr, &keyArr)
	if !ok {
		metrics.CryptoErrors.WithLabelValues("aead_open", "auth_failure").Inc()
		return nil, newError(KindAuthFailure, "aead_open", fmt.Errorf("could not decrypt"))
	}

	metrics.CryptoOperations.WithLabelValues("aead_open").Inc()
	return plaintext, nil
}

// Argon2Params versions the memory-hard password KDF's cost parameters.
type Argon2Params struct {
	// Ops is the Argon2id time cost (number of passes).
	Ops uint32
	// Mem is the Argon2id memory cost in KiB.
	Mem uint32
	// Threads is the degree of parallelism.
	Threads uint8
}

// DefaultArgon2Params are sane interactive-login parameters; deployments
// MAY tune these but MUST version whatever they pick in PasswordEnvelope.
var DefaultArgon2Params = Argon2Params{Ops: 3, Mem: 64 * 1024, Threads: 4}

// KDFPassword derives a 32-byte KEK from a password using Argon2id.
func KDFPassword(password, salt []byte, params Argon2Params) []byte {
	metrics.CryptoOperations.WithLabelValues("kdf_password").Inc()
	return argon2.IDKey(password, salt, params.Ops, params.Mem, params.Threads, KeySize)
}

// KDFHKDF derives `length` bytes from ikm via HKDF-SHA-256.
func KDFHKDF(ikm, salt, info []byte, length int) ([]byte, error) {
	reader := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(reader, out); err != nil {
		metrics.CryptoErrors.WithLabelValues("kdf_hkdf", "expand_failure").Inc()
		return nil, newError(KindKdfFailure, "kdf_hkdf", err)
	}
	metrics.CryptoOperations.WithLabelValues("kdf_hkdf").Inc()
	return out, nil
}

// KDFBlake2b computes a personalized, keyless BLAKE2b hash of input,
// truncated/expanded to length bytes (length must be <= 64).
func KDFBlake2b(input []byte, personal string, length int) ([]byte, error) {
	var personalBytes [16]byte
	copy(personalBytes[:], []byte(personal))

	h, err := blake2b.New(length, nil)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("kdf_blake2b", "init_failure").Inc()
		return nil, newError(KindKdfFailure, "kdf_blake2b", err)
	}
	// blake2b.New doesn't take a personalization string directly; fold it
	// into the transcript the way a personalized hash would, by hashing
	// the personal string first as a fixed-length domain tag.
	h.Write(personalBytes[:])
	h.Write(input)

	metrics.CryptoOperations.WithLabelValues("kdf_blake2b").Inc()
	return h.Sum(nil), nil
}

// X25519KeyPair is a Curve25519 key-exchange key pair.
type X25519KeyPair struct {
	Public  []byte // 32 bytes
	Private []byte // 32 bytes
}

// X25519Keypair generates a fresh X25519 key pair via stdlib crypto/ecdh
// — the same primitive the teacher uses throughout its HPKE and
// handshake code.
func X25519Keypair() (*X25519KeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("x25519_keypair", "rng_failure").Inc()
		return nil, newError(KindRngFailure, "x25519_keypair", err)
	}
	metrics.CryptoOperations.WithLabelValues("x25519_keypair").Inc()
	return &X25519KeyPair{Public: priv.PublicKey().Bytes(), Private: priv.Bytes()}, nil
}

// X25519DH computes the X25519 shared secret between a local private key
// and a peer's public key.
func X25519DH(sk, pk []byte) ([]byte, error) {
	priv, err := ecdh.X25519().NewPrivateKey(sk)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("x25519_dh", "invalid_key").Inc()
		return nil, newError(KindLengthMismatch, "x25519_dh", err)
	}
	pub, err := ecdh.X25519().NewPublicKey(pk)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("x25519_dh", "invalid_key").Inc()
		return nil, newError(KindLengthMismatch, "x25519_dh", err)
	}
	shared, err := priv.ECDH(pub)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("x25519_dh", "ecdh_failure").Inc()
		return nil, newError(KindAuthFailure, "x25519_dh", err)
	}
	metrics.CryptoOperations.WithLabelValues("x25519_dh").Inc()
	return shared, nil
}

// recoveryKeySalt and recoveryKeyIterations fix the recovery-key KDF
// parameters spec.md §9 requires every deployment to document: PBKDF2
// over the normalized mnemonic phrase (its words joined by single
// spaces), salt="mnemonic", 2048 iterations,
// 32-byte output. This resolves the spec's open question in favor of
// PBKDF2-HMAC-SHA-256 over the SHA-256-of-phrase and BIP-39-seed
// variants observed in the source.
const (
	recoveryKeySalt       = "mnemonic"
	recoveryKeyIterations = 2048
)

// KDFFromMnemonic derives the fixed 32-byte recovery key from a BIP-39
// phrase via PBKDF2-HMAC-SHA-256, per the documented deployment
// parameters above.
func KDFFromMnemonic(phrase string) []byte {
	metrics.CryptoOperations.WithLabelValues("kdf_from_mnemonic").Inc()
	normalized := strings.Join(strings.Fields(phrase), " ")
	return pbkdf2.Key([]byte(normalized), []byte(recoveryKeySalt), recoveryKeyIterations, KeySize, sha256.New)
}

// MnemonicGenerate produces a fresh 24-word BIP-39 phrase encoding 256
// bits of entropy plus an 8-bit checksum.
func MnemonicGenerate() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("mnemonic_generate", "rng_failure").Inc()
		return "", newError(KindRngFailure, "mnemonic_generate", err)
	}
	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("mnemonic_generate", "encode_failure").Inc()
		return "", newError(KindKdfFailure, "mnemonic_generate", err)
	}
	metrics.CryptoOperations.WithLabelValues("mnemonic_generate").Inc()
	return phrase, nil
}

// MnemonicValidate reports whether phrase is a checksum-valid BIP-39
// mnemonic. Every standard BIP-39 length (12, 15, 18, 21 or 24 words) is
// accepted, not only the 24-word phrases MnemonicGenerate produces.
func MnemonicValidate(phrase string) bool {
	valid := bip39.IsMnemonicValid(phrase)
	metrics.CryptoOperations.WithLabelValues("mnemonic_validate").Inc()
	return valid
}

// ConstantTimeEq compares a and b in constant time with respect to their
// contents (not their lengths).
func ConstantTimeEq(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Zeroize overwrites buf with zero bytes. Callers MUST call this on every
// secret buffer before it goes out of scope; the compiler is not
// permitted to elide these writes because they flow through a function
// call the optimizer cannot prove is side-effect-free.
//
//go:noinline
func Zeroize(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
