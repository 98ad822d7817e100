package shares

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitReconstruct_RoundTrip(t *testing.T) {
	master := bytes.Repeat([]byte{0xAB}, 32)

	s, err := Split(master)
	require.NoError(t, err)

	got, err := Reconstruct(s.Device, s.Auth, s.Recovery)
	require.NoError(t, err)
	assert.Equal(t, master, got)
}

func TestS1_ShareRoundTripFixture(t *testing.T) {
	// S1 from spec.md §8: master=0x11*32, device=0x22*32, auth=0x33*32
	// => recovery = master ^ device ^ auth = 0x00*32.
	master := bytes.Repeat([]byte{0x11}, 32)
	device := bytes.Repeat([]byte{0x22}, 32)
	auth := bytes.Repeat([]byte{0x33}, 32)
	recovery := bytes.Repeat([]byte{0x00}, 32)

	got, err := Reconstruct(device, auth, recovery)
	require.NoError(t, err)
	assert.Equal(t, master, got)
}

func TestSplit_InvalidMasterLength(t *testing.T) {
	_, err := Split([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestReconstruct_InvalidShareLength(t *testing.T) {
	full := bytes.Repeat([]byte{0x01}, 32)
	short := []byte{0x01, 0x02}

	_, err := Reconstruct(short, full, full)
	assert.Error(t, err)
	_, err = Reconstruct(full, short, full)
	assert.Error(t, err)
	_, err = Reconstruct(full, full, short)
	assert.Error(t, err)
}

func TestSplit_SharesAreDistinct(t *testing.T) {
	master := bytes.Repeat([]byte{0x44}, 32)
	s, err := Split(master)
	require.NoError(t, err)
	assert.NotEqual(t, s.Device, s.Auth)
	assert.NotEqual(t, s.Device, s.Recovery)
}
