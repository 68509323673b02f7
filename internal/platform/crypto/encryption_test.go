package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestSealRoundTrip(t *testing.T) {
	s, err := New(testKey)
	require.NoError(t, err)
	require.True(t, s.Configured())

	sealed, err := s.SealString("GB29NWBK60161331926819")
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "NWBK")

	plain, err := s.OpenString(sealed)
	require.NoError(t, err)
	require.Equal(t, "GB29NWBK60161331926819", plain)

	again, err := s.SealString("GB29NWBK60161331926819")
	require.NoError(t, err)
	require.NotEqual(t, sealed, again, "nonce must differ per seal")
}

func TestOpenRejectsTampering(t *testing.T) {
	s, err := New(testKey)
	require.NoError(t, err)
	sealed, err := s.SealString("secret")
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	_, err = s.Open(sealed)
	require.Error(t, err)

	_, err = s.Open([]byte{1, 2})
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestUnconfiguredPassesThrough(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)
	require.False(t, s.Configured())
	sealed, err := s.SealString("plain")
	require.NoError(t, err)
	require.Equal(t, []byte("plain"), sealed)
}

func TestNewRejectsShortKey(t *testing.T) {
	_, err := New("short")
	require.Error(t, err)
}

func TestTokens(t *testing.T) {
	token, err := RandomToken(32)
	require.NoError(t, err)
	require.Len(t, token, 43)
	require.False(t, strings.ContainsAny(token, "+/="))
	require.Equal(t, HashToken(token), HashToken(token))
	require.Len(t, HashToken(token), 64)
}
