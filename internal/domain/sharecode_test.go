package domain

import (
	"encoding/base64"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeRaw builds a share code from 50 payload bytes and a key byte,
// optionally re-obfuscating so that decode recovers want.
func encodeRaw(payload [50]byte, key byte) string {
	raw := make([]byte, 0, 51)
	raw = append(raw, payload[:]...)
	raw = append(raw, key)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestDecodeAllZeros(t *testing.T) {
	// 51 zero bytes encode to exactly 68 base64 characters, no padding.
	code := strings.Repeat("A", 68)
	ids, err := DecodeDeckCode(code)
	require.NoError(t, err)
	require.Len(t, ids, DeckSize)
	for i, id := range ids {
		assert.Equal(t, ShareID(0), id, "index %d", i)
	}
}

func TestDecodeAlternatingGoldenVector(t *testing.T) {
	// Payload alternates 0x10, 0x20 with key 0. After reordering, bytes
	// 0..24 are 0x10, bytes 25..49 are 0x20 and byte 50 is the zero
	// sentinel. Hand-computed 12-bit values per 3-byte group:
	//   groups 0..7  (all 0x10):            n1=0x101=257, n2=0x010=16
	//   group  8     (0x10,0x20,0x20):      n1=0x102=258, n2=0x020=32
	//   groups 9..15 (all 0x20):            n1=0x202=514, n2=0x020=32
	//   group 16     (0x20,0x20,0x00):      n1=0x202=514, n2 dropped
	var payload [50]byte
	for i := 0; i < 50; i += 2 {
		payload[i] = 0x10
		payload[i+1] = 0x20
	}
	ids, err := DecodeDeckCode(encodeRaw(payload, 0x00))
	require.NoError(t, err)
	require.Len(t, ids, DeckSize)

	want := make([]ShareID, 0, DeckSize)
	for i := 0; i < 8; i++ {
		want = append(want, 257, 16)
	}
	want = append(want, 258, 32)
	for i := 0; i < 7; i++ {
		want = append(want, 514, 32)
	}
	want = append(want, 514)
	assert.Equal(t, want, ids)
}

func TestDecodeKeyObfuscation(t *testing.T) {
	// Adding the key to every payload byte must decode to the same IDs as
	// the un-obfuscated buffer, since decode subtracts it modulo 256.
	var plain [50]byte
	for i := range plain {
		plain[i] = byte(i * 7)
	}
	base, err := DecodeDeckCode(encodeRaw(plain, 0x00))
	require.NoError(t, err)

	for _, key := range []byte{0x01, 0x5A, 0xFF} {
		var obfuscated [50]byte
		for i := range plain {
			obfuscated[i] = plain[i] + key
		}
		ids, err := DecodeDeckCode(encodeRaw(obfuscated, key))
		require.NoError(t, err)
		assert.Equal(t, base, ids, "key 0x%02X", key)
	}
}

func TestDecodeURLSafeAlphabet(t *testing.T) {
	var payload [50]byte
	for i := range payload {
		payload[i] = byte(255 - i)
	}
	std := encodeRaw(payload, 0x3C)
	urlSafe := strings.NewReplacer("+", "-", "/", "_", "=", "").Replace(std)

	a, err := DecodeDeckCode(std)
	require.NoError(t, err)
	b, err := DecodeDeckCode(urlSafe)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeDeterministic(t *testing.T) {
	code := strings.Repeat("A", 68)
	first, err := DecodeDeckCode(code)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := DecodeDeckCode(code)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDecodeRandomInputsTotal(t *testing.T) {
	// Any 51-byte buffer decodes to exactly 33 in-range values; the
	// transform never fails past the length check.
	rng := rand.New(rand.NewSource(1))
	for n := 0; n < 500; n++ {
		raw := make([]byte, 51)
		rng.Read(raw)
		ids, err := DecodeDeckCode(base64.StdEncoding.EncodeToString(raw))
		require.NoError(t, err)
		require.Len(t, ids, DeckSize)
		for _, id := range ids {
			if !id.Valid() {
				t.Fatalf("share ID %d exceeds 12 bits", id)
			}
		}
	}
}

func TestDecodeLengthMismatch(t *testing.T) {
	for _, n := range []int{0, 1, 50, 52, 102} {
		code := base64.StdEncoding.EncodeToString(make([]byte, n))
		_, err := DecodeDeckCode(code)
		require.Error(t, err, "length %d", n)
		assert.ErrorIs(t, err, ErrCodeLength)
		assert.Contains(t, err.Error(), "decoded to")
	}
}

func TestDecodeBadEncoding(t *testing.T) {
	cases := []string{
		"not valid base64 at all!",
		strings.Repeat("A", 67) + "*",
		strings.Repeat("A", 69), // 4n+1 length is not decodable base64
	}
	for _, code := range cases {
		_, err := DecodeDeckCode(code)
		require.Error(t, err, "code %q", code)
		assert.ErrorIs(t, err, ErrCodeEncoding)
	}
	// The two error kinds stay distinct.
	_, err := DecodeDeckCode(strings.Repeat("A", 68))
	require.NoError(t, err)
	_, err = DecodeDeckCode("####")
	assert.False(t, errors.Is(err, ErrCodeLength))
}
