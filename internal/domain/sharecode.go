// Package domain holds the pure core of deckimg: the deck share-code
// decoder and the card identifier rules. No I/O, logging, or adapter
// concerns belong here; everything is deterministic and safe to call
// concurrently.
package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Deck code wire format. A share code decodes to exactly 51 raw bytes: 50
// obfuscated payload bytes followed by a single-byte obfuscation key. The
// payload de-interleaves into a 51-byte buffer (trailing zero sentinel)
// which packs 34 12-bit values in 3-byte groups; the final value is a
// structural artifact and is discarded.
const (
	rawCodeLen  = 51 // decoded byte length, including the trailing key byte
	payloadLen  = 50 // obfuscated payload bytes preceding the key
	pairCount   = 25 // interleaved byte pairs in the payload
	chunkCount  = 17 // 3-byte groups in the reordered buffer (51 = 17*3)
	maxShareID  = 0x0FFF
	DeckSize    = 33 // share IDs carried by one deck code
	MainSlots   = 3  // leading slots holding character cards
	CardSlots   = DeckSize - MainSlots
)

// ShareID is the 12-bit in-game index a deck code stores per card. It is
// distinct from the stable catalog CardID and only meaningful to the
// resolver that maps between the two.
type ShareID uint16

// Valid reports whether the value fits the 12-bit share-ID space.
func (s ShareID) Valid() bool { return s <= maxShareID }

// DecodeDeckCode decodes a deck share code into its ordered sequence of
// exactly DeckSize share IDs. The first MainSlots entries are character
// slots, the remaining CardSlots entries are action-card slots; order is
// significant and preserved.
//
// The code may use the standard or URL-safe base64 alphabet and may omit
// padding. Failure modes are ErrCodeEncoding (malformed base64) and
// ErrCodeLength (decoded length != 51 bytes). Decoding never fails for any
// well-formed 51-byte input: the de-obfuscation subtraction wraps mod 256
// and the bit repacking is total.
func DecodeDeckCode(code string) ([]ShareID, error) {
	raw, err := base64.StdEncoding.DecodeString(normalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodeEncoding, err)
	}
	if len(raw) != rawCodeLen {
		return nil, fmt.Errorf("%w: decoded to %d bytes, want %d", ErrCodeLength, len(raw), rawCodeLen)
	}

	// The last byte is the obfuscation key; it is consumed here and never
	// part of the output. Even payload bytes land in the first half of the
	// reordered buffer, odd bytes in the second half, each de-obfuscated by
	// subtracting the key (byte arithmetic wraps). Index 50 stays zero so
	// the tail forms a complete 3-byte group.
	key := raw[payloadLen]
	var reordered [rawCodeLen]byte
	for i := 0; i < pairCount; i++ {
		reordered[i] = raw[2*i] - key
		reordered[pairCount+i] = raw[2*i+1] - key
	}

	ids := make([]ShareID, 0, 2*chunkCount)
	for i := 0; i < chunkCount; i++ {
		b1 := uint16(reordered[3*i])
		b2 := uint16(reordered[3*i+1])
		b3 := uint16(reordered[3*i+2])
		ids = append(ids, ShareID(b1<<4|b2>>4), ShareID((b2&0x0F)<<8|b3))
	}
	if len(ids) < DeckSize+1 {
		// Unreachable with a fixed 51-byte buffer; kept as a guard against
		// future changes to the chunking constants.
		return nil, fmt.Errorf("%w: unpacked %d values, want %d", ErrCodeLength, len(ids), DeckSize+1)
	}
	// The 34th value only exists because the buffer is padded to a whole
	// number of 3-byte groups; it carries no share ID.
	return ids[:DeckSize], nil
}

// normalizeCode translates the URL-safe base64 alphabet to the standard one
// and restores '=' padding. A length of 4n+1 gains three pad characters,
// which the standard decoder rejects; that is the required behavior for an
// invalid base64 length.
func normalizeCode(code string) string {
	code = strings.ReplaceAll(code, "-", "+")
	code = strings.ReplaceAll(code, "_", "/")
	if rem := len(code) % 4; rem != 0 {
		code += strings.Repeat("=", 4-rem)
	}
	return code
}
