// Package domain card.go contains the catalog identifier type and the
// slot-validity rules the deck layout depends on.
package domain

// CardID is the stable catalog identifier for a card, obtained by resolving
// a ShareID. Zero means "no mapping known" and renders as a placeholder.
type CardID int

// ValidMain reports whether the identifier can occupy one of the three
// character slots. Character identifiers have at least four decimal digits.
func (c CardID) ValidMain() bool { return c >= 1000 }

// ValidCard reports whether the identifier can occupy an action-card slot.
// Action-card identifiers have at least six decimal digits.
func (c CardID) ValidCard() bool { return c >= 100000 }

// Esoteric reports whether the card takes the esoteric frame variant. The
// deck-share format marks these by the leading decimal digits 3300 of the
// identifier, a dedicated catalog range.
func (c CardID) Esoteric() bool {
	n := int(c)
	if n < 3300 {
		return false
	}
	for n >= 33000 {
		n /= 10
	}
	return n == 3300
}
