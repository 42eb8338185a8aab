// Package callback decodes inline-button payloads and routes them to handlers.
package callback

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Prefix families carrying an embedded argument.
const (
	PrefixPage       = "page_"
	PrefixSelect     = "msg_"
	PrefixBackToPage = "back_to_page_"
)

// Payload is one of PagePayload, SelectPayload, BackToPagePayload or LiteralPayload.
type Payload interface {
	// Family returns the prefix of a prefix-family payload, or the token of a literal.
	Family() string
	sealed()
}

// PagePayload requests a list page. Valid is false when the suffix was not a
// non-negative integer; Page is then 0. Numbers beyond the int range saturate
// to math.MaxInt so they clamp to the last page.
type PagePayload struct {
	Page  int
	Valid bool
}

// SelectPayload opens the record with ItemID from the current list snapshot.
type SelectPayload struct {
	ItemID string
}

// BackToPagePayload returns from a record to its list.
type BackToPagePayload struct {
	Page  int
	Valid bool
}

// LiteralPayload is any payload outside the prefix families.
type LiteralPayload struct {
	Token string
}

func (PagePayload) Family() string       { return PrefixPage }
func (SelectPayload) Family() string     { return PrefixSelect }
func (BackToPagePayload) Family() string { return PrefixBackToPage }
func (p LiteralPayload) Family() string  { return p.Token }

func (PagePayload) sealed()       {}
func (SelectPayload) sealed()     {}
func (BackToPagePayload) sealed() {}
func (LiteralPayload) sealed()    {}

// Decode classifies raw. It never fails: malformed numbers yield an invalid
// page payload and unknown tokens yield a LiteralPayload.
func Decode(raw string) Payload {
	switch {
	case strings.HasPrefix(raw, PrefixPage):
		page, ok := parsePage(raw[len(PrefixPage):])
		return PagePayload{Page: page, Valid: ok}
	case strings.HasPrefix(raw, PrefixSelect):
		return SelectPayload{ItemID: raw[len(PrefixSelect):]}
	case strings.HasPrefix(raw, PrefixBackToPage):
		page, ok := parsePage(raw[len(PrefixBackToPage):])
		return BackToPagePayload{Page: page, Valid: ok}
	default:
		return LiteralPayload{Token: raw}
	}
}

func parsePage(s string) (int, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	switch {
	case errors.Is(err, strconv.ErrRange):
		return math.MaxInt, true
	case err != nil:
		return 0, false
	case n > math.MaxInt:
		return math.MaxInt, true
	}
	return int(n), true
}

// PageData encodes a page button payload.
func PageData(page int) string { return PrefixPage + strconv.Itoa(page) }

// SelectData encodes a record button payload.
func SelectData(id string) string { return PrefixSelect + id }

// BackToPageData encodes the return button payload.
func BackToPageData(page int) string { return PrefixBackToPage + strconv.Itoa(page) }
