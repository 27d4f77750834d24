// Package extract detects HS commodity codes in text, including text that
// arrives as a stream of fragments.
package extract

import (
	"regexp"
	"strings"
)

// HS codes in answers look like 0808, 0808.10, 0808.10.00: a 4-digit
// heading optionally followed by dotted 2-digit groups.
var hsCodePattern = regexp.MustCompile(`\b\d{4}(?:\.\d{2}){0,3}\b`)

// maxCarry bounds how much unscanned tail a Scanner retains between
// fragments. A full dotted HS code is at most 13 characters; the carry
// covers a code split across a fragment boundary.
const maxCarry = 16

// Extract returns the distinct HS codes in text, in order of first
// appearance.
func Extract(text string) []string {
	matches := hsCodePattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var codes []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			codes = append(codes, m)
		}
	}
	return codes
}

// Scanner finds HS codes across fragment boundaries. Each Scan call costs
// time proportional to the fragment, not to everything streamed so far: only
// a bounded tail is re-examined.
type Scanner struct {
	carry string
	seen  map[string]bool
}

func NewScanner() *Scanner {
	return &Scanner{
		seen: make(map[string]bool),
	}
}

// Scan consumes the next fragment and returns any codes newly completed by
// it. A code straddling the fragment boundary is reported once, on the
// fragment that completes it.
func (s *Scanner) Scan(fragment string) []string {
	if fragment == "" {
		return nil
	}
	window := s.carry + fragment

	var found []string
	locs := hsCodePattern.FindAllStringIndex(window, -1)
	lastComplete := 0
	for _, loc := range locs {
		// A match at the window's end may still grow when the next fragment
		// arrives (e.g. "0808" then ".10", or "0808." then "10"); hold it
		// in the carry.
		if mayExtend(window, loc[1]) {
			break
		}
		lastComplete = loc[1]
		code := window[loc[0]:loc[1]]
		if !s.seen[code] {
			s.seen[code] = true
			found = append(found, code)
		}
	}

	// Keep a bounded tail: enough to finish a split match, never the whole
	// stream.
	tailStart := len(window) - maxCarry
	if tailStart < lastComplete {
		tailStart = lastComplete
	}
	if tailStart < 0 {
		tailStart = 0
	}
	s.carry = window[tailStart:]
	return found
}

// mayExtend reports whether a match ending at end could become a longer
// match once more text arrives: nothing follows it, or only a partial
// dotted group does.
func mayExtend(window string, end int) bool {
	tail := window[end:]
	switch len(tail) {
	case 0:
		return true
	case 1:
		return tail[0] == '.'
	case 2:
		return tail[0] == '.' && tail[1] >= '0' && tail[1] <= '9'
	}
	return false
}

// Flush reports codes still pending in the carry, for when the stream ends
// with a code at the very tail.
func (s *Scanner) Flush() []string {
	if s.carry == "" {
		return nil
	}
	var found []string
	for _, code := range hsCodePattern.FindAllString(s.carry, -1) {
		if !s.seen[code] {
			s.seen[code] = true
			found = append(found, code)
		}
	}
	s.carry = ""
	return found
}

// Codes returns every distinct code seen so far.
func (s *Scanner) Codes() []string {
	codes := make([]string, 0, len(s.seen))
	for code := range s.seen {
		codes = append(codes, code)
	}
	return codes
}

// Normalize strips separators so "0808.10" and "080810" compare equal.
func Normalize(code string) string {
	return strings.ReplaceAll(code, ".", "")
}
