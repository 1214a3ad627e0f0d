// Package version parses and increments the trailing version suffix used in
// shot and conform names (for example SHOT_010_v02 or SHOT_010_V3.mp4).
package version

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// minWidth is the smallest zero padding used when formatting a new version.
// Parsed tokens keep whatever width they were written with.
const minWidth = 2

var tokenPattern = regexp.MustCompile(`^(.*)(_[vV])(\d+)$`)

// Token is a parsed version suffix: the "_v"/"_V" marker, the integer value
// and the zero-padding width it was written with.
type Token struct {
	Marker string
	Value  int64
	Width  int
}

// String renders the token exactly as it was parsed, so parsing the result
// yields an identical token.
func (t Token) String() string {
	return fmt.Sprintf("%s%0*d", t.Marker, t.Width, t.Value)
}

// next returns the token for the following version. Width never regresses
// below minWidth; values wider than the parsed width keep their own length.
func (t Token) next() Token {
	w := t.Width
	if w < minWidth {
		w = minWidth
	}
	return Token{Marker: t.Marker, Value: t.Value + 1, Width: w}
}

// Split separates a name into its base name and trailing version token.
// A file extension, if present, is ignored. ok is false when the name
// carries no well-formed version suffix; a non-digit after the marker is a
// non-match, not an error.
func Split(name string) (base string, tok Token, ok bool) {
	stem := stripExt(name)
	m := tokenPattern.FindStringSubmatch(stem)
	if m == nil {
		return stem, Token{}, false
	}
	value, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		// Digit run too long to represent; treat as part of the base name.
		return stem, Token{}, false
	}
	return m[1], Token{Marker: m[2], Value: value, Width: len(m[3])}, true
}

// Base returns the name with its trailing version token removed. Names
// without a token are returned unchanged (minus extension). Two names refer
// to the same shot iff their bases are equal, case-sensitively.
func Base(name string) string {
	base, _, _ := Split(name)
	return base
}

// Next computes the name to use for a new upload of candidate given the
// names already present remotely. When at least one existing name shares the
// candidate's base name, the result is the candidate plus a version token
// one past the highest existing version, keeping the marker case of the
// highest match and its padding width (widest observed on a value tie, so a
// stack holding v01 and v1 never regresses to single-digit padding). With no
// matching base name the candidate is returned unchanged; the caller decides
// whether to start a version sequence.
func Next(candidate string, existing []string) string {
	var (
		best  Token
		found bool
	)
	for _, name := range existing {
		base, tok, ok := Split(name)
		if !ok || base != candidate {
			continue
		}
		switch {
		case !found:
			best, found = tok, true
		case tok.Value > best.Value:
			best = tok
		case tok.Value == best.Value && tok.Width > best.Width:
			best = tok
		}
	}
	if !found {
		return candidate
	}
	return candidate + best.next().String()
}

// NextName applies Next to a file name: the returned name carries a version
// token one past the highest existing version sharing the name's base, with
// the extension preserved. The name comes back unchanged when nothing in
// existing shares its base.
func NextName(name string, existing []string) string {
	ext := extOf(name)
	base := Base(name)
	next := Next(base, existing)
	if next == base {
		return name
	}
	return next + ext
}

func stripExt(name string) string {
	return strings.TrimSuffix(name, extOf(name))
}

// extOf returns the file extension when the suffix after the final dot looks
// like one (short and alphanumeric), and "" otherwise. Shot names routinely
// contain dots that are not extensions.
func extOf(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || len(ext) > 5 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return ""
		}
	}
	if len(ext) == 1 {
		return ""
	}
	return ext
}
