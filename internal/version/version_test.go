package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		wantBase string
		wantTok  Token
		wantOK   bool
	}{
		{"SHOT_010_v02", "SHOT_010", Token{"_v", 2, 2}, true},
		{"SHOT_010_V3", "SHOT_010", Token{"_V", 3, 1}, true},
		{"SHOT_010_v02.mp4", "SHOT_010", Token{"_v", 2, 2}, true},
		{"SHOT_010_v002.mov", "SHOT_010", Token{"_v", 2, 3}, true},
		{"SHOT_010", "SHOT_010", Token{}, false},
		{"SHOT_010_vFinal", "SHOT_010_vFinal", Token{}, false},
		{"SHOT_010_v", "SHOT_010_v", Token{}, false},
		{"promo_2.3_v10", "promo_2.3", Token{"_v", 10, 2}, true},
	}
	for _, tt := range tests {
		base, tok, ok := Split(tt.name)
		assert.Equal(t, tt.wantOK, ok, tt.name)
		assert.Equal(t, tt.wantBase, base, tt.name)
		if tt.wantOK {
			assert.Equal(t, tt.wantTok, tok, tt.name)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	for _, tok := range []Token{
		{"_v", 1, 2},
		{"_V", 9, 1},
		{"_v", 10, 2},
		{"_v", 7, 4},
		{"_V", 100, 2},
	} {
		_, reparsed, ok := Split("shot" + tok.String())
		require.True(t, ok, tok.String())
		assert.Equal(t, tok, reparsed)
	}
}

func TestNext_IncrementsHighestMatch(t *testing.T) {
	existing := []string{"b_v01", "b_v02", "b_V03"}
	// Marker case follows the highest existing version, width stays at 2.
	assert.Equal(t, "b_V04", Next("b", existing))
}

func TestNext_NoMatchReturnsCandidateUnchanged(t *testing.T) {
	assert.Equal(t, "b", Next("b", nil))
	assert.Equal(t, "b", Next("b", []string{"other_v01", "b2_v03"}))
}

func TestNext_WidthDoesNotRegress(t *testing.T) {
	assert.Equal(t, "x_v11", Next("x", []string{"x_v9", "x_v10"}))
	// Same maximum value written with different paddings: widest wins.
	assert.Equal(t, "y_v002", Next("y", []string{"y_v1", "y_v001"}))
}

func TestNext_MinimumWidthTwo(t *testing.T) {
	assert.Equal(t, "x_v10", Next("x", []string{"x_v9"}))
	assert.Equal(t, "x_v02", Next("x", []string{"x_v1"}))
}

func TestNext_CaseSensitiveBaseMatch(t *testing.T) {
	assert.Equal(t, "Shot", Next("Shot", []string{"shot_v05"}))
}

func TestNext_IgnoresMalformedSuffixes(t *testing.T) {
	existing := []string{"b_vFinal", "b_v", "b_v02"}
	assert.Equal(t, "b_v03", Next("b", existing))
}

func TestNext_ExtensionsIgnored(t *testing.T) {
	existing := []string{"b_v01.mp4", "b_v02.mov"}
	assert.Equal(t, "b_v03", Next("b", existing))
}

func TestNext_RoundTrip(t *testing.T) {
	existing := []string{"shot_v01"}
	name := "shot"
	for i := 2; i < 12; i++ {
		next := Next(name, existing)
		_, tok, ok := Split(next)
		require.True(t, ok)
		assert.Equal(t, int64(i), tok.Value)
		existing = append(existing, next)
	}
}

func TestNextName(t *testing.T) {
	existing := []string{"sh010_comp_v01.mov", "sh010_comp_v03.mov"}

	assert.Equal(t, "sh010_comp_v04.mov", NextName("sh010_comp_v03.mov", existing))
	assert.Equal(t, "sh010_comp_v04.mov", NextName("sh010_comp_v01.mov", existing))
	// no shared base: unchanged
	assert.Equal(t, "sh020_comp_v01.mov", NextName("sh020_comp_v01.mov", existing))
	// extension of the local name is kept even when remote names differ
	assert.Equal(t, "sh010_comp_v04.mp4", NextName("sh010_comp_v02.mp4", existing))
}
