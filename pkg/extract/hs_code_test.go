package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"heading only", "The code 0808 covers apples.", []string{"0808"}},
		{"subheading", "Use 0808.10 for fresh apples.", []string{"0808.10"}},
		{"full code", "Tariff line 0808.10.00.10 applies.", []string{"0808.10.00.10"}},
		{"multiple distinct", "Compare 0808.10 with 0808.30 for pears.", []string{"0808.10", "0808.30"}},
		{"duplicates collapsed", "0901.11 appears twice: 0901.11.", []string{"0901.11"}},
		{"no codes", "No commodity codes here.", nil},
		{"year-like number still matches", "Since 2024 the code is 0808.10.", []string{"2024", "0808.10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func TestScanner_CodeWithinSingleFragment(t *testing.T) {
	s := NewScanner()
	got := s.Scan("The HS code 0808.10 covers fresh apples. ")
	assert.Equal(t, []string{"0808.10"}, got)
}

func TestScanner_CodeSplitAcrossFragments(t *testing.T) {
	s := NewScanner()

	assert.Empty(t, s.Scan("The code is 08"))
	assert.Empty(t, s.Scan("08."))
	got := s.Scan("10 for apples")
	assert.Equal(t, []string{"0808.10"}, got)
}

func TestScanner_CodeAtStreamEndNeedsFlush(t *testing.T) {
	s := NewScanner()

	assert.Empty(t, s.Scan("The answer is 0808.10"))
	assert.Equal(t, []string{"0808.10"}, s.Flush())
}

func TestScanner_DoesNotReportGrowingMatchEarly(t *testing.T) {
	s := NewScanner()

	// "0808" alone matches, but more dotted groups may follow.
	assert.Empty(t, s.Scan("code 0808"))
	got := s.Scan(".10.00 applies")
	assert.Equal(t, []string{"0808.10.00"}, got)
}

func TestScanner_DeduplicatesAcrossFragments(t *testing.T) {
	s := NewScanner()

	assert.Equal(t, []string{"0901.11"}, s.Scan("0901.11 is coffee. "))
	assert.Empty(t, s.Scan("Again, 0901.11 is coffee. "))
}

func TestScanner_CarryStaysBounded(t *testing.T) {
	s := NewScanner()

	// A long run of non-code text must not accumulate in the carry.
	for i := 0; i < 1000; i++ {
		s.Scan(strings.Repeat("lorem ipsum ", 10))
	}
	assert.LessOrEqual(t, len(s.carry), maxCarry)

	got := s.Scan(" finally 0808.30 appears ")
	assert.Equal(t, []string{"0808.30"}, got)
}

func TestScanner_MultipleCodesInOneFragment(t *testing.T) {
	s := NewScanner()
	got := s.Scan("Both 0808.10 and 0808.30 are fruit codes. ")
	assert.Equal(t, []string{"0808.10", "0808.30"}, got)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "08081000", Normalize("0808.10.00"))
	assert.Equal(t, "0808", Normalize("0808"))
}
