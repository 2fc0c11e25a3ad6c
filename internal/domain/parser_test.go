package domain

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildLine renders a fixed-width daily record from 4-column tokens, the
// same layout the Kyoto documents use.
func buildLine(yy, mm, dd int, pre string, tokens ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DST%02d%02d*%02dRRX020", yy, mm, dd)
	fmt.Fprintf(&sb, "%4s", pre)
	for _, tok := range tokens {
		fmt.Fprintf(&sb, "%4s", tok)
	}
	return sb.String()
}

// numericTokens returns n normal value tokens v, v-1, v-2, ...
func numericTokens(n, v int) []string {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("%d", v-i)
	}
	return tokens
}

func TestParseLine_FullRow(t *testing.T) {
	line := buildLine(26, 8, 15, "-12", numericTokens(24, -3)...)

	row, ok := ParseLine(line)
	require.True(t, ok)

	assert.Equal(t, 2026, row.Year)
	assert.Equal(t, 8, int(row.Month))
	assert.Equal(t, 15, row.Day)
	require.NotNil(t, row.PreField)
	assert.Equal(t, -12, *row.PreField)
	assert.False(t, row.StoppedEarly)
	assert.False(t, row.LastHourPackedFiller)

	require.Len(t, row.Hours, 24)
	assert.Equal(t, -3, row.Hours[0])
	assert.Equal(t, -26, row.Hours[23])
}

func TestParseLine_NotARecord(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"header", " HOURLY EQUATORIAL DST VALUES"},
		{"blank", ""},
		{"wrong tag", "KP 2608*15 ..."},
		{"truncated before first hour", "DST2608*15RRX020 -12"},
		{"non-numeric day", buildLine(26, 8, 15, "-12", numericTokens(24, -3)...)[:8] + "xx" + strings.Repeat(" ", 110)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseLine(tt.line)
			assert.False(t, ok)
		})
	}
}

func TestParseLine_StopsAtFiller(t *testing.T) {
	// Hours 0..9 written, filler from hour 10 on.
	tokens := append(numericTokens(10, -3), "9999", "9999")
	row, ok := ParseLine(buildLine(26, 8, 23, "-15", tokens...))
	require.True(t, ok)

	assert.Len(t, row.Hours, 10)
	assert.True(t, row.StoppedEarly)
	assert.False(t, row.LastHourPackedFiller)
	assert.Equal(t, 9, row.MaxHour())
}

func TestParseLine_PackedFiller(t *testing.T) {
	// Hours 0..9 normal, hour 10 packed: value 2, then end of data.
	tokens := append(numericTokens(10, -3), "2999", "9999")
	row, ok := ParseLine(buildLine(26, 8, 23, "-15", tokens...))
	require.True(t, ok)

	require.Len(t, row.Hours, 11)
	assert.Equal(t, 2, row.Hours[10])
	assert.True(t, row.StoppedEarly)
	assert.True(t, row.LastHourPackedFiller)
}

func TestParseLine_PackedFillerZeroDigit(t *testing.T) {
	tokens := append(numericTokens(5, -3), "0999")
	row, ok := ParseLine(buildLine(26, 8, 23, "", tokens...))
	require.True(t, ok)

	require.Len(t, row.Hours, 6)
	assert.Equal(t, 0, row.Hours[5])
	assert.True(t, row.LastHourPackedFiller)
	assert.Nil(t, row.PreField)
}

func TestParseLine_StopsAtGarbage(t *testing.T) {
	tokens := append(numericTokens(3, -3), "x#.z", "-8")
	row, ok := ParseLine(buildLine(26, 8, 23, "-15", tokens...))
	require.True(t, ok)

	// Garbage stops the scan; the value after it is never reached.
	assert.Len(t, row.Hours, 3)
	assert.True(t, row.StoppedEarly)
	assert.False(t, row.LastHourPackedFiller)
}

func TestParseLine_StopsAtBlankField(t *testing.T) {
	tokens := append(numericTokens(7, -3), "    ", "-8")
	row, ok := ParseLine(buildLine(26, 8, 23, "-15", tokens...))
	require.True(t, ok)

	assert.Len(t, row.Hours, 7)
	assert.True(t, row.StoppedEarly)
}

func TestParseLine_TruncatedLineStopsScan(t *testing.T) {
	// Only the first three hourly fields physically present.
	row, ok := ParseLine(buildLine(26, 8, 23, "-15", numericTokens(3, -3)...))
	require.True(t, ok)

	assert.Len(t, row.Hours, 3)
	assert.True(t, row.StoppedEarly)
}

func TestParseLine_BlankPreField(t *testing.T) {
	row, ok := ParseLine(buildLine(26, 8, 23, "", numericTokens(24, -3)...))
	require.True(t, ok)
	assert.Nil(t, row.PreField)
	assert.False(t, row.StoppedEarly)
}

func TestParseLine_PositiveValues(t *testing.T) {
	tokens := append([]string{"12", "+7"}, "9999")
	row, ok := ParseLine(buildLine(26, 8, 23, "+3", tokens...))
	require.True(t, ok)

	require.NotNil(t, row.PreField)
	assert.Equal(t, 3, *row.PreField)
	assert.Equal(t, 12, row.Hours[0])
	assert.Equal(t, 7, row.Hours[1])
}

func TestParseDocument(t *testing.T) {
	doc := strings.Join([]string{
		" UNIT=nT  (some header)",
		buildLine(26, 8, 2, "-10", numericTokens(24, -3)...),
		buildLine(26, 8, 1, "-11", numericTokens(24, -5)...),
		"",
		buildLine(26, 8, 3, "-12", append(numericTokens(4, -7), "9999")...),
	}, "\n")

	rows := ParseDocument(doc)
	require.Len(t, rows, 3)

	// Sorted ascending by date regardless of document order.
	assert.Equal(t, 1, rows[0].Day)
	assert.Equal(t, 2, rows[1].Day)
	assert.Equal(t, 3, rows[2].Day)
}

func TestParseDocument_CRLF(t *testing.T) {
	doc := buildLine(26, 8, 1, "-11", numericTokens(24, -5)...) + "\r\n"
	rows := ParseDocument(doc)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].StoppedEarly)
}

func TestMergeRows_LaterCollectionWins(t *testing.T) {
	prev := ParseDocument(strings.Join([]string{
		buildLine(26, 7, 30, "-10", numericTokens(24, -3)...),
		buildLine(26, 7, 31, "-10", numericTokens(24, -4)...),
	}, "\n"))
	// Current month republishes July 31 with different values.
	current := ParseDocument(strings.Join([]string{
		buildLine(26, 7, 31, "-20", numericTokens(24, -40)...),
		buildLine(26, 8, 1, "-21", numericTokens(24, -41)...),
	}, "\n"))

	merged := MergeRows(prev, current)
	require.Len(t, merged, 3)

	// No field-level merging: the current-month row wins outright.
	assert.Equal(t, -40, merged[1].Hours[0])
	require.NotNil(t, merged[1].PreField)
	assert.Equal(t, -20, *merged[1].PreField)

	wantDays := []int{30, 31, 1}
	for i, r := range merged {
		assert.Equal(t, wantDays[i], r.Day)
	}
}

func TestMergeRows_Idempotent(t *testing.T) {
	rows := ParseDocument(buildLine(26, 8, 1, "-11", numericTokens(24, -5)...))

	once := MergeRows(rows)
	twice := MergeRows(rows, rows)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("merge not idempotent (-once +twice):\n%s", diff)
	}
}
