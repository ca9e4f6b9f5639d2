package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/JYF/edmap/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logLines decodes each JSON log line written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &m))
		lines = append(lines, m)
	}
	return lines
}

func TestSummarize_CountsAndRebuild(t *testing.T) {
	var buf bytes.Buffer
	r := New(zerolog.New(&buf), 0)

	r.Summarize(model.Summary{
		Systems: 120, Skipped: 2, Total: 10, Matched: 7, Unmatched: 3, Rebuilt: true,
	}, nil)

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "Rebuilt system index", lines[0]["message"])
	assert.Equal(t, float64(120), lines[0]["systems"])
	assert.Equal(t, "Stations processed", lines[1]["message"])
	assert.Equal(t, float64(7), lines[1]["matched"])
	assert.Equal(t, float64(3), lines[1]["unmatched"])
}

func TestSummarize_FreshIndex(t *testing.T) {
	var buf bytes.Buffer
	r := New(zerolog.New(&buf), 0)

	r.Summarize(model.Summary{Total: 1, Matched: 1}, nil)

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "System index up to date, reusing", lines[0]["message"])
}

func TestSummarize_UnmatchedListed(t *testing.T) {
	var buf bytes.Buffer
	r := New(zerolog.New(&buf), 0)

	unmatched := []model.UnmatchedEntry{
		{Name: "Deep Space Nine", System: "Bajor", Type: "Orbis Starport"},
	}
	r.Summarize(model.Summary{Total: 1, Unmatched: 1}, unmatched)

	lines := logLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "Unmatched station", lines[2]["message"])
	assert.Equal(t, "Deep Space Nine", lines[2]["station"])
	assert.Equal(t, "Bajor", lines[2]["system"])
	assert.Equal(t, "Orbis Starport", lines[2]["type"])
}

func TestSummarize_UnmatchedBounded(t *testing.T) {
	var buf bytes.Buffer
	r := New(zerolog.New(&buf), 3)

	unmatched := make([]model.UnmatchedEntry, 5)
	for i := range unmatched {
		unmatched[i] = model.UnmatchedEntry{Name: "S", System: "X", Type: "Outpost"}
	}
	r.Summarize(model.Summary{Total: 5, Unmatched: 5}, unmatched)

	lines := logLines(t, &buf)
	// 2 summary lines + 3 listed + 1 overflow
	require.Len(t, lines, 6)
	last := lines[len(lines)-1]
	assert.Equal(t, "Further unmatched stations not listed", last["message"])
	assert.Equal(t, float64(2), last["more"])
}
