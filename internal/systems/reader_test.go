package systems

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JYF/edmap/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, input string) ([]model.SystemRecord, Stats) {
	t.Helper()
	var out []model.SystemRecord
	stats, err := Scan(strings.NewReader(input), zerolog.Nop(), func(rec model.SystemRecord) error {
		out = append(out, rec)
		return nil
	})
	require.NoError(t, err)
	return out, stats
}

func TestScan_WellFormedRecords(t *testing.T) {
	input := `{"name":"Sol","coords":{"x":0,"y":0,"z":0}}
{"name":"Achenar","coords":{"x":67.5,"y":-119.46875,"z":24.84375}}
`
	recs, stats := collect(t, input)

	require.Len(t, recs, 2)
	assert.Equal(t, "Sol", recs[0].Name)
	assert.Equal(t, &model.Coords{X: 0, Y: 0, Z: 0}, recs[0].Coords)
	assert.Equal(t, "Achenar", recs[1].Name)
	assert.Equal(t, 67.5, recs[1].Coords.X)

	assert.Equal(t, int64(2), stats.Lines)
	assert.Equal(t, int64(2), stats.Records)
	assert.Equal(t, int64(0), stats.Skipped)
}

func TestScan_SkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`{"name":"Sol","coords":{"x":0,"y":0,"z":0}}`,
		`{not json`,
		`{"name":"","coords":{"x":1,"y":2,"z":3}}`,
		`{"name":"NoCoords"}`,
		`{"name":"Partial","coords":{"x":1,"y":2}}`,
		`{"name":"Wolf 359","coords":{"x":3.875,"y":6.46875,"z":-1.90625}}`,
	}, "\n")

	recs, stats := collect(t, input)

	require.Len(t, recs, 2)
	assert.Equal(t, "Sol", recs[0].Name)
	assert.Equal(t, "Wolf 359", recs[1].Name)

	assert.Equal(t, int64(6), stats.Lines)
	assert.Equal(t, int64(2), stats.Records)
	assert.Equal(t, int64(4), stats.Skipped)
	assert.Equal(t, []int64{2, 3, 4, 5}, stats.SkippedSample)
}

func TestScan_OversizedLineIsSkippedNotFatal(t *testing.T) {
	huge := `{"name":"` + strings.Repeat("A", 2*1024*1024) + `","coords":{"x":1,"y":2,"z":3}}`
	input := huge + "\n" + `{"name":"Sol","coords":{"x":0,"y":0,"z":0}}` + "\n"

	recs, stats := collect(t, input)

	require.Len(t, recs, 1)
	assert.Equal(t, "Sol", recs[0].Name)
	assert.Equal(t, int64(2), stats.Lines)
	assert.Equal(t, int64(1), stats.Records)
	assert.Equal(t, int64(1), stats.Skipped)
	assert.Equal(t, []int64{1}, stats.SkippedSample)
}

func TestScan_OversizedFinalLineWithoutNewline(t *testing.T) {
	input := `{"name":"Sol","coords":{"x":0,"y":0,"z":0}}` + "\n" +
		`{"name":"` + strings.Repeat("B", 2*1024*1024) + `"`

	recs, stats := collect(t, input)

	require.Len(t, recs, 1)
	assert.Equal(t, int64(2), stats.Lines)
	assert.Equal(t, int64(1), stats.Skipped)
}

func TestScan_BlankLinesIgnoredSilently(t *testing.T) {
	input := "\n\n{\"name\":\"Sol\",\"coords\":{\"x\":0,\"y\":0,\"z\":0}}\n   \n"
	recs, stats := collect(t, input)

	require.Len(t, recs, 1)
	assert.Equal(t, int64(0), stats.Skipped)
}

func TestScan_ZeroCoordinatesAreLegal(t *testing.T) {
	recs, stats := collect(t, `{"name":"Sol","coords":{"x":0,"y":0,"z":0}}`)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(0), stats.Skipped)
	assert.Equal(t, 0.0, recs[0].Coords.Z)
}

func TestScan_CallbackErrorStopsStream(t *testing.T) {
	input := `{"name":"A","coords":{"x":1,"y":1,"z":1}}
{"name":"B","coords":{"x":2,"y":2,"z":2}}`

	calls := 0
	_, err := Scan(strings.NewReader(input), zerolog.Nop(), func(model.SystemRecord) error {
		calls++
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}

func TestReader_Restartable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "systems.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"name":"Sol","coords":{"x":0,"y":0,"z":0}}`+"\n"+`{bad`+"\n",
	), 0644))

	r := NewReader(path, zerolog.Nop())

	for i := 0; i < 2; i++ {
		var names []string
		err := r.Each(func(rec model.SystemRecord) error {
			names = append(names, rec.Name)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Sol"}, names)
		assert.Equal(t, int64(1), r.Stats().Skipped)
	}
}

func TestReader_MissingSourceIsFatal(t *testing.T) {
	r := NewReader(filepath.Join(t.TempDir(), "absent.jsonl"), zerolog.Nop())
	err := r.Each(func(model.SystemRecord) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.jsonl")
}
