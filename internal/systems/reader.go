// Package systems reads the newline-delimited JSON record source of system
// coordinates. Malformed lines are skipped with a warning, never fatal; only
// a source that cannot be opened aborts the run.
package systems

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JYF/edmap/internal/model"

	"github.com/rs/zerolog"
)

// skippedSampleSize bounds how many skipped line numbers are retained for
// diagnostics.
const skippedSampleSize = 20

// maxLineSize caps a single record line. EDSM dumps stay well under this;
// a longer line is skipped and the stream resumes at the next newline.
const maxLineSize = 1024 * 1024

// Stats describes one pass over the record source.
type Stats struct {
	Lines   int64
	Records int64
	Skipped int64
	// SkippedSample holds the 1-based line numbers of the first skipped
	// lines, capped at skippedSampleSize.
	SkippedSample []int64
}

// rawRecord is the decode target. Pointer fields distinguish an absent
// coordinate from a legal zero.
type rawRecord struct {
	Name   string `json:"name"`
	Coords *struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
		Z *float64 `json:"z"`
	} `json:"coords"`
}

// Reader streams SystemRecords from a JSONL file. Each pass re-opens the
// file, so a Reader may be invoked repeatedly over the same source.
type Reader struct {
	path   string
	logger zerolog.Logger
	stats  Stats
}

// NewReader creates a reader over the record source at path.
func NewReader(path string, logger zerolog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// Each streams every well-formed record to fn in file order. Returns a fatal
// error if the source cannot be opened or fn fails; parse failures are
// counted and logged, and the stream continues.
func (r *Reader) Each(fn func(model.SystemRecord) error) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("error opening record source %s: %w", r.path, err)
	}
	defer func() { _ = f.Close() }()

	stats, err := Scan(f, r.logger, fn)
	r.stats = stats
	return err
}

// Stats returns the counts from the most recent pass.
func (r *Reader) Stats() Stats {
	return r.stats
}

// Scan streams records from an already-open source. Exposed separately so
// callers and tests can feed any io.Reader.
func Scan(src io.Reader, logger zerolog.Logger, fn func(model.SystemRecord) error) (Stats, error) {
	var stats Stats

	br := bufio.NewReaderSize(src, 64*1024)

	for {
		buf, tooLong, rerr := readLine(br)
		atEOF := rerr == io.EOF
		if rerr != nil && !atEOF {
			return stats, fmt.Errorf("error reading record source: %w", rerr)
		}
		if atEOF && !tooLong && len(buf) == 0 {
			break
		}

		stats.Lines++
		if tooLong {
			skip(&stats, logger, stats.Lines, "line too long")
			if atEOF {
				break
			}
			continue
		}

		line := strings.TrimSpace(string(buf))
		if line == "" {
			if atEOF {
				break
			}
			continue
		}

		var raw rawRecord
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			skip(&stats, logger, stats.Lines, fmt.Sprintf("invalid JSON: %v", err))
			continue
		}
		if raw.Name == "" {
			skip(&stats, logger, stats.Lines, "missing name")
			continue
		}
		if raw.Coords == nil {
			skip(&stats, logger, stats.Lines, "missing coords")
			continue
		}
		if raw.Coords.X == nil || raw.Coords.Y == nil || raw.Coords.Z == nil {
			skip(&stats, logger, stats.Lines, "incomplete coords")
			continue
		}

		rec := model.SystemRecord{
			Name: raw.Name,
			Coords: &model.Coords{
				X: *raw.Coords.X,
				Y: *raw.Coords.Y,
				Z: *raw.Coords.Z,
			},
		}
		if err := fn(rec); err != nil {
			return stats, err
		}
		stats.Records++
		if atEOF {
			break
		}
	}

	return stats, nil
}

// readLine reads one line, without the terminator. A line longer than
// maxLineSize is discarded up to the next newline and reported as truncated,
// so the caller can skip it and keep streaming.
func readLine(br *bufio.Reader) (line []byte, truncated bool, err error) {
	for {
		part, rerr := br.ReadSlice('\n')
		line = append(line, part...)
		switch rerr {
		case nil, io.EOF:
			line = bytes.TrimSuffix(line, []byte("\n"))
			if len(line) > maxLineSize {
				return nil, true, rerr
			}
			return line, false, rerr
		case bufio.ErrBufferFull:
			if len(line) <= maxLineSize {
				continue
			}
			for {
				if _, derr := br.ReadSlice('\n'); derr != bufio.ErrBufferFull {
					return nil, true, derr
				}
			}
		default:
			return nil, false, rerr
		}
	}
}

func skip(stats *Stats, logger zerolog.Logger, line int64, reason string) {
	stats.Skipped++
	if len(stats.SkippedSample) < skippedSampleSize {
		stats.SkippedSample = append(stats.SkippedSample, line)
	}
	logger.Warn().Int64("line", line).Str("reason", reason).Msg("Skipping record source line")
}
