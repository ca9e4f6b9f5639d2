// Package report renders the run summary and unmatched diagnostics to the
// log stream. The output artifact never goes through here.
package report

import (
	"github.com/JYF/edmap/internal/model"

	"github.com/rs/zerolog"
)

// DefaultUnmatchedLimit bounds how many unmatched stations are listed
// individually before collapsing into an overflow count.
const DefaultUnmatchedLimit = 50

// Reporter writes run diagnostics through a zerolog logger.
type Reporter struct {
	logger         zerolog.Logger
	unmatchedLimit int
}

// New creates a reporter. limit <= 0 selects DefaultUnmatchedLimit.
func New(logger zerolog.Logger, limit int) *Reporter {
	if limit <= 0 {
		limit = DefaultUnmatchedLimit
	}
	return &Reporter{logger: logger, unmatchedLimit: limit}
}

// Summarize reports the outcome of a run: index state, join counts and a
// bounded listing of unmatched stations.
func (r *Reporter) Summarize(sum model.Summary, unmatched []model.UnmatchedEntry) {
	if sum.Rebuilt {
		r.logger.Info().
			Int64("systems", sum.Systems).
			Int64("skippedLines", sum.Skipped).
			Dur("duration", sum.BuildDuration).
			Msg("Rebuilt system index")
	} else {
		r.logger.Info().Msg("System index up to date, reusing")
	}

	r.logger.Info().
		Int64("total", sum.Total).
		Int64("matched", sum.Matched).
		Int64("unmatched", sum.Unmatched).
		Dur("duration", sum.JoinDuration).
		Msg("Stations processed")

	if len(unmatched) == 0 {
		return
	}

	shown := unmatched
	if len(shown) > r.unmatchedLimit {
		shown = shown[:r.unmatchedLimit]
	}
	for _, u := range shown {
		r.logger.Warn().
			Str("station", u.Name).
			Str("system", u.System).
			Str("type", u.Type).
			Msg("Unmatched station")
	}
	if overflow := len(unmatched) - len(shown); overflow > 0 {
		r.logger.Warn().Int("more", overflow).Msg("Further unmatched stations not listed")
	}
}
