// Package join streams station records against the index store, partitioning
// every row into either a map marker or an unmatched diagnostic.
package join

import (
	"context"
	"fmt"

	"github.com/JYF/edmap/internal/model"
	"github.com/JYF/edmap/internal/pins"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
)

// Locator is the slice of the index store the engine needs. The miss case is
// ok=false with a nil error.
type Locator interface {
	Lookup(name string) (model.Coords, bool, error)
}

// StationSource streams station rows in input order.
type StationSource interface {
	Each(fn func(model.StationRecord) error) error
}

// Result is the outcome of one join run, produced as a unit. Always
// Matched + len(Unmatched) == Total.
type Result struct {
	Markers   []model.Marker
	Unmatched []model.UnmatchedEntry
	Total     int64
	Matched   int64
}

// Engine joins stations to system coordinates.
type Engine struct {
	locator Locator
	logger  zerolog.Logger

	processed metric.Int64Counter
	matched   metric.Int64Counter
	unmatched metric.Int64Counter
}

// New creates a join engine over the given locator.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(locator Locator, logger zerolog.Logger) (*Engine, error) {
	e := &Engine{locator: locator, logger: logger}

	m := meter()
	var err error
	if e.processed, err = m.Int64Counter("edmap.join.stations_processed"); err != nil {
		return nil, err
	}
	if e.matched, err = m.Int64Counter("edmap.join.stations_matched"); err != nil {
		return nil, err
	}
	if e.unmatched, err = m.Int64Counter("edmap.join.stations_unmatched"); err != nil {
		return nil, err
	}

	return e, nil
}

// Run performs one lookup per station. A hit emits a marker with the pin
// resolved from the station type; a miss emits an unmatched entry carrying
// the original values. Markers keep the input order and are never deduped.
// Only a failing source or a failing store aborts the run.
func (e *Engine) Run(src StationSource) (Result, error) {
	ctx := context.Background()
	var res Result

	err := src.Each(func(rec model.StationRecord) error {
		res.Total++
		e.processed.Add(ctx, 1)

		coords, ok, err := e.locator.Lookup(rec.SystemName)
		if err != nil {
			return fmt.Errorf("error resolving system for station %q: %w", rec.Name, err)
		}

		if !ok {
			res.Unmatched = append(res.Unmatched, model.UnmatchedEntry{
				Name:   rec.Name,
				System: rec.SystemName,
				Type:   rec.StationType,
			})
			e.unmatched.Add(ctx, 1)
			e.logger.Debug().
				Str("station", rec.Name).
				Str("system", rec.SystemName).
				Msg("No coordinates for station system")
			return nil
		}

		res.Markers = append(res.Markers, model.Marker{
			Pin:  pins.Resolve(rec.StationType),
			Text: MarkerText(rec),
			X:    coords.X,
			Y:    coords.Y,
			Z:    coords.Z,
		})
		res.Matched++
		e.matched.Add(ctx, 1)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return res, nil
}

// MarkerText builds the marker label: system name, station name, station
// type, in that order. The layout is fixed; the viewer shows it verbatim.
func MarkerText(rec model.StationRecord) string {
	return fmt.Sprintf("%s: %s (%s)", rec.SystemName, rec.Name, rec.StationType)
}
