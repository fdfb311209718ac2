// Package importer loads station and measurement CSV files into the store.
//
// Each call reads the whole file and converts every row before touching the
// database, so one malformed cell rejects the file and nothing is written.
// The converted records are then inserted in a single transaction.
package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"stationdb/internal/modules/stations/repository"
	"stationdb/internal/modules/stations/types"
)

var (
	StationColumns     = []string{"station", "latitude", "longitude", "elevation", "name", "country", "state"}
	MeasurementColumns = []string{"station", "date", "precip", "tobs"}
)

type Importer struct {
	repository repository.StationRepository
	logger     *slog.Logger
}

func NewImporter(repository repository.StationRepository, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{repository: repository, logger: logger}
}

// ImportStations reads the stations file at path and inserts every row.
// It returns the number of stations written.
func (i *Importer) ImportStations(ctx context.Context, path string) (int, error) {
	log := i.logger.With("run_id", uuid.NewString(), "path", path)

	stations, err := ParseStations(path)
	if err != nil {
		return 0, err
	}
	log.Debug("stations parsed", "rows", len(stations))

	n, err := i.repository.InsertStations(ctx, stations)
	if err != nil {
		return 0, fmt.Errorf("import stations from %s: %w", path, err)
	}
	log.Info("imported stations", "count", n)
	return n, nil
}

// ImportMeasurements reads the measurements file at path and inserts every row.
// It returns the number of measurements written.
func (i *Importer) ImportMeasurements(ctx context.Context, path string) (int, error) {
	log := i.logger.With("run_id", uuid.NewString(), "path", path)

	measurements, err := ParseMeasurements(path)
	if err != nil {
		return 0, err
	}
	log.Debug("measurements parsed", "rows", len(measurements))

	n, err := i.repository.InsertMeasurements(ctx, measurements)
	if err != nil {
		return 0, fmt.Errorf("import measurements from %s: %w", path, err)
	}
	log.Info("imported measurements", "count", n)
	return n, nil
}

func ParseStations(path string) ([]types.Station, error) {
	t, err := readTable(path, StationColumns)
	if err != nil {
		return nil, err
	}
	out := make([]types.Station, 0, len(t.rows))
	for idx := range t.rows {
		r := t.row(idx)
		s := types.Station{
			Code:    r.str("station"),
			Name:    r.str("name"),
			Country: r.str("country"),
			State:   r.text("state"),
		}
		if s.Latitude, err = r.float("latitude"); err != nil {
			return nil, err
		}
		if s.Longitude, err = r.float("longitude"); err != nil {
			return nil, err
		}
		if s.Elevation, err = r.float("elevation"); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func ParseMeasurements(path string) ([]types.Measurement, error) {
	t, err := readTable(path, MeasurementColumns)
	if err != nil {
		return nil, err
	}
	out := make([]types.Measurement, 0, len(t.rows))
	for idx := range t.rows {
		r := t.row(idx)
		m := types.Measurement{StationCode: r.str("station")}
		if m.Date, err = r.date("date"); err != nil {
			return nil, err
		}
		if m.Precip, err = r.float("precip"); err != nil {
			return nil, err
		}
		if m.Tobs, err = r.float("tobs"); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
