package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stationdb/internal/db"
	"stationdb/internal/modules/stations/types"
)

//go:embed sql/insert-station.sql
var insertStationSQL string

//go:embed sql/insert-measurement.sql
var insertMeasurementSQL string

//go:embed sql/get-station-by-code.sql
var getStationByCodeSQL string

//go:embed sql/get-stations-by-country.sql
var getStationsByCountrySQL string

//go:embed sql/update-station-name.sql
var updateStationNameSQL string

//go:embed sql/delete-station.sql
var deleteStationSQL string

//go:embed sql/count-stations.sql
var countStationsSQL string

//go:embed sql/count-measurements.sql
var countMeasurementsSQL string

//go:embed sql/get-measurements-by-station.sql
var getMeasurementsByStationSQL string

// StationRepository is the persistence surface for stations and measurements.
// Every write runs in its own transaction; a failed write leaves no trace.
type StationRepository interface {
	// InsertStations writes all stations in one transaction and returns how many were written.
	InsertStations(ctx context.Context, stations []types.Station) (int, error)
	// InsertMeasurements writes all measurements in one transaction and returns how many were written.
	InsertMeasurements(ctx context.Context, measurements []types.Measurement) (int, error)

	InsertStation(ctx context.Context, s types.Station) (types.Station, error)
	UpdateStationName(ctx context.Context, code string, name string) error
	GetStationsByCountry(ctx context.Context, country string) ([]types.Station, error)
	DeleteStation(ctx context.Context, code string) error

	GetStationByCode(ctx context.Context, code string) (types.Station, error)
	GetMeasurementsByStation(ctx context.Context, code string) ([]types.Measurement, error)
	CountStations(ctx context.Context) (int, error)
	CountMeasurements(ctx context.Context) (int, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) StationRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertStations(ctx context.Context, stations []types.Station) (int, error) {
	n := 0
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertStationSQL)
		if err != nil {
			return err
		}
		defer closeStmt(stmt)
		for _, s := range stations {
			if _, err := stmt.ExecContext(ctx, stationArgs(s)...); err != nil {
				return fmt.Errorf("insert station %q: %w", s.Code, classify(err))
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *repositoryImpl) InsertMeasurements(ctx context.Context, measurements []types.Measurement) (int, error) {
	n := 0
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertMeasurementSQL)
		if err != nil {
			return err
		}
		defer closeStmt(stmt)
		for _, m := range measurements {
			_, err := stmt.ExecContext(ctx, m.StationCode, m.Date.Format(types.DateLayout), m.Precip, m.Tobs)
			if err != nil {
				return fmt.Errorf("insert measurement %s@%s: %w", m.StationCode, m.Date.Format(types.DateLayout), classify(err))
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *repositoryImpl) InsertStation(ctx context.Context, s types.Station) (types.Station, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, insertStationSQL, stationArgs(s)...)
		if err != nil {
			return fmt.Errorf("insert station %q: %w", s.Code, classify(err))
		}
		s.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return types.Station{}, err
	}
	return s, nil
}

func (r *repositoryImpl) UpdateStationName(ctx context.Context, code string, name string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, updateStationNameSQL, name, code)
		if err != nil {
			return fmt.Errorf("update station %q: %w", code, classify(err))
		}
		return requireAffected(res, code)
	})
}

func (r *repositoryImpl) DeleteStation(ctx context.Context, code string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, deleteStationSQL, code)
		if err != nil {
			return fmt.Errorf("delete station %q: %w", code, classify(err))
		}
		return requireAffected(res, code)
	})
}

func (r *repositoryImpl) GetStationsByCountry(ctx context.Context, country string) ([]types.Station, error) {
	rows, err := r.db.QueryContext(ctx, getStationsByCountrySQL, country)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()
	out := []types.Station{}
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetStationByCode(ctx context.Context, code string) (types.Station, error) {
	s, err := scanStation(r.db.QueryRowContext(ctx, getStationByCodeSQL, code))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Station{}, fmt.Errorf("%w: %q", types.ErrNotFound, code)
	}
	return s, err
}

func (r *repositoryImpl) GetMeasurementsByStation(ctx context.Context, code string) ([]types.Measurement, error) {
	rows, err := r.db.QueryContext(ctx, getMeasurementsByStationSQL, code)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close measurements rows", "error", err)
		}
	}()
	out := []types.Measurement{}
	for rows.Next() {
		var m types.Measurement
		var date string
		if err := rows.Scan(&m.ID, &m.StationCode, &date, &m.Precip, &m.Tobs); err != nil {
			return nil, err
		}
		m.Date, err = time.Parse(types.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) CountStations(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countStationsSQL).Scan(&n)
	return n, err
}

func (r *repositoryImpl) CountMeasurements(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countMeasurementsSQL).Scan(&n)
	return n, err
}

// withTx runs fn in a fresh transaction, committing on success and rolling back otherwise.
func (r *repositoryImpl) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", classify(err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStation(row rowScanner) (types.Station, error) {
	var s types.Station
	var state sql.NullString
	if err := row.Scan(&s.ID, &s.Code, &s.Latitude, &s.Longitude, &s.Elevation, &s.Name, &s.Country, &state); err != nil {
		return types.Station{}, err
	}
	if state.Valid {
		s.State = &state.String
	}
	return s, nil
}

func stationArgs(s types.Station) []any {
	var state any
	if s.State != nil {
		state = *s.State
	}
	return []any{s.Code, s.Latitude, s.Longitude, s.Elevation, s.Name, s.Country, state}
}

func requireAffected(res sql.Result, code string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", types.ErrNotFound, code)
	}
	return nil
}

func classify(err error) error {
	if db.IsConstraint(err) {
		return fmt.Errorf("%w: %w", types.ErrConstraint, err)
	}
	return err
}

func closeStmt(stmt *sql.Stmt) {
	if err := stmt.Close(); err != nil {
		slog.Error("close statement", "error", err)
	}
}
