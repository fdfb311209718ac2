package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stationdb/internal/config"
	db "stationdb/internal/db"
	"stationdb/internal/migrate"
	"stationdb/internal/modules/stations/importer"
	"stationdb/internal/modules/stations/repository"
)

// Report summarizes one pipeline run.
type Report struct {
	StationsImported     int
	MeasurementsImported int
	// Stations and Measurements are the row counts left in the store at the end.
	Stations     int
	Measurements int
}

// Run rebuilds the store from the configured CSV files and then exercises the
// station CRUD operations. Import and CRUD failures are reported and do not
// stop the run; only store setup failures are returned.
func Run(ctx context.Context, cfg config.Config) (Report, error) {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"stationsCSV", cfg.StationsCSV,
		"measurementsCSV", cfg.MeasurementsCSV,
		"referentialPolicy", cfg.ReferentialPolicy,
	)

	var report Report

	if cfg.DSN == "" {
		removed, err := db.Reset(cfg.Path)
		switch {
		case errors.Is(err, db.ErrStoreLocked):
			slog.Error("cannot remove old store; make sure it is not open in another program", "path", cfg.Path, "error", err)
		case err != nil:
			slog.Error("store reset failed", "path", cfg.Path, "error", err)
		case removed:
			slog.Info("removed old store", "path", cfg.Path)
		}
	}

	dbConn, err := db.Open(cfg)
	if err != nil {
		return report, err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if _, err := migrate.Run(ctx, dbConn); err != nil {
		return report, fmt.Errorf("migrate: %w", err)
	}

	repo := repository.NewRepository(dbConn)
	imp := importer.NewImporter(repo, slog.Default())

	report.StationsImported, err = imp.ImportStations(ctx, cfg.StationsCSV)
	if err != nil {
		reportImportError("stations", cfg.StationsCSV, err)
	}
	report.MeasurementsImported, err = imp.ImportMeasurements(ctx, cfg.MeasurementsCSV)
	if err != nil {
		reportImportError("measurements", cfg.MeasurementsCSV, err)
	}

	runDemo(ctx, repo)

	if report.Stations, err = repo.CountStations(ctx); err != nil {
		return report, fmt.Errorf("count stations: %w", err)
	}
	if report.Measurements, err = repo.CountMeasurements(ctx); err != nil {
		return report, fmt.Errorf("count measurements: %w", err)
	}
	slog.Info("store ready",
		"path", cfg.Path,
		"stations", report.Stations,
		"measurements", report.Measurements,
	)

	return report, ctx.Err()
}
