package app

import (
	"context"
	"errors"
	"log/slog"

	"stationdb/internal/modules/stations/repository"
	"stationdb/internal/modules/stations/types"
)

const demoStationNewName = "Updated Test Station"

// demoStation is inserted, renamed, listed and deleted after every import.
func demoStation() types.Station {
	state := "Mazowieckie"
	return types.Station{
		Code:      "TEST001",
		Latitude:  52.23,
		Longitude: 21.01,
		Elevation: 100,
		Name:      "Test Station",
		Country:   "Poland",
		State:     &state,
	}
}

// runDemo never aborts: each step reports its own outcome.
func runDemo(ctx context.Context, repo repository.StationRepository) {
	s := demoStation()
	InsertStation(ctx, repo, s)
	UpdateStationName(ctx, repo, s.Code, demoStationNewName)
	GetStationsByCountry(ctx, repo, s.Country)
	DeleteStation(ctx, repo, s.Code)
}

// The helpers below turn repository results into status lines.

func InsertStation(ctx context.Context, repo repository.StationRepository, s types.Station) bool {
	stored, err := repo.InsertStation(ctx, s)
	if err != nil {
		slog.Error("insert station failed", "station", s.Code, "error", err)
		return false
	}
	slog.Info("station added", "station", stored.Code, "id", stored.ID, "name", stored.Name)
	return true
}

func UpdateStationName(ctx context.Context, repo repository.StationRepository, code, name string) bool {
	err := repo.UpdateStationName(ctx, code, name)
	switch {
	case errors.Is(err, types.ErrNotFound):
		slog.Warn("station not found", "station", code)
		return false
	case err != nil:
		slog.Error("update station failed", "station", code, "error", err)
		return false
	}
	slog.Info("station renamed", "station", code, "name", name)
	return true
}

func GetStationsByCountry(ctx context.Context, repo repository.StationRepository, country string) []types.Station {
	stations, err := repo.GetStationsByCountry(ctx, country)
	if err != nil {
		slog.Error("list stations failed", "country", country, "error", err)
		return nil
	}
	slog.Info("stations by country", "country", country, "count", len(stations))
	for _, s := range stations {
		state := ""
		if s.State != nil {
			state = *s.State
		}
		slog.Info("station", "id", s.ID, "name", s.Name, "state", state)
	}
	return stations
}

func DeleteStation(ctx context.Context, repo repository.StationRepository, code string) bool {
	err := repo.DeleteStation(ctx, code)
	switch {
	case errors.Is(err, types.ErrNotFound):
		slog.Warn("station not found", "station", code)
		return false
	case err != nil:
		slog.Error("delete station failed", "station", code, "error", err)
		return false
	}
	slog.Info("station deleted", "station", code)
	return true
}

func reportImportError(kind, path string, err error) {
	var convErr *types.ConversionError
	switch {
	case errors.Is(err, types.ErrFileNotFound):
		slog.Error("input file not found", "kind", kind, "path", path)
	case errors.As(err, &convErr):
		slog.Error("invalid value in input file", "kind", kind, "path", path,
			"line", convErr.Line, "column", convErr.Column, "value", convErr.Value, "error", convErr.Err)
	case errors.Is(err, types.ErrConstraint):
		slog.Error("store rejected import", "kind", kind, "path", path, "error", err)
	default:
		slog.Error("import failed", "kind", kind, "path", path, "error", err)
	}
}
