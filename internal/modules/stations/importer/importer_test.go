package importer

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stationdb/internal/migrate"
	"stationdb/internal/modules/stations/repository"
	"stationdb/internal/modules/stations/types"
)

const stationsCSV = `station,latitude,longitude,elevation,name,country,state
USC00519397,21.2716,-157.8168,3.0,"WAIKIKI 717.2, HI US",US,HI
USC00513117,21.4234,-157.8015,14.6,KANEOHE 838.1,US,HI
PL0001,52.23,21.01,100,Warszawa,Poland,
`

const measurementsCSV = `station,date,precip,tobs
USC00519397,2010-01-01,0.08,65
USC00519397,2010-01-02,0.0,63
`

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestImporter(t *testing.T) (*Importer, repository.StationRepository) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = migrate.Run(context.Background(), db)
	require.NoError(t, err)

	repo := repository.NewRepository(db)
	return NewImporter(repo, nil), repo
}

func TestParseStations(t *testing.T) {
	stations, err := ParseStations(writeCSV(t, "stations.csv", stationsCSV))
	require.NoError(t, err)
	require.Len(t, stations, 3)

	assert.Equal(t, "USC00519397", stations[0].Code)
	assert.Equal(t, "WAIKIKI 717.2, HI US", stations[0].Name)
	assert.InDelta(t, 21.2716, stations[0].Latitude, 1e-12)
	assert.InDelta(t, -157.8168, stations[0].Longitude, 1e-12)
	assert.Equal(t, 3.0, stations[0].Elevation)
	require.NotNil(t, stations[0].State)
	assert.Equal(t, "HI", *stations[0].State)

	assert.Equal(t, "Poland", stations[2].Country)
	require.NotNil(t, stations[2].State)
	assert.Equal(t, "", *stations[2].State, "empty state cell is kept as an empty string")
}

func TestParseStations_HeaderByNameWithBOMAndExtraColumns(t *testing.T) {
	content := "\ufeffname,country,station,extra,state,elevation,longitude,latitude\n" +
		"Gdansk,Poland,PL0002,ignored,Pomorskie,12,18.64,54.35\n"
	stations, err := ParseStations(writeCSV(t, "stations.csv", content))
	require.NoError(t, err)
	require.Len(t, stations, 1)

	s := stations[0]
	assert.Equal(t, "PL0002", s.Code)
	assert.Equal(t, "Gdansk", s.Name)
	assert.Equal(t, 54.35, s.Latitude)
	assert.Equal(t, 18.64, s.Longitude)
	assert.Equal(t, 12.0, s.Elevation)
}

func TestParseStations_MissingColumn(t *testing.T) {
	content := "station,latitude,longitude,elevation,name,country\nX,1,2,3,n,c\n"
	_, err := ParseStations(writeCSV(t, "stations.csv", content))
	require.ErrorIs(t, err, types.ErrMissingColumn)
	assert.Contains(t, err.Error(), "state")
}

func TestParseStations_EmptyFile(t *testing.T) {
	_, err := ParseStations(writeCSV(t, "stations.csv", ""))
	require.ErrorIs(t, err, types.ErrMissingColumn)
}

func TestParseStations_HeaderOnly(t *testing.T) {
	stations, err := ParseStations(writeCSV(t, "stations.csv", "station,latitude,longitude,elevation,name,country,state\n"))
	require.NoError(t, err)
	assert.Empty(t, stations)
}

func TestParseStations_BadFloat(t *testing.T) {
	content := stationsCSV + "BAD001,north,1,2,Bad,Nowhere,\n"
	path := writeCSV(t, "stations.csv", content)

	_, err := ParseStations(path)
	require.ErrorIs(t, err, types.ErrInvalidValue)

	var convErr *types.ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, path, convErr.File)
	assert.Equal(t, 5, convErr.Line)
	assert.Equal(t, "latitude", convErr.Column)
	assert.Equal(t, "north", convErr.Value)
}

func TestParseStations_FileNotFound(t *testing.T) {
	_, err := ParseStations(filepath.Join(t.TempDir(), "nope.csv"))
	require.ErrorIs(t, err, types.ErrFileNotFound)
}

func TestParseMeasurements(t *testing.T) {
	ms, err := ParseMeasurements(writeCSV(t, "measure.csv", measurementsCSV))
	require.NoError(t, err)
	require.Len(t, ms, 2)

	assert.Equal(t, "USC00519397", ms[0].StationCode)
	assert.True(t, ms[0].Date.Equal(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)), "date = %v", ms[0].Date)
	assert.Equal(t, 0.08, ms[0].Precip)
	assert.Equal(t, 65.0, ms[0].Tobs)
}

func TestParseMeasurements_BadDate(t *testing.T) {
	tests := []struct {
		name string
		date string
	}{
		{name: "slashes", date: "2010/01/03"},
		{name: "day first", date: "03-01-2010"},
		{name: "with time", date: "2010-01-03T00:00:00"},
		{name: "out of range", date: "2010-13-01"},
		{name: "not zero padded", date: "2010-1-5"},
		{name: "empty", date: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := measurementsCSV + "USC00519397," + tt.date + ",0.1,60\n"
			_, err := ParseMeasurements(writeCSV(t, "measure.csv", content))
			require.ErrorIs(t, err, types.ErrInvalidValue)

			var convErr *types.ConversionError
			require.True(t, errors.As(err, &convErr))
			assert.Equal(t, "date", convErr.Column)
			assert.Equal(t, 4, convErr.Line)
		})
	}
}

func TestParseMeasurements_RaggedRow(t *testing.T) {
	content := measurementsCSV + "USC00519397,2010-01-03\n"
	_, err := ParseMeasurements(writeCSV(t, "measure.csv", content))
	require.Error(t, err)
}

func TestImportStationsAndMeasurements(t *testing.T) {
	imp, repo := newTestImporter(t)
	ctx := context.Background()

	n, err := imp.ImportStations(ctx, writeCSV(t, "stations.csv", stationsCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = imp.ImportMeasurements(ctx, writeCSV(t, "measure.csv", measurementsCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stations, err := repo.CountStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stations)
	measurements, err := repo.CountMeasurements(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, measurements)

	got, err := repo.GetStationByCode(ctx, "USC00513117")
	require.NoError(t, err)
	assert.Equal(t, "KANEOHE 838.1", got.Name)
	assert.Equal(t, 14.6, got.Elevation)

	got, err = repo.GetStationByCode(ctx, "PL0001")
	require.NoError(t, err)
	require.NotNil(t, got.State, "empty state cell is stored as '' rather than NULL")
	assert.Equal(t, "", *got.State)
}

func TestImportStations_ReimportViolatesUniqueness(t *testing.T) {
	imp, repo := newTestImporter(t)
	ctx := context.Background()
	path := writeCSV(t, "stations.csv", stationsCSV)

	_, err := imp.ImportStations(ctx, path)
	require.NoError(t, err)

	n, err := imp.ImportStations(ctx, path)
	require.ErrorIs(t, err, types.ErrConstraint)
	assert.Zero(t, n)

	count, err := repo.CountStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestImportMeasurements_BadDatePersistsNothing(t *testing.T) {
	imp, repo := newTestImporter(t)
	ctx := context.Background()

	content := measurementsCSV + "USC00519397,01/03/2010,0.1,60\n"
	n, err := imp.ImportMeasurements(ctx, writeCSV(t, "measure.csv", content))
	require.ErrorIs(t, err, types.ErrInvalidValue)
	assert.Zero(t, n)

	count, err := repo.CountMeasurements(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestImportMeasurements_MissingFile(t *testing.T) {
	imp, _ := newTestImporter(t)
	_, err := imp.ImportMeasurements(context.Background(), filepath.Join(t.TempDir(), "clean_measure.csv"))
	require.ErrorIs(t, err, types.ErrFileNotFound)
}
