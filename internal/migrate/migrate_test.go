package migrate

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	return db
}

func tableColumns(t *testing.T, db *sql.DB, table string) map[string]bool {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		t.Fatalf("table info %s: %v", table, err)
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out[name] = true
	}
	return out
}

func TestRun_CreatesSchema(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	n, err := Run(ctx, db)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 2 {
		t.Errorf("Run applied %d migrations, want 2", n)
	}

	stations := tableColumns(t, db, "stations")
	for _, c := range []string{"id", "station", "latitude", "longitude", "elevation", "name", "country", "state"} {
		if !stations[c] {
			t.Errorf("stations missing column %q", c)
		}
	}
	measurements := tableColumns(t, db, "measurements")
	for _, c := range []string{"id", "station", "date", "precip", "tobs"} {
		if !measurements[c] {
			t.Errorf("measurements missing column %q", c)
		}
	}

	var parent string
	if err := db.QueryRow(`SELECT "table" FROM pragma_foreign_key_list('measurements')`).Scan(&parent); err != nil {
		t.Fatalf("foreign key list: %v", err)
	}
	if parent != "stations" {
		t.Errorf("measurements references %q, want stations", parent)
	}
}

func TestRun_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := Run(ctx, db); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO stations (station, latitude, longitude, elevation, name, country)
		VALUES ('S1', 1, 2, 3, 'One', 'PL')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	n, err := Run(ctx, db)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if n != 0 {
		t.Errorf("second Run applied %d migrations, want 0", n)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM stations`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("stations count after re-run = %d, want 1", count)
	}
}

func TestRun_StationCodeUnique(t *testing.T) {
	db := setupTestDB(t)
	if _, err := Run(context.Background(), db); err != nil {
		t.Fatalf("Run: %v", err)
	}
	insert := `INSERT INTO stations (station, latitude, longitude, elevation, name, country) VALUES ('S1', 1, 2, 3, 'One', 'PL')`
	if _, err := db.Exec(insert); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := db.Exec(insert); err == nil {
		t.Fatal("duplicate station code accepted")
	}
}

func TestPendingMigrations_OrderAndFilter(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0002_second.sql": {Data: []byte("SELECT 2;")},
		"sql/0001_first.sql":  {Data: []byte("SELECT 1;")},
		"sql/0003_third.sql":  {Data: []byte("SELECT 3;")},
		"sql/README.md":       {Data: []byte("not a migration")},
		"sql/10_bad.sql":      {Data: []byte("SELECT 10;")},
	}

	pending, err := pendingMigrations(fsys, map[string]bool{"0002": true})
	if err != nil {
		t.Fatalf("pendingMigrations: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}
	if pending[0].filename() != "0001_first.sql" || pending[1].filename() != "0003_third.sql" {
		t.Errorf("pending = %s, %s", pending[0].filename(), pending[1].filename())
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in      string
		version string
		name    string
		ok      bool
	}{
		{in: "0001_stations.sql", version: "0001", name: "stations", ok: true},
		{in: "0042_add_index_x.sql", version: "0042", name: "add_index_x", ok: true},
		{in: "1_short.sql", ok: false},
		{in: "0001_stations.txt", ok: false},
	}
	for _, tt := range tests {
		version, name, ok := parseMigrationFilename(tt.in)
		if ok != tt.ok || version != tt.version || name != tt.name {
			t.Errorf("parseMigrationFilename(%q) = %q, %q, %v; want %q, %q, %v",
				tt.in, version, name, ok, tt.version, tt.name, tt.ok)
		}
	}
}
