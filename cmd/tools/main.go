package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"stationdb/internal/config"
	db "stationdb/internal/db"
	"stationdb/internal/logging"
	"stationdb/internal/migrate"
	"stationdb/internal/modules/stations/importer"
	"stationdb/internal/modules/stations/repository"
)

const usage = `usage: %s <command> [file]
  migrate                    create missing tables in the store
  reset                      delete the store file
  import-stations [file]     import a stations CSV into the existing store
  import-measurements [file] import a measurements CSV into the existing store
`

var errUnknownCommand = errors.New("unknown command")

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, ".env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg, "dev", "stationdb-tools"))

	if err := run(context.Background(), cfg, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		if errors.Is(err, errUnknownCommand) {
			fmt.Fprintf(os.Stderr, usage, os.Args[0])
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, cmd string, args []string) error {
	switch cmd {
	case "reset":
		removed, err := db.Reset(cfg.Path)
		if err != nil {
			return err
		}
		fmt.Printf("store %s removed: %v\n", cfg.Path, removed)
		return nil
	case "migrate", "import-stations", "import-measurements":
	default:
		return fmt.Errorf("%w %q", errUnknownCommand, cmd)
	}

	conn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	n, err := migrate.Run(ctx, conn)
	if err != nil {
		return err
	}
	if cmd == "migrate" {
		fmt.Printf("migrations applied: %d\n", n)
		return nil
	}

	imp := importer.NewImporter(repository.NewRepository(conn), slog.Default())
	if cmd == "import-stations" {
		_, err = imp.ImportStations(ctx, argOr(args, cfg.StationsCSV))
	} else {
		_, err = imp.ImportMeasurements(ctx, argOr(args, cfg.MeasurementsCSV))
	}
	return err
}

func argOr(args []string, def string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return def
}
