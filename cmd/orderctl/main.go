package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	_ "time/tzdata"

	"orderdesk/internal/config"
	"orderdesk/internal/entity"
	"orderdesk/internal/export"
	"orderdesk/internal/repository"
	"orderdesk/migrations"
	"orderdesk/pkg/logger"
	"orderdesk/pkg/metric"
	"orderdesk/pkg/storage/postgres"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "orderctl: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "orderctl",
		Usage: "operator tooling for the order desk database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "path to config file",
				EnvVars:  []string{"CONFIG_PATH"},
				Required: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply or roll back the schema",
				Subcommands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "apply all pending migrations",
						Action: migrateAction(postgres.Up),
					},
					{
						Name:   "down",
						Usage:  "roll back every migration",
						Action: migrateAction(postgres.Down),
					},
				},
			},
			{
				Name:  "export",
				Usage: "write orders to an xlsx workbook",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "output file or directory (default: dated file in the working directory)",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "only orders with this status (pending, shipped, delivered, cancelled)",
					},
					&cli.StringFlag{
						Name:  "q",
						Usage: "only orders matching this search text",
					},
				},
				Action: exportAction,
			},
		},
	}
}

type env struct {
	cfg *config.Config
	log *logger.Adapter
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.LoadPath(c.String("config"))
	if err != nil {
		return nil, err
	}

	log, err := logger.NewAdapter(cfg, logger.Filename(""), logger.Console(os.Stderr))
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, log: log}, nil
}

func migrateAction(direction postgres.Direction) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := setup(c)
		if err != nil {
			return err
		}
		defer func() { _ = e.log.Sync() }()

		if err = postgres.Migrate(&e.cfg.Postgres, migrations.FS, ".", direction, e.log); err != nil {
			return err
		}

		e.log.Infow("migration finished", "direction", string(direction))
		return nil
	}
}

func exportAction(c *cli.Context) error {
	filter, err := filterFrom(c.String("status"), c.String("q"))
	if err != nil {
		return err
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	opts := append(postgres.FromConfig(&e.cfg.Postgres), postgres.MaxPoolSize(1))
	db, err := postgres.NewPostgres(&e.cfg.Postgres, e.log.With("component", "database"), opts...)
	if err != nil {
		return err
	}
	defer db.Close()

	orders, err := repository.NewOrderRepository(db).List(c.Context, filter)
	if err != nil {
		return err
	}

	exporter, err := export.New(e.cfg.Export.Timezone, metric.NewFactory().Orders())
	if err != nil {
		return err
	}

	path := outputPath(c.String("out"), exporter.FileName())
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err = exporter.Write(f, orders); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		if errors.Is(err, export.ErrNoOrders) {
			return errors.New("no orders to export")
		}
		return err
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	e.log.Infow("orders exported", "path", path, "orders", len(orders))
	return nil
}

func filterFrom(status, query string) (entity.OrderFilter, error) {
	filter := entity.OrderFilter{Query: strings.TrimSpace(query)}

	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" || status == "all" {
		return filter, nil
	}

	s, err := entity.ParseStatus(status)
	if err != nil {
		return entity.OrderFilter{}, err
	}
	filter.Status = s

	return filter, nil
}

// outputPath places the dated file name inside out when out is a directory.
func outputPath(out, name string) string {
	if out == "" {
		return name
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, name)
	}
	return out
}
