package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/schemefinder/internal/app"
	"github.com/kailas-cloud/schemefinder/internal/config"
	"github.com/kailas-cloud/schemefinder/internal/domain/batch"
	logpkg "github.com/kailas-cloud/schemefinder/internal/logger"
	"github.com/kailas-cloud/schemefinder/internal/usecase/ingest"
	"github.com/kailas-cloud/schemefinder/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "schemectl",
		Usage:   "Curate the scheme catalogue",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Config environment (config/<env>.yaml)",
				Value:   config.GetEnv(),
				EnvVars: []string{"ENV"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Validate, embed and store scheme records from a YAML or parquet file",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to a YAML or .parquet file of scheme records",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Parse and validate only",
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed every stored scheme and rewrite its vector",
				Action: reindexCommand,
			},
			{
				Name:   "create-index",
				Usage:  "Create the vector index if it does not exist",
				Action: createIndexCommand,
			},
		},
	}
}

type session struct {
	deps   *app.Deps
	logger *zap.Logger
}

func openSession(c *cli.Context) (*session, error) {
	env := c.String("env")
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := c.String("log-level")
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	deps, err := app.Build(c.Context, &cfg, logger)
	if err != nil {
		return nil, err
	}
	return &session{deps: deps, logger: logger}, nil
}

func (s *session) close() {
	s.deps.Close()
	_ = s.logger.Sync()
}

func ingestCommand(c *cli.Context) error {
	records, err := ingest.LoadFile(c.String("file"))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.New("no scheme records found")
	}
	if c.Bool("dry-run") {
		return validateRecords(c.App.Writer, records)
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	if _, err := s.deps.Ingest.EnsureIndex(c.Context); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	rep, err := s.deps.Ingest.Ingest(c.Context, records)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return printReport(c.App.Writer, "ingested", &rep)
}

func reindexCommand(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	if _, err := s.deps.Ingest.EnsureIndex(c.Context); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	rep, err := s.deps.Ingest.Reindex(c.Context)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	return printReport(c.App.Writer, "reindexed", &rep)
}

func createIndexCommand(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	created, err := s.deps.Ingest.EnsureIndex(c.Context)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if created {
		fmt.Fprintln(c.App.Writer, "index created")
	} else {
		fmt.Fprintln(c.App.Writer, "index already exists")
	}
	return nil
}

func validateRecords(w io.Writer, records []ingest.Record) error {
	invalid := 0
	for i := range records {
		if _, err := records[i].ToScheme(); err != nil {
			invalid++
			fmt.Fprintf(w, "invalid %q: %v\n", records[i].ID, err)
		}
	}
	fmt.Fprintf(w, "%d records, %d invalid\n", len(records), invalid)
	if invalid > 0 {
		return fmt.Errorf("%d invalid records", invalid)
	}
	return nil
}

func printReport(w io.Writer, verb string, rep *batch.Report) error {
	failed := rep.Failed()
	for _, f := range failed {
		fmt.Fprintf(w, "failed %q: %v\n", f.ID(), f.Err())
	}
	fmt.Fprintf(w, "%s %d schemes, %d failed\n", verb, rep.Succeeded(), len(failed))
	if len(failed) > 0 {
		return fmt.Errorf("%d schemes failed", len(failed))
	}
	return nil
}
