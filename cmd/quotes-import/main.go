package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/quotes/pkg/config"
	"github.com/platinummonkey/quotes/pkg/importer"
	"github.com/platinummonkey/quotes/pkg/quotes"
	"github.com/platinummonkey/quotes/pkg/storage/postgres"
)

// Options holds the import job flags
type Options struct {
	File        string
	DryRun      bool
	SkipInvalid bool
	Language    string
	LogLevel    string
}

// Import Job loads a text file of quotes into the database in one transaction
func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute runs the job and returns the process exit code, so deferred
// cleanup runs before the process exits
func execute(args []string) int {
	opts, err := parseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	logger := setupLogger(opts.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Errorf("Import failed: %v", err)
		return 1
	}
	return 0
}

func parseFlags(args []string) (Options, error) {
	var opts Options

	fs := flag.NewFlagSet("quotes-import", flag.ContinueOnError)
	fs.StringVar(&opts.File, "file", "cytaty.txt", "Path of the quotes file")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Parse the file and report the count without writing")
	fs.BoolVar(&opts.SkipInvalid, "skip-invalid", false, "Log and skip malformed lines instead of failing")
	fs.StringVar(&opts.Language, "language", quotes.DefaultLanguage, "Language code assigned to every quote")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	err := fs.Parse(args)
	return opts, err
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

func run(ctx context.Context, opts Options, logger *logrus.Logger) error {
	file, err := os.Open(opts.File)
	if err != nil {
		return err
	}
	defer file.Close()

	result, err := importer.Parse(file, importer.Options{
		Language:    opts.Language,
		SkipInvalid: opts.SkipInvalid,
	})
	if err != nil {
		return err
	}
	for _, skipped := range result.Skipped {
		logger.WithField("line", skipped.Line).Warnf("Skipping malformed line: %s", skipped.Reason)
	}

	logger.WithFields(logrus.Fields{
		"file":    opts.File,
		"lines":   result.Lines,
		"quotes":  len(result.Quotes),
		"skipped": len(result.Skipped),
	}).Info("Parsed quotes file")

	if opts.DryRun {
		logger.Info("Dry run, nothing written")
		return nil
	}

	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, postgres.ConnectionConfig{
		URL:      dbConfig.DSN(),
		MaxConns: 2,
		Timeout:  dbConfig.Timeout,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := postgres.RunMigrations(ctx, db)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		logger.Infof("Applied %d migrations", len(applied))
	}

	n, err := importer.NewLoader(postgres.NewQuoteStore(db)).Load(ctx, result.Quotes)
	if err != nil {
		return err
	}

	logger.Infof("Imported %d quotes", n)
	return nil
}
