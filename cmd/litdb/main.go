package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/RichardKnop/litdb/internal/litdb"
	"github.com/RichardKnop/litdb/internal/pkg/logging"
)

const (
	cliName string = "litdb"
)

var CLI struct {
	DB            string `name:"db" short:"d" help:"Path to the database file." env:"LITDB_PATH" default:"litdb.db" type:"path"`
	MaxPages      uint32 `name:"max-pages" help:"Maximum number of pages of the database file." env:"LITDB_MAX_PAGES" default:"100"`
	LogLevel      string `name:"log-level" help:"Log level (debug, info, warn, error)." env:"LOG_LEVEL" default:"info"`
	LogFile       string `name:"log-file" help:"Write logs to a rotating file instead of stderr." env:"LITDB_LOG_FILE" type:"path"`
	LogMaxSize    int    `name:"log-max-size" help:"Maximum size of the log file in megabytes before it is rotated." default:"10"`
	LogMaxBackups int    `name:"log-max-backups" help:"Maximum number of rotated log files to keep." default:"3"`
}

func main() {
	kong.Parse(&CLI,
		kong.Name(cliName),
		kong.Description("Single table key-value store backed by an on-disk B-tree."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logConf := logging.DefaultConfig()

	l, err := logging.ParseLevel(CLI.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %s\n", CLI.LogLevel, err)
		os.Exit(1)
	}
	logConf.Level = zap.NewAtomicLevelAt(l)

	logger, err := logging.Build(logConf, logging.FileOptions{
		Path:       CLI.LogFile,
		MaxSizeMB:  CLI.LogMaxSize,
		MaxBackups: CLI.LogMaxBackups,
	})
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // flushes buffer, if any

	aDatabase, err := litdb.Open(ctx, logger, CLI.DB, litdb.WithMaxPages(CLI.MaxPages))
	if err != nil {
		logger.Fatal("error opening database", zap.String("path", CLI.DB), zap.Error(err))
	}

	done := make(chan error, 1)
	go func() {
		done <- newREPL(aDatabase, os.Stdin, os.Stdout).Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-done:
		if err != nil {
			logger.Error("error reading input", zap.Error(err))
			exitCode = 1
		}
	case sig := <-sigChan:
		logger.Sugar().With("signal", sig.String()).Info("shutting down")
		cancel()
		// Wait for the statement in progress before flushing pages
		<-done
	}

	if err := aDatabase.Close(ctx); err != nil {
		logger.Fatal("error closing database", zap.Error(err))
	}

	if exitCode != 0 {
		logger.Sync()
		os.Exit(exitCode)
	}
}
