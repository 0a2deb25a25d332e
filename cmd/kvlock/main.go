// Command kvlock runs a command while holding a named Redis lock
//
//	kvlock -url redis://localhost:6379/0 -name nightly-report -expiration 10m -- ./report.sh
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/trafficstars/kvlock"
	"github.com/trafficstars/kvlock/redisstore"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitTimeout = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := parseConfig(args, os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvlock: %v\nusage: kvlock [-url URL] -name NAME [-expiration D] [-timeout D] [-debug] -- command [args...]\n", err)
		return exitUsage
	}
	logger := setupLogger(cfg.debug)

	store, err := redisstore.NewByURL(cfg.redisURL)
	if err != nil {
		logger.Error().Err(err).Msg("invalid redis url")
		return exitUsage
	}
	defer store.Close()

	locker := kvlock.New(store, logger,
		kvlock.WithExpiration(cfg.expiration),
		kvlock.WithTimeout(cfg.timeout),
	)
	err = locker.AcquireAndRun(cfg.name, func() error {
		cmd := exec.Command(cfg.command[0], cfg.command[1:]...)
		cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
		return cmd.Run()
	})

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, kvlock.ErrLockTimeout):
		logger.Error().Err(err).Msg("lock is busy")
		return exitTimeout
	case errors.As(err, &exitErr):
		// -1 when the command was killed by a signal
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
		return exitFailed
	default:
		logger.Error().Err(err).Str("lock", cfg.name).Msg("run failed")
		return exitFailed
	}
}

func setupLogger(debug bool) *zerolog.Logger {
	logLevel := zerolog.InfoLevel
	if debug {
		logLevel = zerolog.DebugLevel
	}

	logger := zerolog.
		New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(logLevel).
		With().Timestamp().
		Str("app", "kvlock").
		Logger()

	return &logger
}
