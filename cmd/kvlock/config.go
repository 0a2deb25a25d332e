package main

import (
	"errors"
	"flag"
	"io"
	"time"

	"github.com/trafficstars/kvlock"
)

const (
	envRedisURL     = `KVLOCK_REDIS_URL`
	defaultRedisURL = `redis://localhost:6379/0`
)

var (
	errNoName    = errors.New(`lock name is required`)
	errNoCommand = errors.New(`command is required`)
)

type config struct {
	redisURL   string
	name       string
	expiration time.Duration
	timeout    time.Duration
	debug      bool
	command    []string
}

func parseConfig(args []string, getenv func(string) string) (*config, error) {
	var (
		cfg = &config{}
		fs  = flag.NewFlagSet(`kvlock`, flag.ContinueOnError)
	)
	fs.SetOutput(io.Discard)

	redisURL := getenv(envRedisURL)
	if redisURL == `` {
		redisURL = defaultRedisURL
	}
	fs.StringVar(&cfg.redisURL, `url`, redisURL, `redis connection URL, hosts may be comma separated`)
	fs.StringVar(&cfg.name, `name`, ``, `lock name`)
	fs.DurationVar(&cfg.expiration, `expiration`, kvlock.DefaultExpiration, `lock expiration`)
	fs.DurationVar(&cfg.timeout, `timeout`, kvlock.DefaultTimeout, `max time to wait for the lock`)
	fs.BoolVar(&cfg.debug, `debug`, false, `enable debug logs`)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.name == `` {
		return nil, errNoName
	}
	if cfg.command = fs.Args(); len(cfg.command) == 0 {
		return nil, errNoCommand
	}
	return cfg, nil
}
