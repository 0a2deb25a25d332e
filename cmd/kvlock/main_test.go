package main

import (
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficstars/kvlock"
)

func noenv(string) string { return `` }

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig([]string{`-name`, `job`, `--`, `echo`, `hi`}, noenv)
	require.NoError(t, err)
	assert.Equal(t, defaultRedisURL, cfg.redisURL)
	assert.Equal(t, `job`, cfg.name)
	assert.Equal(t, kvlock.DefaultExpiration, cfg.expiration)
	assert.Equal(t, kvlock.DefaultTimeout, cfg.timeout)
	assert.False(t, cfg.debug)
	assert.Equal(t, []string{`echo`, `hi`}, cfg.command)

	cfg, err = parseConfig([]string{`-name`, `job`, `-expiration`, `1m`, `-timeout`, `250ms`, `-debug`, `--`, `true`}, func(key string) string {
		if key == envRedisURL {
			return `redis://cache:6379/3`
		}
		return ``
	})
	require.NoError(t, err)
	assert.Equal(t, `redis://cache:6379/3`, cfg.redisURL)
	assert.Equal(t, time.Minute, cfg.expiration)
	assert.Equal(t, 250*time.Millisecond, cfg.timeout)
	assert.True(t, cfg.debug)
	assert.Equal(t, []string{`true`}, cfg.command)

	_, err = parseConfig([]string{`--`, `true`}, noenv)
	assert.Equal(t, errNoName, err)
	_, err = parseConfig([]string{`-name`, `job`}, noenv)
	assert.Equal(t, errNoCommand, err)
	_, err = parseConfig([]string{`-unknown`}, noenv)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	url := `redis://` + mr.Addr() + `/0`

	assert.Equal(t, exitOK, run([]string{`-url`, url, `-name`, `job`, `--`, `true`}))
	assert.False(t, mr.Exists(`job`))

	assert.Equal(t, exitFailed, run([]string{`-url`, url, `-name`, `job`, `--`, `false`}))
	assert.Equal(t, exitFailed, run([]string{`-url`, url, `-name`, `job`, `--`, `/nonexistent/binary`}))
	assert.Equal(t, exitFailed, run([]string{`-url`, url, `-name`, `job`, `--`, `sh`, `-c`, `kill -9 $$`}))
	assert.Equal(t, 7, run([]string{`-url`, url, `-name`, `job`, `--`, `sh`, `-c`, `exit 7`}))
	assert.Equal(t, exitUsage, run([]string{`-url`, url, `--`, `true`}))

	held := float64(time.Now().Add(time.Minute).UnixNano()) / float64(time.Second)
	require.NoError(t, mr.Set(`busy`, strconv.FormatFloat(held, 'f', 6, 64)))
	assert.Equal(t, exitTimeout, run([]string{`-url`, url, `-name`, `busy`, `-timeout`, `200ms`, `--`, `true`}))
}
