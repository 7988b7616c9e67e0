/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"courier/internal/receive"
)

// Config gathers every runtime setting of the daemon. Values come from
// COURIER_* environment variables; flags may override a few of them.
type Config struct {
	DatabasePath string `split_words:"true" default:"courier.db"`
	KeyPath      string `split_words:"true" default:"identity.pem"`
	Passphrase   string `split_words:"true"` // optional keyring passphrase; empty starts unlocked

	RelayAddress string `split_words:"true" default:"127.0.0.1:45900"`

	ListenAddr   string `split_words:"true" default:"127.0.0.1:8470"`
	SessionKey   string `split_words:"true" default:"courier-dev-session-key"`
	ReadTimeout  int64  `split_words:"true" default:"15"` // seconds
	WriteTimeout int64  `split_words:"true" default:"15"` // seconds

	LogDir  string `split_words:"true" default:"logs"`
	Logging bool   `default:"true"`

	DedupCapacity         int `split_words:"true" default:"4096"`
	LiveLookbackHours     int `split_words:"true" default:"168"` // 7 days
	HistoryLookbackHours  int `split_words:"true" default:"720"` // 30 days
	HistoryTimeoutSeconds int `split_words:"true" default:"30"`
	HistoryWorkers        int `split_words:"true" default:"4"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("courier", &cfg); err != nil {
		return nil, err
	}

	if cfg.DedupCapacity < 1 {
		return nil, fmt.Errorf("COURIER_DEDUP_CAPACITY must be positive, got %d", cfg.DedupCapacity)
	}
	if cfg.HistoryWorkers < 1 {
		return nil, fmt.Errorf("COURIER_HISTORY_WORKERS must be positive, got %d", cfg.HistoryWorkers)
	}

	return &cfg, nil
}

// PipelineOptions converts the flat settings into receive pipeline options.
func (c *Config) PipelineOptions() receive.Options {
	return receive.Options{
		DedupCapacity:   c.DedupCapacity,
		LiveLookback:    time.Duration(c.LiveLookbackHours) * time.Hour,
		HistoryLookback: time.Duration(c.HistoryLookbackHours) * time.Hour,
		HistoryTimeout:  time.Duration(c.HistoryTimeoutSeconds) * time.Second,
		HistoryWorkers:  c.HistoryWorkers,
	}
}
