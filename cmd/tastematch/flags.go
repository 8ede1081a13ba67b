// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package main

import (
	"flag"
	"io"
	"time"
)

// cliOptions are the command-line flags. Only flags that were set become
// config overrides, so an unset flag never masks the file or environment.
type cliOptions struct {
	configPath  string
	library     string
	users       string
	kinds       string
	cacheBack   string
	output      string
	metricsAddr string
	logLevel    string
	interval    time.Duration
	once        bool
	compact     bool

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	opts := &cliOptions{set: make(map[string]bool)}

	fs := flag.NewFlagSet("tastematch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "config file (default: $CONFIG_PATH or ./tastematch.yaml)")
	fs.StringVar(&opts.library, "library", "", "library file with candidates and watch history")
	fs.StringVar(&opts.users, "users", "", "comma-separated users (default: every user with history)")
	fs.StringVar(&opts.kinds, "kinds", "", "comma-separated media kinds: movie,show")
	fs.StringVar(&opts.cacheBack, "cache", "", "score cache backend: memory, file, badger, redis")
	fs.StringVar(&opts.output, "output", "", `report path ("-" for stdout)`)
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve status and metrics on this address")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level")
	fs.DurationVar(&opts.interval, "interval", 0, "rerun the batch on this interval")
	fs.BoolVar(&opts.once, "once", false, "run one batch and exit, ignoring schedule.interval")
	fs.BoolVar(&opts.compact, "compact", false, "write the report without indentation")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// overrides maps set flags onto koanf keys.
func (o *cliOptions) overrides() map[string]any {
	out := make(map[string]any)
	if o.set["library"] {
		out["catalog.library_path"] = o.library
	}
	if o.set["users"] {
		out["users"] = o.users
	}
	if o.set["kinds"] {
		out["kinds"] = o.kinds
	}
	if o.set["cache"] {
		out["cache.backend"] = o.cacheBack
	}
	if o.set["output"] {
		out["output.path"] = o.output
	}
	if o.set["metrics-addr"] {
		out["metrics.addr"] = o.metricsAddr
		out["metrics.enabled"] = o.metricsAddr != ""
	}
	if o.set["log-level"] {
		out["logging.level"] = o.logLevel
	}
	if o.set["interval"] {
		out["schedule.interval"] = o.interval
	}
	if o.once {
		out["schedule.interval"] = time.Duration(0)
	}
	if o.compact {
		out["output.pretty"] = false
	}
	return out
}
