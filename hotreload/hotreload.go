// Package hotreload provides dynamic reconfiguration of a kestrel
// LoadingCache's timing parameters using Argus.
//
// RefreshTime, SpoilTime, and Timeout are read from a watched file and
// applied without restarting the cache. CacheLoader is not reloadable:
// a Loader is a Go value, not configuration data.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package hotreload

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// Timing is the subset of kestrel.Config that can be changed at runtime.
type Timing struct {
	RefreshTime time.Duration
	SpoilTime   time.Duration
	Timeout     time.Duration
}

// Applier receives a newly parsed Timing whenever the watched file
// changes. Implementations typically swap values read atomically on the
// hot path of a wrapping Loader or Config accessor; kestrel.Config
// itself is not mutable after New.
type Applier interface {
	Apply(Timing)
}

// Watcher watches a configuration file and calls an Applier whenever its
// cache.refresh_time / cache.spoil_time / cache.timeout keys change.
type Watcher struct {
	applier Applier
	watcher *argus.Watcher
	mu      sync.RWMutex
	current Timing

	// OnReload is called after a reload is parsed and applied. Optional;
	// must be fast and non-blocking.
	OnReload func(old, new Timing)

	logger Logger
}

// Logger is the minimal logging surface hotreload needs; satisfied by
// kestrel.Logger without importing the root package.
type Logger interface {
	Warn(msg string, keyvals ...interface{})
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...interface{}) {}

// Options configures a Watcher.
type Options struct {
	// ConfigPath is the file to watch. Supports JSON, YAML, TOML, HCL,
	// INI, and Properties, per Argus's universal loader. Required.
	ConfigPath string

	// PollInterval is how often to check the file for changes.
	// Default: 1s, minimum 100ms.
	PollInterval time.Duration

	// Initial is the Timing to seed before the first successful parse.
	Initial Timing

	OnReload func(old, new Timing)
	Logger   Logger
}

// New creates a Watcher over applier for opts.ConfigPath. It does not
// start watching; call Start to begin applying changes.
func New(applier Applier, opts Options) (*Watcher, error) {
	if opts.ConfigPath == "" {
		return nil, fmt.Errorf("hotreload: config_path is required")
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = 1 * time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	w := &Watcher{
		applier:  applier,
		current:  opts.Initial,
		OnReload: opts.OnReload,
		logger:   opts.Logger,
	}

	argusConfig := argus.Config{PollInterval: opts.PollInterval}
	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, w.handleChange, argusConfig)
	if err != nil {
		return nil, err
	}
	w.watcher = watcher
	return w, nil
}

// Start begins watching the configuration file. Calling Start on an
// already-running Watcher is a no-op.
func (w *Watcher) Start() error {
	if w.watcher.IsRunning() {
		return nil
	}
	return w.watcher.Start()
}

// Stop stops watching the configuration file.
func (w *Watcher) Stop() error {
	return w.watcher.Stop()
}

// Current returns the last successfully applied Timing.
func (w *Watcher) Current() Timing {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) handleChange(data map[string]interface{}) {
	w.mu.Lock()
	old := w.current
	next, ok := parseTiming(data, old)
	if !ok {
		w.mu.Unlock()
		w.logger.Warn("hotreload: config file changed but no recognized cache.* keys found")
		return
	}
	w.current = next
	w.mu.Unlock()

	w.applier.Apply(next)

	if w.OnReload != nil {
		w.OnReload(old, next)
	}
}

func parseTiming(data map[string]interface{}, fallback Timing) (Timing, bool) {
	section, ok := data["cache"].(map[string]interface{})
	if !ok {
		section = data
	}

	next := fallback
	found := false

	if d, ok := parseDuration(section["refresh_time"]); ok {
		next.RefreshTime = d
		found = true
	}
	if d, ok := parseDuration(section["spoil_time"]); ok {
		next.SpoilTime = d
		found = true
	}
	if d, ok := parseDuration(section["timeout"]); ok {
		next.Timeout = d
		found = true
	}

	return next, found
}

func parseDuration(value interface{}) (time.Duration, bool) {
	str, ok := value.(string)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, false
	}
	return d, true
}
