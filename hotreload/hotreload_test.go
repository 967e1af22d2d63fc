// hotreload_test.go: tests for dynamic timing reconfiguration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package hotreload

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recordingApplier struct {
	mu      sync.Mutex
	applied []Timing
}

func (a *recordingApplier) Apply(t Timing) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied = append(a.applied, t)
}

func (a *recordingApplier) last() (Timing, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.applied) == 0 {
		return Timing{}, false
	}
	return a.applied[len(a.applied)-1], true
}

func TestNew_EmptyPathRejected(t *testing.T) {
	_, err := New(&recordingApplier{}, Options{})
	if err == nil {
		t.Fatal("expected an error for an empty config path")
	}
}

func TestWatcher_AppliesChangesOnFileWrite(t *testing.T) {
	applier := &recordingApplier{}
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "cache.yaml")

	initial := "cache:\n  refresh_time: 1s\n  spoil_time: 10s\n  timeout: 2s\n"
	if err := os.WriteFile(configPath, []byte(initial), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	w, err := New(applier, Options{
		ConfigPath:   configPath,
		PollInterval: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	updated := "cache:\n  refresh_time: 2s\n  spoil_time: 20s\n  timeout: 3s\n"
	if err := os.WriteFile(configPath, []byte(updated), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, ok := applier.last(); ok && got.RefreshTime == 2*time.Second {
			if got.SpoilTime != 20*time.Second || got.Timeout != 3*time.Second {
				t.Fatalf("applied Timing = %+v, want refresh=2s spoil=20s timeout=3s", got)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("timed out waiting for hotreload to apply the updated timing")
}
