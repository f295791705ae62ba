// Package config loads the TOML tables that describe device streaming
// capability and transcoder rules. Resonance's core treats these as
// already-loaded, read-only tables (spec.md §1 — TOML parsing is an
// external collaborator's concern); this package is the one place that
// touches the filesystem for them, and it hands the core plain structs.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

// TranscodeRule is one `[[rule]]` entry in transcode.toml — the Go analog
// of a legacy.conf stanza (source/dest format, device patterns, command).
type TranscodeRule struct {
	SrcFormat    string `toml:"src_format"`
	DstFormat    string `toml:"dst_format"`
	DeviceType   string `toml:"device_type"` // "*" = wildcard
	DeviceID     string `toml:"device_id"`   // "*" = wildcard
	Command      string `toml:"command"`     // "-" = passthrough
}

// IsPassthrough reports whether this rule means "serve the bytes as-is".
func (r TranscodeRule) IsPassthrough() bool {
	return r.Command == "-"
}

// DeviceCapability is one `[[device]]` entry in devices.toml: the
// fallback transcoding decision for formats not covered by
// TranscodePolicy's hard-coded always/never lists (spec.md §4.5).
type DeviceCapability struct {
	TypePattern       string   `toml:"type_pattern"` // "*" = wildcard
	NeedsTranscodeFor []string `toml:"needs_transcode_for"`
}

// TranscodeTable is the parsed contents of transcode.toml.
type TranscodeTable struct {
	Rules []TranscodeRule `toml:"rule"`
}

// DeviceTable is the parsed contents of devices.toml.
type DeviceTable struct {
	Devices []DeviceCapability `toml:"device"`
}

func loadTranscodeTable(path string) (TranscodeTable, error) {
	var t TranscodeTable
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read transcode table %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse transcode table %s: %w", path, err)
	}
	return t, nil
}

func loadDeviceTable(path string) (DeviceTable, error) {
	var t DeviceTable
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read device table %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse device table %s: %w", path, err)
	}
	return t, nil
}

// Tables bundles both loaded tables behind atomic pointers so readers
// never observe a half-updated pair during a hot reload.
type Tables struct {
	transcodePath string
	devicePath    string

	transcode atomic.Pointer[TranscodeTable]
	device    atomic.Pointer[DeviceTable]

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	onReload func()
}

// Load reads both tables once and returns a Tables ready for use.
func Load(transcodePath, devicePath string) (*Tables, error) {
	tt, err := loadTranscodeTable(transcodePath)
	if err != nil {
		return nil, err
	}
	dt, err := loadDeviceTable(devicePath)
	if err != nil {
		return nil, err
	}
	tbl := &Tables{transcodePath: transcodePath, devicePath: devicePath}
	tbl.transcode.Store(&tt)
	tbl.device.Store(&dt)
	return tbl, nil
}

// Transcode returns the current transcode rule table.
func (t *Tables) Transcode() TranscodeTable { return *t.transcode.Load() }

// Device returns the current device capability table.
func (t *Tables) Device() DeviceTable { return *t.device.Load() }

// Reload re-reads both files from disk, swapping the atomic pointers so
// concurrent readers never see a torn update. This is the single explicit
// "reload" entry point named in spec.md §9 for the otherwise-singleton
// transcoder/device config.
func (t *Tables) Reload() error {
	tt, err := loadTranscodeTable(t.transcodePath)
	if err != nil {
		return err
	}
	dt, err := loadDeviceTable(t.devicePath)
	if err != nil {
		return err
	}
	t.transcode.Store(&tt)
	t.device.Store(&dt)
	if t.onReload != nil {
		t.onReload()
	}
	return nil
}

// WatchForChanges starts an fsnotify watcher on both table files and
// reloads automatically on write/create/rename events. onReload, if
// non-nil, is called after each successful reload (e.g. so
// TranscodePolicy can log the new rule count). Call Close to stop
// watching.
func (t *Tables) WatchForChanges(onReload func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	if err := w.Add(t.transcodePath); err != nil {
		_ = w.Close()
		return fmt.Errorf("config: watch %s: %w", t.transcodePath, err)
	}
	if err := w.Add(t.devicePath); err != nil {
		_ = w.Close()
		return fmt.Errorf("config: watch %s: %w", t.devicePath, err)
	}

	t.mu.Lock()
	t.watcher = w
	t.onReload = onReload
	t.mu.Unlock()

	go t.watchLoop(w)
	return nil
}

func (t *Tables) watchLoop(w *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := t.Reload(); err != nil {
				slog.Error("config: reload failed", "file", ev.Name, "err", err)
				continue
			}
			slog.Info("config: reloaded table", "file", ev.Name)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Warn("config: watcher error", "err", err)
		}
	}
}

// Close stops the filesystem watcher, if one was started.
func (t *Tables) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.watcher != nil {
		return t.watcher.Close()
	}
	return nil
}
