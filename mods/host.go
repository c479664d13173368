// Package mods runs user scripts against the notification bus. Tengo and Lua
// scripts subscribe to notification kinds and may veto cancellable ones.
package mods

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/milk9111/aicore/events"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single script invocation.
const DefaultTimeout = 50 * time.Millisecond

var ErrUnsupportedScript = errors.New("mods: unsupported script type")

// runtime is one compiled mod.
type runtime interface {
	Kinds() []events.Kind
	Handle(kind events.Kind, fields map[string]any) (events.Verdict, error)
	Close()
}

type subscription struct {
	kind events.Kind
	id   events.Subscription
}

type mod struct {
	name string
	path string
	rt   runtime
	subs []subscription
}

// Host owns the loaded mods and their bus subscriptions. It is driven from
// the tick goroutine and is not safe for concurrent use.
type Host struct {
	bus     *events.Bus
	log     logrus.FieldLogger
	timeout time.Duration
	mods    map[string]*mod
}

type Option func(*Host)

func WithLogger(log logrus.FieldLogger) Option {
	return func(h *Host) {
		if log != nil {
			h.log = log
		}
	}
}

// WithTimeout bounds each script invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(h *Host) { h.timeout = d }
}

func NewHost(bus *events.Bus, opts ...Option) *Host {
	h := &Host{
		bus:     bus,
		log:     logrus.StandardLogger(),
		timeout: DefaultTimeout,
		mods:    make(map[string]*mod),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithField("component", "mods")
	return h
}

// Name derives a mod's name from its script path.
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Mods lists loaded mod names.
func (h *Host) Mods() []string {
	names := make([]string, 0, len(h.mods))
	for _, m := range h.mods {
		names = append(names, m.name)
	}
	slices.Sort(names)
	return names
}

func (h *Host) compile(path string) (runtime, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tengo":
		return newTengoMod(src, h.timeout)
	case ".lua":
		return newLuaMod(Name(path), src, h.timeout)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedScript, path)
}

// Load compiles the script at path and subscribes its handlers, replacing a
// previously loaded version. If compiling fails the previous version stays
// active.
func (h *Host) Load(path string) error {
	key, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	rt, err := h.compile(key)
	if err != nil {
		entry := h.log.WithField("mod", Name(key)).WithError(err)
		if _, ok := h.mods[key]; ok {
			entry.Warn("mod reload failed, keeping previous version")
		} else {
			entry.Error("mod load failed")
		}
		return fmt.Errorf("mods: load %s: %w", Name(key), err)
	}

	h.unload(key)
	m := &mod{name: Name(key), path: key, rt: rt}
	for _, kind := range rt.Kinds() {
		id := h.bus.Subscribe(kind, h.handler(m, kind))
		m.subs = append(m.subs, subscription{kind: kind, id: id})
	}
	h.mods[key] = m
	h.log.WithFields(logrus.Fields{"mod": m.name, "handlers": len(m.subs)}).Info("mod loaded")
	return nil
}

func (h *Host) handler(m *mod, kind events.Kind) events.Handler {
	return func(n events.Notification) (events.Verdict, error) {
		v, err := m.rt.Handle(kind, Fields(n))
		if err != nil {
			return events.Continue, fmt.Errorf("mod %s: %w", m.name, err)
		}
		return v, nil
	}
}

// LoadDir loads every script in dir in name order and reports how many
// loaded. Failures are joined; the remaining scripts still load.
func (h *Host) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("mods: read %s: %w", dir, err)
	}
	var (
		loaded int
		errs   []error
	)
	for _, e := range entries {
		if e.IsDir() || !isScript(e.Name()) {
			continue
		}
		if err := h.Load(filepath.Join(dir, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		loaded++
	}
	return loaded, errors.Join(errs...)
}

func isScript(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tengo", ".lua":
		return true
	}
	return false
}

// Unload removes the mod loaded from path.
func (h *Host) Unload(path string) bool {
	key, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return h.unload(key)
}

func (h *Host) unload(key string) bool {
	m, ok := h.mods[key]
	if !ok {
		return false
	}
	for _, s := range m.subs {
		h.bus.Unsubscribe(s.kind, s.id)
	}
	m.rt.Close()
	delete(h.mods, key)
	return true
}

// ApplyPending drains changed script paths without blocking. Changed files
// are reloaded and deleted files unloaded. It returns how many mods changed.
func (h *Host) ApplyPending(changes <-chan string) int {
	if changes == nil {
		return 0
	}
	seen := map[string]bool{}
drain:
	for {
		select {
		case path, ok := <-changes:
			if !ok {
				break drain
			}
			seen[path] = true
		default:
			break drain
		}
	}

	applied := 0
	for _, path := range slices.Sorted(maps.Keys(seen)) {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if h.Unload(path) {
				h.log.WithField("mod", Name(path)).Info("mod unloaded")
				applied++
			}
			continue
		}
		if h.Load(path) == nil {
			applied++
		}
	}
	return applied
}

// Close unloads every mod.
func (h *Host) Close() {
	for _, key := range slices.Sorted(maps.Keys(h.mods)) {
		h.unload(key)
	}
}
