package prefabs

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Change is a reload result handed from the watcher goroutine to the game
// loop. Exactly one of Config and Err is set.
type Change struct {
	Path   string
	Config *Config
	Err    error
}

// ReloadCallback observes reload outcomes. On failure cfg is the snapshot
// that stays active.
type ReloadCallback func(cfg *Config, err error)

// Manager owns the active config snapshot. Current may be called from any
// goroutine; every other method belongs to the game loop.
type Manager struct {
	dir      string
	debounce time.Duration
	log      logrus.FieldLogger

	current atomic.Pointer[Config]
	version atomic.Int64

	staged    *Config
	callbacks []ReloadCallback

	changes chan Change
	scripts chan string
	watcher *Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

type ManagerOption func(*Manager)

func WithDebounce(d time.Duration) ManagerOption {
	return func(m *Manager) { m.debounce = d }
}

func WithLogger(log logrus.FieldLogger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

func NewManager(dir string, opts ...ManagerOption) *Manager {
	m := &Manager{
		dir:      dir,
		debounce: DefaultDebounce,
		log:      logrus.StandardLogger(),
		changes:  make(chan Change, 8),
		scripts:  make(chan string, 16),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.WithField("component", "config")
	return m
}

// Load builds a snapshot from dir and activates it immediately. It is meant
// for startup, before the first tick.
func (m *Manager) Load(dir string) (*Config, error) {
	cfg, err := m.build(dir)
	if err != nil {
		return nil, err
	}
	m.dir = dir
	m.current.Store(cfg)
	m.log.WithFields(logrus.Fields{"source": cfg.Source, "version": cfg.Version}).Info("config loaded")
	return cfg, nil
}

// Current returns the active snapshot, loading the embedded defaults if
// nothing was loaded yet.
func (m *Manager) Current() *Config {
	if cfg := m.current.Load(); cfg != nil {
		return cfg
	}
	cfg, err := m.build("")
	if err != nil {
		// The embedded documents are covered by tests; failing here is a
		// packaging bug.
		panic(err)
	}
	if m.current.CompareAndSwap(nil, cfg) {
		return cfg
	}
	return m.current.Load()
}

// Archetype resolves id against the active snapshot, falling back to the
// built-in default with a warning.
func (m *Manager) Archetype(id string) ArchetypeSpec {
	a, ok := m.Current().ArchetypeOrDefault(id)
	if !ok {
		m.log.WithField("archetype", id).Warn("unknown archetype, using default")
	}
	return a
}

func (m *Manager) Faction(id string) (FactionSpec, bool) {
	return m.Current().Faction(id)
}

func (m *Manager) RegisterReloadCallback(fn ReloadCallback) {
	if fn != nil {
		m.callbacks = append(m.callbacks, fn)
	}
}

// Reload rebuilds from the config directory. Failures return a *ConfigError
// and leave the active snapshot untouched; a successful snapshot is staged and
// becomes active at the next ApplyPending.
func (m *Manager) Reload() error {
	cfg, err := m.build(m.dir)
	if err != nil {
		m.reportFailure(m.dir, err)
		return err
	}
	m.staged = cfg
	return nil
}

// Watch starts watching the config directory plus any extra directories
// (mod scripts). Results arrive through ApplyPending and ScriptChanges.
func (m *Manager) Watch(extra ...string) error {
	if m.watcher != nil {
		return errors.New("prefabs: already watching")
	}
	dirs := append([]string{m.dir}, extra...)
	w, err := NewWatcher(m.debounce, dirs...)
	if err != nil {
		return err
	}
	m.watcher = w
	m.wg.Add(1)
	go m.route()
	return nil
}

func (m *Manager) route() {
	defer m.wg.Done()
	for {
		select {
		case path, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if isScriptFile(path) {
				m.forwardScript(path)
				continue
			}
			change := Change{Path: path}
			change.Config, change.Err = m.build(m.dir)
			select {
			case m.changes <- change:
			case <-m.done:
				return
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.log.WithError(err).Warn("watcher error")
		case <-m.done:
			return
		}
	}
}

// forwardScript hands path to ScriptChanges without waiting; a change that
// finds the buffer full is dropped so config reloads keep flowing when nobody
// drains scripts.
func (m *Manager) forwardScript(path string) bool {
	select {
	case m.scripts <- path:
		return true
	default:
		m.log.WithField("path", path).Warn("script change dropped, nobody is draining script changes")
		return false
	}
}

// ApplyPending activates staged or watched snapshots and runs callbacks. Call
// it once per tick, before any entity is evaluated. It reports whether the
// active snapshot changed.
func (m *Manager) ApplyPending() bool {
	swapped := false
	if m.staged != nil {
		m.activate(m.staged)
		m.staged = nil
		swapped = true
	}
	for {
		select {
		case change := <-m.changes:
			if change.Err != nil {
				m.reportFailure(change.Path, change.Err)
				continue
			}
			m.activate(change.Config)
			swapped = true
		default:
			return swapped
		}
	}
}

// ScriptChanges delivers paths of changed mod scripts.
func (m *Manager) ScriptChanges() <-chan string {
	return m.scripts
}

// Close stops the watcher, if any.
func (m *Manager) Close() error {
	select {
	case <-m.done:
		return nil
	default:
	}
	close(m.done)
	var err error
	if m.watcher != nil {
		err = m.watcher.Close()
	}
	m.wg.Wait()
	return err
}

func (m *Manager) build(dir string) (*Config, error) {
	cfg, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	cfg.Version = m.version.Add(1)
	for _, w := range cfg.Warnings {
		m.log.WithField("source", cfg.Source).Warn(w)
	}
	return cfg, nil
}

func (m *Manager) activate(cfg *Config) {
	m.current.Store(cfg)
	m.log.WithFields(logrus.Fields{"source": cfg.Source, "version": cfg.Version}).Info("config reloaded")
	for _, fn := range m.callbacks {
		fn(cfg, nil)
	}
}

func (m *Manager) reportFailure(path string, err error) {
	m.log.WithField("path", path).WithError(err).Error("config reload failed, keeping previous snapshot")
	active := m.Current()
	for _, fn := range m.callbacks {
		fn(active, err)
	}
}
