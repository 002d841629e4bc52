// Package settings owns the device configuration (timezone and NTP host):
// it loads it from the persistent store, seeds defaults on first boot,
// applies partial updates and pushes the result to the clock.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/cubicd/internal/common"
	"github.com/dmitrijs2005/cubicd/internal/logging"
	"github.com/dmitrijs2005/cubicd/internal/store"
)

const (
	// ConfigPath holds the authoritative configuration document.
	ConfigPath = "/config.json"
	// MirrorPath holds a copy written on first boot only. Later updates do
	// not touch it.
	MirrorPath = "/ntp.json"
)

var (
	ErrNoBody  = fmt.Errorf("no body: %w", common.ErrBadInput)
	ErrBadJSON = fmt.Errorf("bad json: %w", common.ErrBadInput)
)

// Configuration is the persisted device configuration. Both fields are
// always populated.
type Configuration struct {
	Timezone string `json:"timezone"`
	NTP      string `json:"ntp"`
}

// View is Configuration plus process uptime in seconds.
type View struct {
	Configuration
	Uptime uint32 `json:"uptime"`
}

// Patch is a partial configuration document. Nil fields are absent.
type Patch struct {
	Timezone *string `json:"timezone,omitempty"`
	NTP      *string `json:"ntp,omitempty"`
}

func (p Patch) apply(c Configuration) Configuration {
	if p.Timezone != nil {
		c.Timezone = *p.Timezone
	}
	if p.NTP != nil {
		c.NTP = *p.NTP
	}
	return c
}

// Clock is the part of the clock subsystem the manager drives.
type Clock interface {
	SetTimezone(tz string) error
	SetNTPServer(host string)
}

type Manager struct {
	mu       sync.RWMutex
	cfg      Configuration
	defaults Configuration

	store  store.Store
	clock  Clock
	logger logging.Logger
	start  time.Time
	now    func() time.Time
}

// NewManager returns a manager holding defaults until Load is called.
func NewManager(s store.Store, clock Clock, defaults Configuration, logger logging.Logger) *Manager {
	return &Manager{
		cfg:      defaults,
		defaults: defaults,
		store:    s,
		clock:    clock,
		logger:   logger,
		start:    time.Now(),
		now:      time.Now,
	}
}

// Load reads the configuration document. An absent or unreadable document
// is replaced with the defaults; keys missing from a readable one fall
// back to their defaults. Load never fails.
func (m *Manager) Load(ctx context.Context) Configuration {
	m.mu.Lock()
	defer m.mu.Unlock()

	var p Patch
	err := readPatch(ctx, m.store, &p)
	if err == nil {
		m.cfg = p.apply(m.defaults)
		m.logger.Info(ctx, "configuration loaded", "timezone", m.cfg.Timezone, "ntp", m.cfg.NTP)
		return m.cfg
	}

	if errors.Is(err, common.ErrNotFound) {
		m.logger.Info(ctx, "no configuration stored, writing defaults")
	} else {
		m.logger.Warn(ctx, "stored configuration unreadable, writing defaults", "error", err)
	}

	m.cfg = m.defaults
	if err := store.WriteJSON(ctx, m.store, ConfigPath, m.cfg); err != nil {
		m.logger.Error(ctx, "failed to persist default configuration", "error", err)
	}
	return m.cfg
}

// readPatch decodes the stored configuration. Anything but a JSON object
// is reported as unreadable.
func readPatch(ctx context.Context, s store.Store, p *Patch) error {
	var raw json.RawMessage
	if err := store.ReadJSON(ctx, s, ConfigPath, &raw); err != nil {
		return err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return fmt.Errorf("decode %s: not a JSON object", ConfigPath)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return fmt.Errorf("decode %s: %w", ConfigPath, err)
	}
	return nil
}

// EnsureDefaults writes the configuration document and its mirror when
// either is missing.
func (m *Manager) EnsureDefaults(ctx context.Context) error {
	cfg := m.Current()

	for _, p := range []string{ConfigPath, MirrorPath} {
		ok, err := m.store.Exists(ctx, p)
		if err != nil {
			return fmt.Errorf("check %s: %w", p, err)
		}
		if ok {
			continue
		}
		if err := store.WriteJSON(ctx, m.store, p, cfg); err != nil {
			return fmt.Errorf("seed %s: %w", p, err)
		}
		m.logger.Info(ctx, "document seeded", "path", p)
	}
	return nil
}

// Current returns a snapshot of the configuration.
func (m *Manager) Current() Configuration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Get returns the configuration with the current uptime.
func (m *Manager) Get() View {
	return View{
		Configuration: m.Current(),
		Uptime:        uint32(m.now().Sub(m.start) / time.Second),
	}
}

// Update merges the JSON object in body into the configuration, persists
// the result and applies it to the clock. Memory is left untouched when
// the body is rejected or the write fails.
func (m *Manager) Update(ctx context.Context, body []byte) (Configuration, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Configuration{}, ErrNoBody
	}

	var p Patch
	if err := json.Unmarshal(body, &p); err != nil {
		return Configuration{}, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}

	m.mu.Lock()
	next := p.apply(m.cfg)
	if err := store.WriteJSON(ctx, m.store, ConfigPath, next); err != nil {
		m.mu.Unlock()
		return Configuration{}, fmt.Errorf("persist configuration: %w", err)
	}
	m.cfg = next
	m.mu.Unlock()

	m.logger.Info(ctx, "configuration updated", "timezone", next.Timezone, "ntp", next.NTP)
	m.ApplyTimezone(ctx)
	m.ApplyNTP(ctx)
	return next, nil
}

// ApplyTimezone pushes the configured timezone to the clock. Failures are
// logged only.
func (m *Manager) ApplyTimezone(ctx context.Context) {
	tz := m.Current().Timezone
	if err := m.clock.SetTimezone(tz); err != nil {
		m.logger.Warn(ctx, "timezone not applied", "timezone", tz, "error", err)
	}
}

// ApplyNTP hands the configured NTP host to the clock.
func (m *Manager) ApplyNTP(ctx context.Context) {
	m.clock.SetNTPServer(m.Current().NTP)
}
