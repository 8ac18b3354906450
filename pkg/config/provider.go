package config

import (
	"context"
	"strconv"
	"time"

	"simbridge/pkg/store"
)

// Provider defines the interface for accessing unified configuration.
type Provider interface {
	SimProvider(ctx context.Context) string
	AutoReconnect(ctx context.Context) bool
	SetAutoReconnect(ctx context.Context, on bool) error
	PollInterval(ctx context.Context) time.Duration
	SetPollInterval(ctx context.Context, d time.Duration) error
	Locale(ctx context.Context) string

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

func (p *UnifiedProvider) SimProvider(ctx context.Context) string {
	fallback := p.base.Sim.Provider
	if fallback == "" {
		fallback = "simconnect"
	}
	return fallback
}

// AutoReconnect returns the last toggled reconnect mode, falling back to
// the configured start value.
func (p *UnifiedProvider) AutoReconnect(ctx context.Context) bool {
	return p.getBool(ctx, KeyAutoReconnect, p.base.Sync.AutoReconnect)
}

func (p *UnifiedProvider) SetAutoReconnect(ctx context.Context, on bool) error {
	if p.store == nil {
		return nil
	}
	return p.store.SetState(ctx, KeyAutoReconnect, strconv.FormatBool(on))
}

func (p *UnifiedProvider) PollInterval(ctx context.Context) time.Duration {
	return p.getDuration(ctx, KeyPollInterval, time.Duration(p.base.Sync.PollInterval))
}

// SetPollInterval stores the interval as whole milliseconds.
func (p *UnifiedProvider) SetPollInterval(ctx context.Context, d time.Duration) error {
	if p.store == nil {
		return nil
	}
	return p.store.SetState(ctx, KeyPollInterval, strconv.FormatInt(d.Milliseconds(), 10))
}

func (p *UnifiedProvider) Locale(ctx context.Context) string {
	return p.base.Sync.Locale
}

// --- Helpers ---

func (p *UnifiedProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				return b
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getDuration(ctx context.Context, key string, fallback time.Duration) time.Duration {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if dur, err := ParseDuration(val); err == nil && dur > 0 {
				return dur
			}
		}
	}
	return fallback
}
