package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"simbridge/pkg/config"
	"simbridge/pkg/surface"
)

// ErrInvalidSettings is wrapped by Settings.Validate failures.
var ErrInvalidSettings = errors.New("invalid settings")

// Plugin setting names as shown on the control surface.
const (
	SettingPollInterval    = "Poll Interval (ms)"
	SettingHeldActionDelay = "Held Action Delay (ms)"
	SettingHeldActionRate  = "Held Action Rate (ms)"
	SettingFireOnDown      = "Fire Held Action On Press"
	SettingAutoReconnect   = "Connect On Startup"
)

// minInterval is the smallest interval accepted from the surface.
const minInterval = 10 * time.Millisecond

// Settings control the engine's timing and behavior.
type Settings struct {
	TickInterval    time.Duration
	PollInterval    time.Duration
	RetryInterval   time.Duration
	HeldActionDelay time.Duration
	HeldActionRate  time.Duration
	FireOnDown      bool
	AutoReconnect   bool
	StatePrefix     string
	Locale          string
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		TickInterval:    25 * time.Millisecond,
		PollInterval:    250 * time.Millisecond,
		RetryInterval:   10 * time.Second,
		HeldActionDelay: 450 * time.Millisecond,
		HeldActionRate:  100 * time.Millisecond,
		FireOnDown:      true,
		AutoReconnect:   true,
		StatePrefix:     "simbridge",
		Locale:          "en-US",
	}
}

// SettingsFromConfig builds Settings from the loaded configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := Settings{
		TickInterval:    time.Duration(cfg.Sync.TickInterval),
		PollInterval:    time.Duration(cfg.Sync.PollInterval),
		RetryInterval:   time.Duration(cfg.Sync.RetryInterval),
		HeldActionDelay: time.Duration(cfg.Sync.HeldActionDelay),
		HeldActionRate:  time.Duration(cfg.Sync.HeldActionRate),
		FireOnDown:      cfg.Sync.FireOnDown,
		AutoReconnect:   cfg.Sync.AutoReconnect,
		StatePrefix:     cfg.Surface.StatePrefix,
		Locale:          cfg.Sync.Locale,
	}
	if s.StatePrefix == "" {
		s.StatePrefix = DefaultSettings().StatePrefix
	}
	return s
}

// Validate reports settings the dispatch loop cannot run with.
func (s Settings) Validate() error {
	switch {
	case s.TickInterval <= 0:
		return fmt.Errorf("%w: tick interval must be positive", ErrInvalidSettings)
	case s.PollInterval <= 0:
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidSettings)
	case s.RetryInterval <= 0:
		return fmt.Errorf("%w: retry interval must be positive", ErrInvalidSettings)
	case s.HeldActionRate <= 0:
		return fmt.Errorf("%w: held action rate must be positive", ErrInvalidSettings)
	case s.HeldActionDelay < 0:
		return fmt.Errorf("%w: held action delay must not be negative", ErrInvalidSettings)
	case s.StatePrefix == "":
		return fmt.Errorf("%w: state prefix is required", ErrInvalidSettings)
	}
	return nil
}

// ParseSurfaceSettings merges settings sent by the surface into cur. Values
// that do not parse, or are out of range, keep the current value and are
// returned as corrections to push back.
func ParseSurfaceSettings(in surface.Settings, cur Settings) (next Settings, corrections map[string]string) {
	next = cur
	corrections = make(map[string]string)

	durations := []struct {
		name string
		dst  *time.Duration
		min  time.Duration
	}{
		{SettingPollInterval, &next.PollInterval, minInterval},
		{SettingHeldActionDelay, &next.HeldActionDelay, 0},
		{SettingHeldActionRate, &next.HeldActionRate, minInterval},
	}
	for _, d := range durations {
		raw, ok := in[d.name]
		if !ok {
			continue
		}
		ms, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || time.Duration(ms)*time.Millisecond < d.min {
			corrections[d.name] = formatMillis(*d.dst)
			continue
		}
		*d.dst = time.Duration(ms) * time.Millisecond
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{SettingFireOnDown, &next.FireOnDown},
		{SettingAutoReconnect, &next.AutoReconnect},
	}
	for _, f := range flags {
		raw, ok := in[f.name]
		if !ok {
			continue
		}
		b, ok := parseSwitch(raw)
		if !ok {
			corrections[f.name] = strconv.FormatBool(*f.dst)
			continue
		}
		*f.dst = b
	}
	return next, corrections
}

func formatMillis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

// parseSwitch accepts the spellings the surface uses for on/off values.
func parseSwitch(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true, true
	case "0", "false", "off", "no":
		return false, true
	}
	return false, false
}
