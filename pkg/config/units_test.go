package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"10s", 10 * time.Second, false},
		{"1m", 1 * time.Minute, false},
		{"1.5s", 1500 * time.Millisecond, false},
		{"100ms", 100 * time.Millisecond, false},
		{"250", 250 * time.Millisecond, false},
		{" 12.5 ", 12500 * time.Microsecond, false},
		{"0", 0, false},
		{"", 0, false},
		{"-5", 0, true},
		{"1d", 0, true},
		{"invalid", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestDurationYAML(t *testing.T) {
	type syncBlock struct {
		Poll  Duration `yaml:"poll"`
		Delay Duration `yaml:"delay"`
	}

	var cfg syncBlock
	if err := yaml.Unmarshal([]byte("poll: 250ms\ndelay: 450\n"), &cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if time.Duration(cfg.Poll) != 250*time.Millisecond {
		t.Errorf("poll = %v, want 250ms", time.Duration(cfg.Poll))
	}
	if time.Duration(cfg.Delay) != 450*time.Millisecond {
		t.Errorf("delay = %v, want 450ms", time.Duration(cfg.Delay))
	}

	out, err := yaml.Marshal(syncBlock{Poll: Duration(250 * time.Millisecond)})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != "poll: 250ms\ndelay: 0s\n" {
		t.Errorf("Marshal = %q", out)
	}

	if err := yaml.Unmarshal([]byte("poll: soon\n"), &cfg); err == nil {
		t.Error("expected an error for an unparseable duration")
	}
}
