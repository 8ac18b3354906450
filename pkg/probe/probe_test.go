package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"simbridge/pkg/store"
)

func TestRun(t *testing.T) {
	probes := []Probe{
		{Name: "ok", Check: func(ctx context.Context) error { return nil }, Critical: true},
		{Name: "minor", Check: func(ctx context.Context) error { return errors.New("minor issue") }},
		{
			Name:    "slow",
			Timeout: 10 * time.Millisecond,
			Check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	}

	results := Run(context.Background(), probes)
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0].Error != nil {
		t.Errorf("ok probe failed: %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("minor probe should fail")
	}
	if !errors.Is(results[2].Error, context.DeadlineExceeded) {
		t.Errorf("slow probe: got %v, want deadline exceeded", results[2].Error)
	}
}

func TestAnalyzeResults(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		results []Result
		wantErr bool
	}{
		{"all pass", []Result{{Probe: Probe{Name: "a", Critical: true}}}, false},
		{"non-critical failure", []Result{{Probe: Probe{Name: "a"}, Error: boom}}, false},
		{"critical failure", []Result{{Probe: Probe{Name: "a", Critical: true}, Error: boom}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AnalyzeResults(nil, tt.results)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AnalyzeResults() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, boom) {
				t.Errorf("error %v does not wrap the cause", err)
			}
		})
	}
}

type brokenStore struct{ store.MemoryStore }

func (*brokenStore) SetState(context.Context, string, string) error { return errors.New("read-only") }

func TestStoreRoundTrip(t *testing.T) {
	st := store.NewMemoryStore()
	if err := StoreRoundTrip(st)(context.Background()); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if _, ok := st.GetState(context.Background(), storeProbeKey); ok {
		t.Error("marker key was not removed")
	}

	if err := StoreRoundTrip(&brokenStore{})(context.Background()); err == nil {
		t.Error("expected failure from a read-only store")
	}
}

func TestNotEmpty(t *testing.T) {
	if err := NotEmpty("actions", func() int { return 3 })(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := NotEmpty("actions", func() int { return 0 })(context.Background()); err == nil {
		t.Error("expected an error for an empty table")
	}
}
