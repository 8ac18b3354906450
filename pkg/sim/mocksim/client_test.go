package mocksim

import (
	"context"
	"errors"
	"testing"

	"simbridge/pkg/sim"
)

type recorder struct {
	opened []string
	values map[uint32][]any
	quits  int
}

func (r *recorder) handlers() sim.Handlers {
	r.values = make(map[uint32][]any)
	return sim.Handlers{
		OnOpen:  func(name string) { r.opened = append(r.opened, name) },
		OnValue: func(id uint32, raw any) { r.values[id] = append(r.values[id], raw) },
		OnQuit:  func() { r.quits++ },
	}
}

func TestConnectFailures(t *testing.T) {
	ctx := context.Background()
	m := NewClient(Config{FailConnects: 2})

	for i := 0; i < 2; i++ {
		if err := m.Connect(ctx); err == nil {
			t.Fatalf("attempt %d: expected failure", i)
		}
		if m.Connected() {
			t.Fatalf("attempt %d: connected after failure", i)
		}
	}
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("third attempt: %v", err)
	}
	if got := m.Connects(); got != 3 {
		t.Errorf("Connects() = %d, want 3", got)
	}
}

func TestNotConnected(t *testing.T) {
	m := NewClient(Config{})
	calls := map[string]error{
		"define":    m.DefineVariable(sim.VariableDef{ID: 1}),
		"request":   m.RequestValue(1),
		"subscribe": m.SubscribeValue(1, sim.PeriodSecond),
		"map":       m.MapEvent(1001, "AP_MASTER"),
		"transmit":  m.TransmitEvent(1001, 0),
		"dispatch":  m.Dispatch(context.Background()),
	}
	for name, err := range calls {
		if !errors.Is(err, sim.ErrNotConnected) {
			t.Errorf("%s: err = %v, want ErrNotConnected", name, err)
		}
	}
}

func TestDispatchDeliversWireTypes(t *testing.T) {
	ctx := context.Background()
	m := NewClient(Config{
		AppName: "Test Sim",
		Values: map[string]any{
			"AIRSPEED INDICATED": 120.5,
			"GEAR HANDLE":        true,
			"ATC ID":             "N172SP",
			"TRANSPONDER CODE":   7000,
		},
	})
	var rec recorder
	m.SetHandlers(rec.handlers())
	if err := m.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	defs := []sim.VariableDef{
		{ID: 1, Name: "AIRSPEED INDICATED", DataType: sim.DataFloat64},
		{ID: 2, Name: "GEAR HANDLE", DataType: sim.DataInt32},
		{ID: 3, Name: "ATC ID", DataType: sim.DataString},
		{ID: 4, Name: "TRANSPONDER CODE", DataType: sim.DataInt64},
	}
	for _, d := range defs {
		if err := m.DefineVariable(d); err != nil {
			t.Fatal(err)
		}
		if err := m.RequestValue(d.ID); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Dispatch(ctx); err != nil {
		t.Fatal(err)
	}

	if len(rec.opened) != 1 || rec.opened[0] != "Test Sim" {
		t.Errorf("opened = %v", rec.opened)
	}
	want := map[uint32]any{1: 120.5, 2: int32(1), 3: "N172SP", 4: int64(7000)}
	for id, w := range want {
		got := rec.values[id]
		if len(got) != 1 || got[0] != w {
			t.Errorf("id %d: got %#v, want [%#v]", id, got, w)
		}
	}

	// Queue is drained; open is reported once.
	if err := m.Dispatch(ctx); err != nil {
		t.Fatal(err)
	}
	if len(rec.opened) != 1 || len(rec.values[1]) != 1 {
		t.Errorf("second dispatch redelivered: opened=%v values=%v", rec.opened, rec.values)
	}
	if got := m.Requests(1); got != 1 {
		t.Errorf("Requests(1) = %d", got)
	}
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	m := NewClient(Config{Values: map[string]any{"FLAPS": 2.0}})
	var rec recorder
	m.SetHandlers(rec.handlers())
	_ = m.Connect(ctx)
	_ = m.DefineVariable(sim.VariableDef{ID: 5, Name: "FLAPS"})
	_ = m.SubscribeValue(5, sim.PeriodSimFrame)

	for i := 0; i < 3; i++ {
		_ = m.Dispatch(ctx)
	}
	if got := len(rec.values[5]); got != 3 {
		t.Errorf("deliveries = %d, want 3", got)
	}

	_ = m.SubscribeValue(5, sim.PeriodNever)
	_ = m.Dispatch(ctx)
	if got := len(rec.values[5]); got != 3 {
		t.Errorf("delivery after unsubscribe: %d", got)
	}
}

func TestTransmitAndQuit(t *testing.T) {
	ctx := context.Background()
	m := NewClient(Config{})
	var rec recorder
	m.SetHandlers(rec.handlers())
	_ = m.Connect(ctx)

	if err := m.TransmitEvent(1001, 0); err == nil {
		t.Error("expected error for unmapped event")
	}
	_ = m.MapEvent(1001, "AP_MASTER")
	if err := m.TransmitEvent(1001, 7); err != nil {
		t.Fatal(err)
	}
	tx := m.Transmits()
	if len(tx) != 1 || tx[0] != (Transmit{ID: 1001, Name: "AP_MASTER", Data: 7}) {
		t.Errorf("Transmits() = %+v", tx)
	}

	m.Quit()
	_ = m.Dispatch(ctx)
	if rec.quits != 1 {
		t.Errorf("quits = %d", rec.quits)
	}
	if m.Connected() || m.MappedEvents() != 0 {
		t.Error("session state should be cleared after quit")
	}
}
