package simvar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAssignsMonotonicIDs(t *testing.T) {
	reg := NewRegistry()
	a := mustVar(t, Spec{Key: "a"})
	b := mustVar(t, Spec{Key: "b"})

	idA, err := reg.Register(a)
	require.NoError(t, err)
	idB, err := reg.Register(b)
	require.NoError(t, err)

	assert.NotZero(t, idA)
	assert.Greater(t, idB, idA)

	require.True(t, reg.Remove(idA))
	c := mustVar(t, Spec{Key: "c"})
	idC, _ := reg.Register(c)
	assert.Greater(t, idC, idB, "ids are never reused")
}

func TestRegistry_DuplicateKeepsOriginal(t *testing.T) {
	reg := NewRegistry()
	orig := mustVar(t, Spec{Key: "dup", Category: "A"})
	again := mustVar(t, Spec{Key: "dup", Category: "B"})

	id, err := reg.Register(orig)
	require.NoError(t, err)
	id2, err := reg.Register(again)
	assert.True(t, errors.Is(err, ErrDuplicateKey))
	assert.Equal(t, id, id2)

	got, ok := reg.ByKey("dup")
	require.True(t, ok)
	assert.Same(t, orig, got)
	assert.Equal(t, 1, reg.Len())
	assert.Empty(t, reg.ByCategory("B"))
}

func TestRegistry_PresetIDInUse(t *testing.T) {
	other := NewRegistry()
	moved := mustVar(t, Spec{Key: "moved"})
	_, err := other.Register(moved)
	require.NoError(t, err)

	reg := NewRegistry()
	owner := mustVar(t, Spec{Key: "owner"})
	id, err := reg.Register(owner)
	require.NoError(t, err)
	require.Equal(t, moved.ID(), id)

	_, err = reg.Register(moved)
	assert.True(t, errors.Is(err, ErrDuplicateID))
	got, ok := reg.Get(id)
	require.True(t, ok)
	assert.Same(t, owner, got)
	_, ok = reg.ByKey("moved")
	assert.False(t, ok)
	assert.Equal(t, 1, reg.Len())

	// Fresh ids skip the ones taken by preset registrations.
	third := NewRegistry()
	_, err = third.Register(moved)
	require.NoError(t, err)
	next := mustVar(t, Spec{Key: "next"})
	nextID, err := third.Register(next)
	require.NoError(t, err)
	assert.NotEqual(t, moved.ID(), nextID)
}

func TestRegistry_IndicesAgree(t *testing.T) {
	reg := NewRegistry()
	ias := mustVar(t, Spec{Key: "ias", Category: "Flight", SimVarName: "AIRSPEED INDICATED", Unit: "knots"})
	iasPct := mustVar(t, Spec{Key: "iasRaw", Category: "Debug", SimVarName: "AIRSPEED INDICATED", Unit: "feet per second"})
	alt := mustVar(t, Spec{Key: "alt", Category: "Flight", SimVarName: "INDICATED ALTITUDE", Unit: "feet"})
	for _, v := range []*Variable{ias, iasPct, alt} {
		_, err := reg.Register(v)
		require.NoError(t, err)
	}

	assert.Len(t, reg.ByName("AIRSPEED INDICATED"), 2)
	assert.Len(t, reg.ByCategory("Flight"), 2)

	require.True(t, reg.Remove(ias.ID()))
	assert.False(t, reg.Remove(ias.ID()))

	_, ok := reg.Get(ias.ID())
	assert.False(t, ok)
	_, ok = reg.ByKey("ias")
	assert.False(t, ok)
	assert.Equal(t, []*Variable{iasPct}, reg.ByName("AIRSPEED INDICATED"))
	assert.Equal(t, []*Variable{alt}, reg.ByCategory("Flight"))
	assert.Equal(t, []*Variable{iasPct, alt}, reg.All())
}

func TestRegistry_PolledSubset(t *testing.T) {
	reg := NewRegistry()
	specs := []Spec{
		{Key: "frame", Period: PeriodSimFrame},
		{Key: "poll1", Period: PeriodMillisecond, Interval: time.Second},
		{Key: "second", Period: PeriodSecond},
		{Key: "poll2", Period: PeriodMillisecond, Interval: time.Second},
	}
	for _, s := range specs {
		_, err := reg.Register(mustVar(t, s))
		require.NoError(t, err)
	}

	polled := reg.PolledSubset()
	require.Len(t, polled, 2)
	assert.Equal(t, "poll1", polled[0].Key)
	assert.Equal(t, "poll2", polled[1].Key)

	reg.Remove(polled[0].ID())
	assert.Len(t, reg.PolledSubset(), 1)
}

func TestRegistry_ApplyUpdateUnknown(t *testing.T) {
	reg := NewRegistry()
	_, _, err := reg.ApplyUpdate(99, 1.0)
	assert.True(t, errors.Is(err, ErrUnknownVariable))
}

func TestRegistry_ApplyUpdateConversionError(t *testing.T) {
	reg := NewRegistry()
	v := mustVar(t, Spec{Key: "v", Unit: "feet", Default: "3"})
	id, _ := reg.Register(v)
	v.SetPending(true)

	_, changed, err := reg.ApplyUpdate(id, "not a number")
	assert.True(t, errors.Is(err, ErrConversion))
	assert.False(t, changed)
	assert.Equal(t, 3.0, v.Value().Float())
	assert.False(t, v.Pending())
}

func TestRegistry_ClearPendingAndSnapshot(t *testing.T) {
	reg := NewRegistry()
	v := mustVar(t, Spec{Key: "v", Category: "Cat", Unit: "percent over 100"})
	id, _ := reg.Register(v)
	v.SetPending(true)
	_, _, _ = reg.ApplyUpdate(id, 0.25)
	v.SetPending(true)

	reg.ClearPending()
	assert.False(t, v.Pending())

	snap := reg.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "v", snap[0].Key)
	assert.Equal(t, "25", snap[0].Value)
	assert.Equal(t, "real", snap[0].Kind)
}
