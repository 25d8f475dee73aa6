package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSetReportsChanges(t *testing.T) {
	s := NewStore()

	steps := []struct {
		value   Value
		changed bool
	}{
		{Int(10), true},
		{Int(10), false},
		{Int(20), true},
		{Int(10), true},
		{Int(10), false},
	}

	for i, step := range steps {
		changed, err := s.Set(UnrollCount, step.value)
		require.NoError(t, err)
		assert.Equal(t, step.changed, changed, "step %d", i)

		got, ok := s.Get(UnrollCount)
		require.True(t, ok)
		assert.Equal(t, step.value, got, "step %d", i)
	}
}

func TestStoreGetAbsent(t *testing.T) {
	s := NewStore()

	_, ok := s.Get(LoopCount)
	assert.False(t, ok)
}

func TestStoreResetForcesChange(t *testing.T) {
	s := NewStore()

	_, err := s.Set(BasicMode, Bool(true))
	require.NoError(t, err)
	_, err = s.Set(AggregateFunction, String("med"))
	require.NoError(t, err)

	s.Reset()
	assert.Equal(t, 0, s.Len())

	changed, err := s.Set(BasicMode, Bool(true))
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestStoreFalseIsAValue(t *testing.T) {
	s := NewStore()

	changed, err := s.Set(NoMem, Bool(false))
	require.NoError(t, err)
	assert.True(t, changed, "unset -> false must count as a change")

	changed, err = s.Set(NoMem, Bool(false))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestStoreRejectsKindMismatch(t *testing.T) {
	s := NewStore()

	_, err := s.Set(LoopCount, String("10"))
	require.ErrorIs(t, err, ErrKindMismatch)

	_, ok := s.Get(LoopCount)
	assert.False(t, ok)
}

func TestStoreRejectsUnknownOption(t *testing.T) {
	s := NewStore()

	_, err := s.Set(Option("bogus"), Int(1))
	require.ErrorIs(t, err, ErrUnknownOption)
}

func TestStoreSnapshotOrder(t *testing.T) {
	s := NewStore()

	for _, set := range []Setting{
		NewSetting(Verbose, Bool(true)),
		NewSetting(NMeasurements, Int(10)),
		NewSetting(Config, Blob([]byte("0E.01 ANY"))),
	} {
		_, err := s.Set(set.Option, set.Value)
		require.NoError(t, err)
	}

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, Config, snap[0].Option)
	assert.Equal(t, NMeasurements, snap[1].Option)
	assert.Equal(t, Verbose, snap[2].Option)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "42", Int(42).String())
	assert.Equal(t, "1", Bool(true).String())
	assert.Equal(t, "0", Bool(false).String())
	assert.Equal(t, "avg", String("avg").String())
}

func TestParse(t *testing.T) {
	v, err := Parse(KindInt, " 7 ")
	require.NoError(t, err)
	assert.Equal(t, Int(7), v)

	v, err = Parse(KindBool, "true")
	require.NoError(t, err)
	assert.Equal(t, Bool(true), v)

	_, err = Parse(KindInt, "seven")
	require.Error(t, err)
}

func TestLookup(t *testing.T) {
	opt, err := Lookup("warmUpCount")
	require.NoError(t, err)
	assert.Equal(t, WarmUpCount, opt)
	assert.Equal(t, "warm_up", opt.Endpoint())

	_, err = Lookup("warm_up_count")
	require.ErrorIs(t, err, ErrUnknownOption)
}
