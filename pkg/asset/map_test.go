package asset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fake records commits and releases.
type fake struct {
	name     string
	fail     error
	attempts int
	commits  int
	prevs    []*fake
	released int
}

func (f *fake) Commit(_ Context, prev *fake) error {
	f.attempts++
	if f.fail != nil {
		return f.fail
	}
	f.commits++
	f.prevs = append(f.prevs, prev)
	return nil
}

func (f *fake) Release() { f.released++ }

func TestLoadIsInvisibleUntilReload(t *testing.T) {
	m := NewMap[*fake]("fake")
	a := &fake{name: "a"}
	m.Load(1, a)

	_, ok := m.Get(1)
	assert.False(t, ok, "staged value must not be visible")
	assert.True(t, m.Dirty())
	staged, ok := m.Staged(1)
	require.True(t, ok)
	assert.Same(t, a, staged)

	require.NoError(t, m.Reload(Context{}))
	got, ok := m.Get(1)
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.False(t, m.Dirty())
	assert.Equal(t, 1, a.commits)
	assert.Nil(t, a.prevs[0])
	_, ok = m.Staged(1)
	assert.False(t, ok)
}

func TestSecondLoadWins(t *testing.T) {
	m := NewMap[*fake]("fake")
	a, b := &fake{name: "a"}, &fake{name: "b"}

	_, replaced := m.Load(1, a)
	assert.False(t, replaced)
	old, replaced := m.Load(1, b)
	require.True(t, replaced)
	assert.Same(t, a, old)

	require.NoError(t, m.Reload(Context{}))
	got, _ := m.Get(1)
	assert.Same(t, b, got)
	assert.Zero(t, a.commits, "displaced value is never committed")
}

func TestReloadWithNothingStaged(t *testing.T) {
	m := NewMap[*fake]("fake")
	a := &fake{}
	m.Load(1, a)
	require.NoError(t, m.Reload(Context{}))
	require.NoError(t, m.Reload(Context{}))
	assert.Equal(t, 1, a.commits)
}

func TestReloadReplacesAndReleasesPrevious(t *testing.T) {
	m := NewMap[*fake]("fake")
	a, b := &fake{name: "a"}, &fake{name: "b"}
	m.Load(1, a)
	require.NoError(t, m.Reload(Context{}))

	m.Load(1, b)
	got, _ := m.Get(1)
	assert.Same(t, a, got, "resident stays until reload")

	require.NoError(t, m.Reload(Context{}))
	got, _ = m.Get(1)
	assert.Same(t, b, got)
	assert.Same(t, a, b.prevs[0], "commit sees the previous resident")
	assert.Equal(t, 1, a.released)
	assert.Zero(t, b.released)
}

func TestRecommitSameValueDoesNotRelease(t *testing.T) {
	m := NewMap[*fake]("fake")
	a := &fake{}
	m.Load(1, a)
	require.NoError(t, m.Reload(Context{}))
	m.Load(1, a)
	require.NoError(t, m.Reload(Context{}))
	assert.Equal(t, 2, a.commits)
	assert.Zero(t, a.released)
}

func TestFailedCommitStaysStaged(t *testing.T) {
	m := NewMap[*fake]("fake")
	boom := errors.New("boom")
	good, bad := &fake{name: "good"}, &fake{name: "bad", fail: boom}
	m.Load(1, good)
	m.Load(2, bad)

	err := m.Reload(Context{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fake 2")

	_, ok := m.Get(1)
	assert.True(t, ok)
	_, ok = m.Get(2)
	assert.False(t, ok)
	staged, ok := m.Staged(2)
	assert.True(t, ok)
	assert.Same(t, bad, staged)
	assert.True(t, m.Failed(2))
	assert.False(t, m.Dirty())

	// Reloading the same key retries it.
	bad.fail = nil
	m.Load(2, bad)
	assert.False(t, m.Failed(2))
	assert.True(t, m.Dirty())
	require.NoError(t, m.Reload(Context{}))
	assert.False(t, m.Dirty())
	assert.Equal(t, []Key{1, 2}, m.Keys())
	assert.Equal(t, 2, bad.attempts)
}

func TestFailedCommitIsNotRetriedEveryReload(t *testing.T) {
	m := NewMap[*fake]("fake")
	boom := errors.New("boom")
	bad := &fake{fail: boom}
	m.Load(1, bad)

	require.ErrorIs(t, m.Reload(Context{}), boom)
	for i := 0; i < 3; i++ {
		require.NoError(t, m.Reload(Context{}), "error is reported once")
	}
	assert.Equal(t, 1, bad.attempts)

	// Other keys still commit while the failed one waits.
	m.Load(2, &fake{})
	require.NoError(t, m.Reload(Context{}))
	assert.Equal(t, 1, bad.attempts)
	assert.Equal(t, []Key{2}, m.Keys())

	m.Remove(1)
	assert.False(t, m.Failed(1))
	_, ok := m.Staged(1)
	assert.False(t, ok)
	assert.False(t, m.Dirty())
}

func TestReloadKeyOrder(t *testing.T) {
	m := NewMap[*fake]("fake")
	var order []Key
	for _, k := range []Key{5, 1, 3} {
		m.Load(k, &fake{})
	}
	require.NoError(t, m.Reload(Context{}))
	for _, k := range m.Keys() {
		order = append(order, k)
	}
	assert.Equal(t, []Key{1, 3, 5}, order)
	assert.Equal(t, 3, m.Len())
}

func TestRemoveAndRelease(t *testing.T) {
	m := NewMap[*fake]("fake")
	a, b := &fake{}, &fake{}
	m.Load(1, a)
	m.Load(2, b)
	require.NoError(t, m.Reload(Context{}))

	m.Remove(1)
	assert.Equal(t, 1, a.released)
	_, ok := m.Get(1)
	assert.False(t, ok)

	m.Load(3, &fake{})
	m.Release()
	assert.Equal(t, 1, b.released)
	assert.Zero(t, m.Len())
	assert.False(t, m.Dirty())
}
