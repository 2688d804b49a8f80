package session_test

import (
	"testing"

	"github.com/alkime/journal/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_OneActiveSessionPerUser(t *testing.T) {
	t.Parallel()

	devices := 0
	h := newHarness("hello")
	h.deps.NewDevice = func() session.CaptureDevice {
		devices++
		return &fakeDevice{}
	}

	m := session.NewManager(h.deps)

	first, err := m.Start(t.Context(), "alice")
	require.NoError(t, err)

	_, err = m.Start(t.Context(), "alice")
	require.ErrorIs(t, err, session.ErrSessionAlreadyActive)

	other, err := m.Start(t.Context(), "bob")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), other.ID())

	got, ok := m.Get("alice")
	require.True(t, ok)
	assert.Equal(t, first.ID(), got.ID())

	m.Discard(t.Context(), "alice")

	_, ok = m.Get("alice")
	assert.False(t, ok)

	again, err := m.Start(t.Context(), "alice")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), again.ID())
	assert.Equal(t, 3, devices)

	m.Shutdown(t.Context())

	_, ok = m.Get("bob")
	assert.False(t, ok)
}

func TestManager_SaveFreesUser(t *testing.T) {
	t.Parallel()

	h := newHarness("hello")
	m := session.NewManager(h.deps)

	s, err := m.Start(t.Context(), "alice")
	require.NoError(t, err)

	h.device.emit(t, make([]byte, 3200))
	require.NoError(t, s.Stop(t.Context()))
	require.NoError(t, s.Wait(t.Context()))

	_, err = m.Start(t.Context(), "alice")
	require.ErrorIs(t, err, session.ErrSessionAlreadyActive, "a ready session is still active")

	_, err = s.Save(t.Context(), false)
	require.NoError(t, err)

	_, ok := m.Get("alice")
	assert.False(t, ok)
}

func TestManager_FailedStartIsNotRegistered(t *testing.T) {
	t.Parallel()

	h := newHarness("hello")
	h.device.startErr = assert.AnError

	m := session.NewManager(h.deps)

	_, err := m.Start(t.Context(), "alice")
	require.ErrorIs(t, err, session.ErrDeviceUnavailable)

	_, ok := m.Get("alice")
	assert.False(t, ok)
}
