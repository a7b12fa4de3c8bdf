package dashboard

import (
	"errors"
	"testing"

	"rocket-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThemePreferenceStore_DoubleToggle(t *testing.T) {
	for _, start := range []model.Platform{model.PlatformTwitch, model.PlatformKick} {
		s := NewThemePreferenceStore(start, nil)
		s.Toggle()
		s.Toggle()
		assert.Equal(t, start, s.Current())
	}
}

func TestThemePreferenceStore_PersistsAndNotifies(t *testing.T) {
	var persisted []model.Platform
	s := NewThemePreferenceStore(model.PlatformTwitch, func(p model.Platform) error {
		persisted = append(persisted, p)
		return nil
	})

	var notified []model.Platform
	s.Subscribe(func(p model.Platform) { notified = append(notified, p) })

	require.Equal(t, model.PlatformKick, s.Toggle())
	require.Equal(t, model.PlatformTwitch, s.Toggle())

	assert.Equal(t, []model.Platform{model.PlatformKick, model.PlatformTwitch}, persisted)
	assert.Equal(t, persisted, notified)
}

func TestThemePreferenceStore_PersistFailureStillToggles(t *testing.T) {
	s := NewThemePreferenceStore(model.PlatformTwitch, func(model.Platform) error {
		return errors.New("disk full")
	})
	assert.Equal(t, model.PlatformKick, s.Toggle())
	assert.Equal(t, model.PlatformKick, s.Current())
}

func TestThemePreferenceStore_InvalidInitial(t *testing.T) {
	s := NewThemePreferenceStore("youtube", nil)
	assert.Equal(t, model.PlatformTwitch, s.Current())
}

func TestThemePreferenceStore_Unsubscribe(t *testing.T) {
	s := NewThemePreferenceStore(model.PlatformTwitch, nil)
	var calls int
	unsub := s.Subscribe(func(model.Platform) { calls++ })
	s.Toggle()
	unsub()
	s.Toggle()
	assert.Equal(t, 1, calls)
}
