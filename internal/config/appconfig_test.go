package config

import (
	"errors"
	"testing"

	"tubearchivist/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateKnownPath(t *testing.T) {
	cfg := Defaults()

	updated, err := cfg.Update(map[string]any{
		"subscriptions.channel_size": 25,
		"downloads.format":           "bv*+ba",
	})
	require.NoError(t, err)

	assert.Equal(t, 25, updated.Subscriptions.ChannelSize)
	require.NotNil(t, updated.Downloads.Format)
	assert.Equal(t, "bv*+ba", *updated.Downloads.Format)

	// Original is untouched.
	assert.Equal(t, 50, cfg.Subscriptions.ChannelSize)
}

func TestUpdateUnknownPathRejected(t *testing.T) {
	cfg := Defaults()

	cases := []string{
		"downloads.not_a_key",
		"nonsense",
		"subscriptions.channel_size.deeper",
	}
	for _, path := range cases {
		_, err := cfg.Update(map[string]any{path: 1})
		if !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("path %q: expected validation error, got %v", path, err)
		}
	}
}

func TestUpdateEnumPaths(t *testing.T) {
	cfg := Defaults()

	_, err := cfg.Update(map[string]any{"downloads.subtitle_source": "auto"})
	assert.NoError(t, err)

	_, err = cfg.Update(map[string]any{"downloads.subtitle_source": "robot"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = cfg.Update(map[string]any{"downloads.comment_sort": "new"})
	assert.NoError(t, err)

	_, err = cfg.Update(map[string]any{"downloads.comment_sort": "best"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestUpdateResetOptional(t *testing.T) {
	cfg := Defaults()
	updated, err := cfg.Update(map[string]any{"downloads.autodelete_days": 7})
	require.NoError(t, err)
	require.NotNil(t, updated.Downloads.AutodeleteDays)

	cleared, err := updated.Update(map[string]any{"downloads.autodelete_days": nil})
	require.NoError(t, err)
	assert.Nil(t, cleared.Downloads.AutodeleteDays)
}

func TestGetDottedPath(t *testing.T) {
	cfg := Defaults()

	v, err := cfg.Get("subscriptions.playlist_size")
	require.NoError(t, err)
	assert.EqualValues(t, 50, v)

	_, err = cfg.Get("downloads.unknown")
	assert.ErrorIs(t, err, errs.ErrValidation)
}
