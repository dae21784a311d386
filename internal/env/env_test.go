package env_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sluiceworks/sluice/internal/env"
)

func TestStringDefault(t *testing.T) {
	assert.Equal(t, "fallback", env.String("SLUICE_TEST_UNSET", "fallback"))
}

func TestStringOverride(t *testing.T) {
	t.Setenv("SLUICE_TEST_STRING", "value")
	assert.Equal(t, "value", env.String("SLUICE_TEST_STRING", "fallback"))
}

func TestBool(t *testing.T) {
	got, err := env.Bool("SLUICE_TEST_BOOL_UNSET", true)
	require.NoError(t, err)
	assert.True(t, got)

	t.Setenv("SLUICE_TEST_BOOL", "false")
	got, err = env.Bool("SLUICE_TEST_BOOL", true)
	require.NoError(t, err)
	assert.False(t, got)

	t.Setenv("SLUICE_TEST_BOOL", "nope")
	_, err = env.Bool("SLUICE_TEST_BOOL", true)
	assert.Error(t, err)
}

func TestInt(t *testing.T) {
	got, err := env.Int("SLUICE_TEST_INT_UNSET", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, got)

	t.Setenv("SLUICE_TEST_INT", "8")
	got, err = env.Int("SLUICE_TEST_INT", 4)
	require.NoError(t, err)
	assert.Equal(t, 8, got)

	t.Setenv("SLUICE_TEST_INT", "eight")
	_, err = env.Int("SLUICE_TEST_INT", 4)
	assert.Error(t, err)
}

func TestDuration(t *testing.T) {
	got, err := env.Duration("SLUICE_TEST_DURATION_UNSET", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, got)

	t.Setenv("SLUICE_TEST_DURATION", "250ms")
	got, err = env.Duration("SLUICE_TEST_DURATION", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, got)

	t.Setenv("SLUICE_TEST_DURATION", "soon")
	_, err = env.Duration("SLUICE_TEST_DURATION", time.Minute)
	assert.Error(t, err)
}
