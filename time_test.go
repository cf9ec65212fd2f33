package authflow_test

import (
	"testing"
	"time"

	"github.com/csauvage/authflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsWithinThresholdPeriod(t *testing.T) {
	recent := time.Now().Add(-1 * time.Hour)
	stale := time.Now().Add(-48 * time.Hour)

	within, err := authflow.IsWithinThresholdPeriod(recent, "24h")
	require.NoError(t, err)
	assert.True(t, within)

	within, err = authflow.IsWithinThresholdPeriod(stale, "24h")
	require.NoError(t, err)
	assert.False(t, within)
}

func TestIsOutsideThresholdPeriod(t *testing.T) {
	stale := time.Now().Add(-48 * time.Hour)

	outside, err := authflow.IsOutsideThresholdPeriod(stale, "24h")
	require.NoError(t, err)
	assert.True(t, outside)
}

func TestThresholdPeriodBadPattern(t *testing.T) {
	_, err := authflow.IsWithinThresholdPeriod(time.Now(), "not-a-duration")
	require.Error(t, err)
}
