package streamer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kshepherd/vibin-go/internal/model"
)

func TestParseSeekTargetForms(t *testing.T) {
	target, err := ParseSeekTarget("45")
	require.NoError(t, err)
	require.NotNil(t, target.Seconds)
	require.Equal(t, 45, *target.Seconds)

	target, err = ParseSeekTarget("0.5")
	require.NoError(t, err)
	require.NotNil(t, target.Fraction)
	require.Equal(t, 0.5, *target.Fraction)

	target, err = ParseSeekTarget("1:02:03")
	require.NoError(t, err)
	require.Equal(t, 3723, *target.Seconds)

	target, err = ParseSeekTarget("2:30")
	require.NoError(t, err)
	require.Equal(t, 150, *target.Seconds)

	_, err = ParseSeekTarget("not a seek target")
	require.Error(t, err)

	_, err = ParseSeekTarget("1.5")
	require.Error(t, err)
}

func TestSeekTargetResolveSecondsFractionBoundaries(t *testing.T) {
	zero := 0.0
	target := SeekTarget{Fraction: &zero}
	seconds, err := target.ResolveSeconds(200)
	require.NoError(t, err)
	require.Equal(t, 0, seconds)

	one := 1.0
	target = SeekTarget{Fraction: &one}
	seconds, err = target.ResolveSeconds(200)
	require.NoError(t, err)
	require.Equal(t, 1, seconds)

	half := 0.5
	target = SeekTarget{Fraction: &half}
	seconds, err = target.ResolveSeconds(200)
	require.NoError(t, err)
	require.Equal(t, 100, seconds)
}

func TestSeekTargetResolveSecondsRefusesUnknownDuration(t *testing.T) {
	half := 0.5
	target := SeekTarget{Fraction: &half}
	_, err := target.ResolveSeconds(0)
	require.Error(t, err)
}

func TestNormalizeControlsDropsUnknownNames(t *testing.T) {
	actions := normalizeControls([]string{"play", "play_pause", "fast_forward", "track_next"})
	require.Equal(t, []model.TransportAction{model.ActionPlay, model.ActionTogglePlayback, model.ActionNext}, actions)
}
