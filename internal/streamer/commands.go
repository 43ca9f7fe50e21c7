package streamer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kshepherd/vibin-go/internal/apperrors"
	"github.com/kshepherd/vibin-go/internal/model"
)

// controlNameMap translates a streamer dialect's raw control name into
// the normalized TransportAction vocabulary. Names absent from the map
// are dropped rather than surfaced.
var controlNameMap = map[string]model.TransportAction{
	"pause":           model.ActionPause,
	"play":            model.ActionPlay,
	"play_pause":      model.ActionTogglePlayback,
	"toggle_shuffle":  model.ActionShuffle,
	"toggle_repeat":   model.ActionRepeat,
	"track_next":      model.ActionNext,
	"track_previous":  model.ActionPrevious,
	"seek":            model.ActionSeek,
	"stop":            model.ActionStop,
}

// normalizeControls maps a raw controls list from the device, dropping
// any name the table doesn't recognize.
func normalizeControls(raw []string) []model.TransportAction {
	out := make([]model.TransportAction, 0, len(raw))
	for _, name := range raw {
		if action, ok := controlNameMap[name]; ok {
			out = append(out, action)
		}
	}
	return out
}

// SeekTarget is a parsed seek input, always normalized to a concrete
// second offset once the active track's duration is known.
type SeekTarget struct {
	// Fraction is set when the input was a float in [0,1]; the caller
	// must resolve it against the active track's duration.
	Fraction *float64
	// Seconds is set when the input was an absolute offset (an integer
	// or an "h:mm:ss" string).
	Seconds *int
}

// ParseSeekTarget accepts the three input forms spec.md names: a float in
// [0,1] (normalized fraction), an integer number of seconds, or a string
// in h:mm:ss form. Anything else is a typed input error.
func ParseSeekTarget(target string) (SeekTarget, error) {
	trimmed := strings.TrimSpace(target)

	if seconds, err := strconv.Atoi(trimmed); err == nil {
		return SeekTarget{Seconds: &seconds}, nil
	}

	if fraction, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if fraction < 0 || fraction > 1 {
			return SeekTarget{}, apperrors.NewInputError("seek fraction must be between 0 and 1", map[string]any{"target": target})
		}
		return SeekTarget{Fraction: &fraction}, nil
	}

	if seconds, ok := parseHMS(trimmed); ok {
		return SeekTarget{Seconds: &seconds}, nil
	}

	return SeekTarget{}, apperrors.NewInputError("unrecognized seek target", map[string]any{"target": target})
}

// ResolveSeconds turns a SeekTarget into an absolute second offset,
// refusing a fractional target when durationSec is unknown (<= 0).
func (s SeekTarget) ResolveSeconds(durationSec int) (int, error) {
	if s.Seconds != nil {
		return *s.Seconds, nil
	}
	if s.Fraction == nil {
		return 0, apperrors.NewInputError("seek target has neither a fraction nor an absolute offset", nil)
	}
	if durationSec <= 0 {
		return 0, apperrors.NewInputError("cannot resolve a normalized seek without a known track duration", nil)
	}
	if *s.Fraction == 0 {
		return 0, nil
	}
	if *s.Fraction == 1 {
		return 1, nil
	}
	return int(*s.Fraction * float64(durationSec)), nil
}

func parseHMS(s string) (int, bool) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	var hours, minutes, seconds int
	var err error

	switch len(parts) {
	case 3:
		hours, err = strconv.Atoi(parts[0])
		if err != nil {
			return 0, false
		}
		minutes, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, false
		}
		seconds, err = strconv.Atoi(parts[2])
		if err != nil {
			return 0, false
		}
	case 2:
		minutes, err = strconv.Atoi(parts[0])
		if err != nil {
			return 0, false
		}
		seconds, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, false
		}
	}

	if minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 {
		return 0, false
	}

	return hours*3600 + minutes*60 + seconds, true
}

// errUnsupportedAction is returned by idempotence guards so callers can
// format a consistent message across adapters.
func errUnsupportedAction(action model.TransportAction) error {
	return apperrors.NewInputError(fmt.Sprintf("action %q is not in activeControls", action), map[string]any{"action": string(action)})
}
