// Package amplifier manages power/volume/mute/source on an optional
// secondary device, over either a Hegel line-oriented TCP protocol or a
// Cambridge StreamMagic preamp/control-bus WebSocket dialect. Both
// variants present the same normalized Adapter contract.
package amplifier

import (
	"context"

	"github.com/kshepherd/vibin-go/internal/model"
)

// EventHandler receives a normalized state-change callback whenever the
// amplifier's power, volume, mute or source changes.
type EventHandler interface {
	OnState(model.AmplifierState)
}

// Adapter is the normalized amplifier contract. Not every action is
// supported by every variant/mode; State().SupportedActions names what
// is. An unsupported action returns an apperrors.InputError.
type Adapter interface {
	Name() string

	Start(ctx context.Context) error
	Close()
	Subscribe(handler EventHandler)

	State() model.AmplifierState

	SetPower(ctx context.Context, on bool) error
	SetVolume(ctx context.Context, level float64) error
	AdjustVolume(ctx context.Context, up bool) error
	SetMute(ctx context.Context, on bool) error
	SetSource(ctx context.Context, sourceID string) error
}
