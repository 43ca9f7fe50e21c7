package amplifier

import (
	"context"
	"fmt"
	"log"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kshepherd/vibin-go/internal/apperrors"
	"github.com/kshepherd/vibin-go/internal/model"
	"github.com/kshepherd/vibin-go/internal/tcpworker"
)

// hegelTerminator is Hegel's line terminator for both directions.
const hegelTerminator = '\r'

// dropTimerInterval is how often a -r.3 reset packet is resent; Hegel's
// own documentation requires it at least every 2 minutes to keep the
// connection-drop timer (set to a 3-minute window) from expiring.
const dropTimerInterval = 2 * time.Minute

var hegelResponsePattern = regexp.MustCompile(`^-(.)\.(\S+)$`)

// HegelAdapter talks the Hegel line-control protocol over a raw TCP
// socket: command packets are "-<cmd>.<param>\r", responses mirror that
// shape, and an "e.<...>" response signals a device-side error.
type HegelAdapter struct {
	name string
	addr string

	worker *tcpworker.Worker

	mu    sync.Mutex
	state model.AmplifierState

	handlersMu sync.Mutex
	handlers   []EventHandler

	dropTimerStop chan struct{}
}

// NewHegelAdapter builds an adapter for a Hegel amplifier reachable at
// addr (host:port, default port 50001 applied by the caller).
func NewHegelAdapter(name, addr string) *HegelAdapter {
	a := &HegelAdapter{
		name: name,
		addr: addr,
		state: model.AmplifierState{
			Name: name,
			SupportedActions: []model.AmplifierAction{
				model.AmplifierActionPower,
				model.AmplifierActionVolume,
				model.AmplifierActionVolumeUpDown,
				model.AmplifierActionMute,
				model.AmplifierActionSource,
			},
			Power: model.PowerUnknown,
			Mute:  model.PowerUnknown,
			Sources: model.AudioSources{
				Available: hegelSources(),
			},
		},
	}
	a.worker = tcpworker.New(addr, hegelTerminator, 5*time.Second, a)
	return a
}

func hegelSources() []model.AudioSource {
	sources := make([]model.AudioSource, 0, 9)
	for n := 1; n <= 9; n++ {
		id := strconv.Itoa(n)
		sources = append(sources, model.AudioSource{ID: id, Name: id})
	}
	return sources
}

func (a *HegelAdapter) Name() string { return a.name }

func (a *HegelAdapter) Subscribe(handler EventHandler) {
	a.handlersMu.Lock()
	defer a.handlersMu.Unlock()
	a.handlers = append(a.handlers, handler)
}

func (a *HegelAdapter) Start(ctx context.Context) error {
	a.worker.Start(ctx)
	return nil
}

func (a *HegelAdapter) Close() {
	a.stopDropTimer()
	a.worker.Stop()
}

func (a *HegelAdapter) State() model.AmplifierState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// OnConnect probes the amplifier's current power/input/volume/mute state
// and starts the drop-timer refresh loop, matching the original's
// connect-time "?" probes plus periodic -r.3 resend.
func (a *HegelAdapter) OnConnect(ctx context.Context, conn net.Conn) error {
	for _, cmd := range []string{"p", "i", "v", "m"} {
		if err := a.worker.Send(hegelPacket(cmd, "?")); err != nil {
			return err
		}
	}

	a.startDropTimer()
	return nil
}

func (a *HegelAdapter) OnDisconnect(err error) {
	a.stopDropTimer()
	if err != nil {
		log.Printf("AMPLIFIER: lost connection to Hegel %s: %v", a.name, err)
	}
}

func (a *HegelAdapter) OnLine(line string) {
	match := hegelResponsePattern.FindStringSubmatch(line)
	if match == nil {
		log.Printf("AMPLIFIER: could not parse Hegel response: %q", line)
		return
	}

	command, value := match[1], match[2]
	if command == "e" {
		log.Printf("AMPLIFIER: Hegel %s reported device error: %s", a.name, value)
		return
	}

	a.mu.Lock()
	switch command {
	case "p":
		if value == "1" {
			a.state.Power = model.PowerOn
		} else {
			a.state.Power = model.PowerOff
		}
	case "v":
		if n, err := strconv.Atoi(value); err == nil {
			level := float64(n) / 100
			a.state.Volume = &level
		}
	case "m":
		if value == "1" {
			a.state.Mute = model.PowerOn
		} else {
			a.state.Mute = model.PowerOff
		}
	case "i":
		active := model.AudioSource{ID: value, Name: value}
		a.state.Sources.Active = &active
	}
	snapshot := a.state
	a.mu.Unlock()

	a.forEachHandler(snapshot)
}

func (a *HegelAdapter) startDropTimer() {
	a.stopDropTimer()
	stop := make(chan struct{})
	a.dropTimerStop = stop

	go func() {
		ticker := time.NewTicker(dropTimerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.worker.Send(hegelPacket("r", "3"))
			case <-stop:
				return
			}
		}
	}()
}

func (a *HegelAdapter) stopDropTimer() {
	if a.dropTimerStop != nil {
		close(a.dropTimerStop)
		a.dropTimerStop = nil
	}
}

func (a *HegelAdapter) forEachHandler(state model.AmplifierState) {
	a.handlersMu.Lock()
	handlers := append([]EventHandler(nil), a.handlers...)
	a.handlersMu.Unlock()

	for _, h := range handlers {
		h.OnState(state)
	}
}

func hegelPacket(command, param string) []byte {
	return []byte(fmt.Sprintf("-%s.%s\r", command, param))
}

func (a *HegelAdapter) SetPower(ctx context.Context, on bool) error {
	if on {
		return a.worker.Send(hegelPacket("p", "1"))
	}
	return a.worker.Send(hegelPacket("p", "0"))
}

func (a *HegelAdapter) SetVolume(ctx context.Context, level float64) error {
	if level < 0 || level > 1 {
		return apperrors.NewInputError("volume must be between 0.0 and 1.0", map[string]any{"level": level})
	}
	return a.worker.Send(hegelPacket("v", strconv.Itoa(int(level*100))))
}

func (a *HegelAdapter) AdjustVolume(ctx context.Context, up bool) error {
	if up {
		return a.worker.Send(hegelPacket("v", "u"))
	}
	return a.worker.Send(hegelPacket("v", "d"))
}

func (a *HegelAdapter) SetMute(ctx context.Context, on bool) error {
	if on {
		return a.worker.Send(hegelPacket("m", "1"))
	}
	return a.worker.Send(hegelPacket("m", "0"))
}

func (a *HegelAdapter) SetSource(ctx context.Context, sourceID string) error {
	n, err := strconv.Atoi(strings.TrimSpace(sourceID))
	if err != nil || n < 1 || n > 9 {
		return apperrors.NewInputError("Hegel source must be 1-9", map[string]any{"source": sourceID})
	}
	return a.worker.Send(hegelPacket("i", strconv.Itoa(n)))
}

var _ Adapter = (*HegelAdapter)(nil)
