package mediactl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultPollInterval is the cadence of the change poller.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultEventBufferSize is how many undelivered events a subscription holds
	// before it starts dropping them.
	DefaultEventBufferSize = 64
)

// EventType is the kind of change an Event reports.
type EventType int

const (
	MediaChange EventType = iota
	PlaybackChange
	VolumeChange
	MuteChange
)

func (t EventType) String() string {
	switch t {
	case MediaChange:
		return "media_change"
	case PlaybackChange:
		return "playback_change"
	case VolumeChange:
		return "volume_change"
	case MuteChange:
		return "mute_change"
	}
	return fmt.Sprintf("event_type(%d)", int(t))
}

// Event is a single observed change. Only the field matching Type is set.
type Event struct {
	Type   EventType  `json:"type"`
	Media  *MediaInfo `json:"media,omitempty"`
	Volume *float32   `json:"volume,omitempty"`
	Muted  *bool      `json:"muted,omitempty"`
}

func (e Event) String() string {
	switch {
	case e.Media != nil:
		return fmt.Sprintf("<%s: %s>", e.Type, e.Media)
	case e.Volume != nil:
		return fmt.Sprintf("<%s: %.2f>", e.Type, *e.Volume)
	case e.Muted != nil:
		return fmt.Sprintf("<%s: %t>", e.Type, *e.Muted)
	}
	return fmt.Sprintf("<%s>", e.Type)
}

// Poller diffs media, volume and mute state across cycles. A Poller keeps its own
// snapshots and must only be driven from one goroutine.
type Poller struct {
	logger   *zap.SugaredLogger
	media    MediaSource
	volume   SystemVolumeReader
	interval time.Duration

	lastMedia  *MediaInfo
	lastVolume *float32
	lastMute   *bool
}

// NewPoller creates a poller. A non-positive interval falls back to DefaultPollInterval.
func NewPoller(logger *zap.SugaredLogger, media MediaSource, volume SystemVolumeReader, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Poller{
		logger:   logger.Named("poller"),
		media:    media,
		volume:   volume,
		interval: interval,
	}
}

// Poll runs a single cycle. Changes are passed to emit in media, volume, mute order.
func (p *Poller) Poll(emit func(Event)) {
	if info, ok := p.media.CurrentMedia(); ok {
		current := info

		if p.lastMedia == nil || !p.lastMedia.SameTrack(current) {
			emit(Event{Type: MediaChange, Media: &current})
		}

		if p.lastMedia != nil && p.lastMedia.PlaybackStatus != current.PlaybackStatus {
			emit(Event{Type: PlaybackChange, Media: &current})
		}

		p.lastMedia = &current
	}

	if level, ok := p.volume.Volume(); ok {
		if p.lastVolume == nil || *p.lastVolume != level {
			emit(Event{Type: VolumeChange, Volume: &level})
			p.lastVolume = &level
		}
	}

	if muted, ok := p.volume.Mute(); ok {
		if p.lastMute == nil || *p.lastMute != muted {
			emit(Event{Type: MuteChange, Muted: &muted})
			p.lastMute = &muted
		}
	}
}

// Run polls until ctx is done, waiting one interval between cycles.
func (p *Poller) Run(ctx context.Context, emit func(Event)) {
	p.logger.Debugw("Poll loop starting", "interval", p.interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Poll loop stopped")
			return
		case <-timer.C:
		}

		p.Poll(emit)
		timer.Reset(p.interval)
	}
}

// Subscription is a running poll loop delivering events to one callback.
type Subscription struct {
	logger *zap.SugaredLogger
	cancel context.CancelFunc
	done   chan struct{}
}

// Subscribe starts the poller on its own goroutine and delivers its events to callback
// on another. The poller never waits for callback: once bufferSize events are pending,
// new ones are dropped.
func Subscribe(ctx context.Context, logger *zap.SugaredLogger, poller *Poller, bufferSize int, callback func(Event)) *Subscription {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	ctx, cancel := context.WithCancel(ctx)

	s := &Subscription{
		logger: logger.Named("subscription"),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	events := make(chan Event, bufferSize)

	go s.dispatch(events, callback)

	go func() {
		defer close(s.done)
		defer close(events)

		poller.Run(ctx, func(event Event) {
			select {
			case events <- event:
			default:
				s.logger.Debugw("Subscriber is not keeping up, dropping event", "event", event)
			}
		})
	}()

	return s
}

func (s *Subscription) dispatch(events <-chan Event, callback func(Event)) {
	for event := range events {
		s.deliver(event, callback)
	}
}

func (s *Subscription) deliver(event Event, callback func(Event)) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warnw("Event callback panicked, discarding event", "event", event, "panic", r)
		}
	}()

	callback(event)
}

// Stop ends the poll loop and waits for the current cycle to finish. Events already
// queued are still delivered.
func (s *Subscription) Stop() {
	s.cancel()
	<-s.done
}

// Done is closed once the poll loop has ended.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
