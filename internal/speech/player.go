package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
)

// AudioPlayer plays WAV data on the output device.
type AudioPlayer interface {
	Play(ctx context.Context, wav []byte) error
	Stop()
}

var _ AudioPlayer = (*Player)(nil)

var (
	errBadWAV      = errors.New("not a PCM WAV clip")
	errWrongFormat = errors.New("clip format does not match the output device")
	errStalled     = errors.New("audio device stalled")
)

// pollEvery is how often Play checks whether oto has drained the clip.
const pollEvery = 10 * time.Millisecond

// stallGrace is how long past a clip's own length Play keeps waiting.
const stallGrace = 2 * time.Second

// clip is a decoded WAV file.
type clip struct {
	pcm      []byte
	rate     int
	channels int
	bits     int
}

// duration is the clip's play time at its own rate.
func (c clip) duration() time.Duration {
	frame := c.channels * c.bits / 8
	if frame == 0 || c.rate == 0 {
		return 0
	}
	frames := len(c.pcm) / frame
	return time.Duration(frames) * time.Second / time.Duration(c.rate)
}

// Player plays one synthesized clip at a time through oto. The device is
// opened once at SampleRate/ChannelCount, 16-bit, which is what Azure is
// asked to produce.
type Player struct {
	device *oto.Context
	log    *logger.Logger

	mu      sync.Mutex
	active  *oto.Player
	stopped bool
}

// NewPlayer opens the audio device. It fails when no device is
// available; callers fall back to silent mode.
func NewPlayer(log *logger.Logger) (*Player, error) {
	device, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	<-ready

	log.Debug("audio device open (%d Hz, %d ch)", SampleRate, ChannelCount)
	return &Player{device: device, log: log}, nil
}

// Play blocks until the clip has played. Stop makes it return
// domain.ErrPlaybackCancelled and a done ctx makes it return ctx.Err().
func (p *Player) Play(ctx context.Context, wav []byte) error {
	c, err := decodeWAV(wav)
	if err != nil {
		return err
	}
	if c.rate != SampleRate || c.channels != ChannelCount || c.bits != 16 {
		return fmt.Errorf("%w: %d Hz, %d ch, %d bit", errWrongFormat, c.rate, c.channels, c.bits)
	}
	if len(c.pcm) == 0 {
		return nil
	}

	player := p.device.NewPlayer(bytes.NewReader(c.pcm))
	p.mu.Lock()
	p.active, p.stopped = player, false
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.active = nil
		p.mu.Unlock()
		if err := player.Close(); err != nil {
			p.log.Debug("closing clip: %v", err)
		}
	}()

	length := c.duration()
	p.log.Debug("playing %s clip", length.Round(time.Millisecond))
	player.Play()

	tick := time.NewTicker(pollEvery)
	defer tick.Stop()
	stall := time.NewTimer(length + stallGrace)
	defer stall.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-stall.C:
			player.Pause()
			return fmt.Errorf("%w after %s", errStalled, length)
		case <-tick.C:
		}
	}

	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return domain.ErrPlaybackCancelled
	}
	return nil
}

// Stop interrupts the clip playing now, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	if active != nil {
		p.stopped = true
	}
	p.mu.Unlock()

	if active != nil {
		active.Pause()
		p.log.Debug("clip interrupted")
	}
}

// decodeWAV reads the fmt and data chunks of a RIFF/WAVE file. Chunks are
// word-aligned; a data chunk longer than the file is cut to what is there.
func decodeWAV(wav []byte) (clip, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return clip{}, errBadWAV
	}

	var c clip
	var haveFmt bool
	for pos := 12; pos+8 <= len(wav); {
		id := string(wav[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if end > len(wav) || end < body {
			end = len(wav)
		}

		switch id {
		case "fmt ":
			if end-body < 16 {
				return clip{}, fmt.Errorf("%w: short fmt chunk", errBadWAV)
			}
			if tag := binary.LittleEndian.Uint16(wav[body:]); tag != 1 {
				return clip{}, fmt.Errorf("%w: encoding %d", errBadWAV, tag)
			}
			c.channels = int(binary.LittleEndian.Uint16(wav[body+2:]))
			c.rate = int(binary.LittleEndian.Uint32(wav[body+4:]))
			c.bits = int(binary.LittleEndian.Uint16(wav[body+14:]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return clip{}, fmt.Errorf("%w: data before fmt", errBadWAV)
			}
			c.pcm = wav[body:end]
			return c, nil
		}

		pos = end
		if size%2 != 0 {
			pos++
		}
	}
	return clip{}, fmt.Errorf("%w: no data chunk", errBadWAV)
}
