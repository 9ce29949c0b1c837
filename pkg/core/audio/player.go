package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/prepod-ai/tutor/pkg/core"
)

// Playback plays a remote audio reference locally. The returned channel is
// closed when playback ends, either naturally or because the user paused it;
// both transitions end the speaking sub-phase.
type Playback interface {
	Play(ctx context.Context, audioURL string) (<-chan struct{}, error)
	Pause()
	Stop()
}

// Player fetches an artifact by reference and plays it through the default
// output device. WAV (16-bit PCM) and MP3 artifacts are supported; the
// backend serves question audio as MP3.
type Player struct {
	httpClient *http.Client
	logger     *slog.Logger

	mu       sync.Mutex
	otoCtx   *oto.Context
	ctxRate  int
	ctxChans int
	current  *oto.Player
	doneOnce *sync.Once
	done     chan struct{}
}

// NewPlayer creates a player. A nil httpClient falls back to a client with a
// bounded timeout.
func NewPlayer(httpClient *http.Client, logger *slog.Logger) *Player {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{httpClient: httpClient, logger: logger}
}

// Play fetches the artifact and starts playback, stopping any clip that is
// still playing first.
func (p *Player) Play(ctx context.Context, audioURL string) (<-chan struct{}, error) {
	data, err := p.fetch(ctx, audioURL)
	if err != nil {
		return nil, err
	}

	sampleRate, channels, pcm, err := decodeArtifact(data)
	if err != nil {
		return nil, core.NewNetworkError("undecodable audio artifact", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	if err := p.ensureContextLocked(sampleRate, channels); err != nil {
		return nil, err
	}

	reader := bytes.NewReader(pcm)
	player := p.otoCtx.NewPlayer(reader)
	done := make(chan struct{})
	once := &sync.Once{}
	p.current = player
	p.done = done
	p.doneOnce = once
	player.Play()

	go p.watch(ctx, player, reader, done, once)
	return done, nil
}

// Pause stops the current clip. The pending done channel is closed, so the
// orchestrator sees the same transition as a natural end.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Stop tears down the current clip; used on orchestrator close.
func (p *Player) Stop() {
	p.Pause()
}

func (p *Player) stopLocked() {
	if p.current != nil {
		p.current.Pause()
		_ = p.current.Close()
		p.current = nil
	}
	if p.doneOnce != nil {
		done := p.done
		p.doneOnce.Do(func() { close(done) })
		p.doneOnce = nil
		p.done = nil
	}
}

func (p *Player) watch(ctx context.Context, player *oto.Player, reader *bytes.Reader, done chan struct{}, once *sync.Once) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
		case <-done:
			return
		case <-ticker.C:
			if reader.Len() > 0 || player.IsPlaying() {
				continue
			}
		}

		p.mu.Lock()
		if p.current == player {
			p.stopLocked()
		} else {
			once.Do(func() { close(done) })
		}
		p.mu.Unlock()
		return
	}
}

// ensureContextLocked initializes the output device on first use. The device
// keeps the first clip's format; a later mismatch is logged and played
// without resampling.
func (p *Player) ensureContextLocked(sampleRate, channels int) error {
	if p.otoCtx != nil {
		if p.ctxRate != sampleRate || p.ctxChans != channels {
			p.logger.Warn("artifact format differs from output device",
				"artifact_rate", sampleRate, "device_rate", p.ctxRate)
		}
		return nil
	}
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return core.NewDeviceUnavailableError("no audio output device", err)
	}
	<-ready
	p.otoCtx = otoCtx
	p.ctxRate = sampleRate
	p.ctxChans = channels
	return nil
}

func (p *Player) fetch(ctx context.Context, audioURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, core.NewNetworkError("invalid artifact reference", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, core.NewNetworkError("failed to fetch audio artifact", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.NewNetworkError(fmt.Sprintf("artifact fetch returned status %d", resp.StatusCode), nil)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 32<<20))
}

func decodeArtifact(data []byte) (sampleRate, channels int, pcm []byte, err error) {
	if info, werr := DecodeWAV(data); werr == nil {
		return info.SampleRate, info.Channels, info.PCM, nil
	}
	dec, merr := mp3.NewDecoder(bytes.NewReader(data))
	if merr != nil {
		return 0, 0, nil, merr
	}
	out, rerr := io.ReadAll(dec)
	if rerr != nil {
		return 0, 0, nil, rerr
	}
	// go-mp3 always emits 16-bit stereo.
	return dec.SampleRate(), 2, out, nil
}
