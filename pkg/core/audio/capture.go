// Package audio owns the microphone device session and local playback of
// remote audio artifacts.
package audio

import (
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/prepod-ai/tutor/pkg/core"
)

const (
	captureSampleRateHz = 16000
	captureChannels     = 1
)

// Clip is one encoded recording produced by a capture cycle.
type Clip struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Recorder is the capture contract consumed by the exam orchestrator. At
// most one recording cycle is active at a time; End or Cancel releases the
// device handle on every path.
type Recorder interface {
	// Begin requests the microphone and starts buffering.
	Begin() error
	// End stops buffering and yields exactly one encoded clip. Calling End
	// without a prior successful Begin is a programming error.
	End() (*Clip, error)
	// Cancel stops buffering and discards the clip.
	Cancel()
}

// Mic records S16LE mono PCM from the default capture device and yields WAV
// clips.
type Mic struct {
	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	buf    []byte
	active bool
}

// NewMic creates an idle microphone recorder. No device is touched until
// Begin.
func NewMic() *Mic {
	return &Mic{}
}

// Begin acquires the capture device and starts buffering.
func (m *Mic) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		return core.NewDeviceUnavailableError("recording already in progress", nil)
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return core.NewDeviceUnavailableError("audio backend unavailable", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = captureChannels
	deviceConfig.SampleRate = captureSampleRateHz

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			m.appendSamples(pInputSamples)
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		uninitContext(ctx)
		return core.NewDeviceUnavailableError("no capture device", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		uninitContext(ctx)
		return core.NewDeviceUnavailableError("failed to start capture device", err)
	}

	m.ctx = ctx
	m.device = device
	m.buf = make([]byte, 0, captureSampleRateHz*2)
	m.active = true
	return nil
}

// End stops buffering, releases the device, and returns the recorded clip as
// a WAV container.
func (m *Mic) End() (*Clip, error) {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return nil, core.NewDeviceUnavailableError("end called without an active recording", nil)
	}
	pcm, device, ctx := m.detachLocked()
	m.mu.Unlock()

	releaseDevice(device, ctx)

	return &Clip{
		Data:     EncodeWAV(pcm, captureSampleRateHz, captureChannels),
		MIMEType: "audio/wav",
		Filename: "answer.wav",
	}, nil
}

// Cancel stops buffering and discards everything captured so far.
func (m *Mic) Cancel() {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	_, device, ctx := m.detachLocked()
	m.mu.Unlock()

	releaseDevice(device, ctx)
}

// appendSamples is the data callback body; it runs on the capture thread
// every device period.
func (m *Mic) appendSamples(p []byte) {
	m.mu.Lock()
	if m.active {
		m.buf = append(m.buf, p...)
	}
	m.mu.Unlock()
}

// detachLocked takes ownership of the buffer and the hardware handles while
// m.mu is held. The caller tears the handles down after unlocking: stopping
// the device waits for the capture thread to leave the data callback, and
// that callback takes m.mu.
func (m *Mic) detachLocked() (pcm []byte, device *malgo.Device, ctx *malgo.AllocatedContext) {
	pcm = m.buf
	device = m.device
	ctx = m.ctx
	m.buf = nil
	m.device = nil
	m.ctx = nil
	m.active = false
	return pcm, device, ctx
}

// releaseDevice always returns the hardware handle, so the microphone
// indicator never sticks on.
func releaseDevice(device *malgo.Device, ctx *malgo.AllocatedContext) {
	if device != nil {
		device.Stop()
		device.Uninit()
	}
	if ctx != nil {
		uninitContext(ctx)
	}
}

func uninitContext(ctx *malgo.AllocatedContext) {
	_ = ctx.Uninit()
	ctx.Free()
}
