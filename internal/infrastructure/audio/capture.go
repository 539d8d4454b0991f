// Package audio connects the host's microphone and speakers to voice
// sessions through ffmpeg and ffplay.
package audio

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/janhq/voicecall/internal/domain/failure"
	"github.com/janhq/voicecall/internal/domain/voice"
)

const (
	micSampleRateHz = 48000
	micBitrate      = "32k"
)

// CaptureConfig selects the ffmpeg input. Empty InputFormat and InputDevice
// mean the platform default microphone.
type CaptureConfig struct {
	FFmpegPath    string
	InputFormat   string
	InputDevice   string
	FrameDuration time.Duration
}

// MicCapture opens the microphone as an Ogg/Opus stream from ffmpeg.
type MicCapture struct {
	cfg  CaptureConfig
	goos string
	log  zerolog.Logger
}

// NewMicCapture creates a capture source for the current platform.
func NewMicCapture(cfg CaptureConfig, log zerolog.Logger) *MicCapture {
	if strings.TrimSpace(cfg.FFmpegPath) == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FrameDuration <= 0 {
		cfg.FrameDuration = 20 * time.Millisecond
	}
	return &MicCapture{
		cfg:  cfg,
		goos: runtime.GOOS,
		log:  log.With().Str("component", "mic-capture").Logger(),
	}
}

// Open starts ffmpeg and waits for the first Ogg pages before returning a
// publishable track.
func (m *MicCapture) Open(ctx context.Context) (voice.LocalTrack, error) {
	path, err := exec.LookPath(m.cfg.FFmpegPath)
	if err != nil {
		return nil, failure.New(failure.ReasonMicrophoneUnavailable, fmt.Errorf("ffmpeg is required for microphone capture: %w", err))
	}
	args, err := captureArgs(m.goos, m.cfg)
	if err != nil {
		return nil, failure.New(failure.ReasonMicrophoneUnavailable, err)
	}

	cmd := exec.Command(path, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, failure.New(failure.ReasonMicrophoneUnavailable, fmt.Errorf("start ffmpeg mic capture: %w", err))
	}
	m.log.Debug().Strs("args", args).Int("pid", cmd.Process.Pid).Msg("ffmpeg started")

	mic := &micTrack{cmd: cmd, stdout: stdout}

	type result struct {
		track *lksdk.LocalTrack
		err   error
	}
	done := make(chan result, 1)
	go func() {
		track, err := lksdk.NewLocalReaderTrack(stdout, webrtc.MimeTypeOpus,
			lksdk.ReaderTrackWithFrameDuration(m.cfg.FrameDuration),
		)
		done <- result{track: track, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			mic.stop()
			return nil, classifyCaptureError(res.err, stderr.String())
		}
		mic.track = res.track
		m.log.Info().Str("track_id", res.track.ID()).Msg("microphone opened")
		return mic, nil
	case <-ctx.Done():
		mic.stop()
		<-done
		return nil, ctx.Err()
	}
}

// captureArgs builds the ffmpeg command line. Output is mono 48kHz Opus in
// Ogg with one frame per page, which is what the reader track expects.
func captureArgs(goos string, cfg CaptureConfig) ([]string, error) {
	format, device := cfg.InputFormat, cfg.InputDevice
	if format == "" || device == "" {
		var defFormat, defDevice string
		switch goos {
		case "linux":
			defFormat, defDevice = "pulse", "default"
		case "darwin":
			defFormat, defDevice = "avfoundation", ":0"
		case "windows":
			defFormat = "dshow"
		default:
			return nil, fmt.Errorf("microphone capture is not implemented for %s; supported platforms: darwin, linux, windows", goos)
		}
		if format == "" {
			format = defFormat
		}
		if device == "" {
			device = defDevice
		}
	}
	if device == "" {
		return nil, fmt.Errorf("MIC_INPUT_DEVICE is required on %s (for example audio=\"Microphone\")", goos)
	}

	frame := cfg.FrameDuration
	if frame <= 0 {
		frame = 20 * time.Millisecond
	}

	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", format, "-i", device,
		"-ac", "1", "-ar", fmt.Sprintf("%d", micSampleRateHz),
		"-c:a", "libopus", "-b:a", micBitrate,
		"-frame_duration", fmt.Sprintf("%d", frame.Milliseconds()),
		"-page_duration", fmt.Sprintf("%d", frame.Microseconds()),
		"-f", "ogg", "-",
	}, nil
}

// classifyCaptureError tells a refused microphone from a missing one using
// what ffmpeg printed before it exited.
func classifyCaptureError(err error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	if detail != "" {
		err = fmt.Errorf("%w: %s", err, detail)
	}
	lower := strings.ToLower(detail)
	for _, marker := range []string{"permission", "denied", "not permitted", "not authorized"} {
		if strings.Contains(lower, marker) {
			return failure.New(failure.ReasonMicrophoneDenied, err)
		}
	}
	return failure.New(failure.ReasonMicrophoneUnavailable, err)
}

type micTrack struct {
	track  *lksdk.LocalTrack
	cmd    *exec.Cmd
	stdout io.ReadCloser

	once sync.Once
}

func (t *micTrack) ID() string {
	if t.track == nil {
		return ""
	}
	return t.track.ID()
}

// TrackLocal exposes the WebRTC track for publishing.
func (t *micTrack) TrackLocal() webrtc.TrackLocal {
	return t.track
}

// Close stops ffmpeg. The reader track ends on the resulting EOF.
func (t *micTrack) Close() error {
	t.stop()
	return nil
}

func (t *micTrack) stop() {
	t.once.Do(func() {
		if t.cmd != nil && t.cmd.Process != nil {
			_ = t.cmd.Process.Kill()
			_ = t.cmd.Wait()
		}
	})
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
