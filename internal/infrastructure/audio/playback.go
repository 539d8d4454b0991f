package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/rs/zerolog"

	"github.com/janhq/voicecall/internal/domain/voice"
)

// Playback modes.
const (
	ModeFFplay  = "ffplay"
	ModeFile    = "file"
	ModeDiscard = "discard"
)

// ErrNoRTP is returned for remote tracks that cannot be read.
var ErrNoRTP = errors.New("remote track does not expose RTP")

// RTPSource is a remote Opus track that can be read packet by packet.
type RTPSource interface {
	voice.RemoteTrack
	ReadRTP() (*rtp.Packet, error)
	ClockRate() uint32
	Channels() uint16
}

// PlaybackConfig selects where agent audio goes.
type PlaybackConfig struct {
	Mode       string
	FFplayPath string
	Dir        string
}

// Sink plays remote audio. Each attached track gets its own writer goroutine.
type Sink struct {
	cfg PlaybackConfig
	log zerolog.Logger
	now func() time.Time

	wg sync.WaitGroup
}

// NewSink creates a playback sink.
func NewSink(cfg PlaybackConfig, log zerolog.Logger) *Sink {
	if cfg.Mode == "" {
		cfg.Mode = ModeFFplay
	}
	if strings.TrimSpace(cfg.FFplayPath) == "" {
		cfg.FFplayPath = "ffplay"
	}
	return &Sink{
		cfg: cfg,
		log: log.With().Str("component", "playback").Str("mode", cfg.Mode).Logger(),
		now: time.Now,
	}
}

// Attach starts playing track until it ends or ctx is done.
func (s *Sink) Attach(ctx context.Context, track voice.RemoteTrack) error {
	src, ok := track.(RTPSource)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNoRTP, track)
	}

	clockRate, channels := src.ClockRate(), src.Channels()
	if clockRate == 0 {
		clockRate = micSampleRateHz
	}
	if channels == 0 {
		channels = 2
	}

	out, err := s.open(src)
	if err != nil {
		return err
	}

	var writer *oggwriter.OggWriter
	if out != nil {
		writer, err = oggwriter.NewWith(out, clockRate, channels)
		if err != nil {
			_ = out.Close()
			return fmt.Errorf("create ogg writer: %w", err)
		}
	}

	log := s.log.With().Str("track_sid", src.SID()).Str("participant", src.Participant()).Logger()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		packets := s.pump(ctx, src, writer, log)
		if writer != nil {
			if err := writer.Close(); err != nil {
				log.Debug().Err(err).Msg("close playback writer")
			}
		}
		log.Info().Int("packets", packets).Msg("remote audio ended")
	}()
	return nil
}

// Wait blocks until every attached track has finished.
func (s *Sink) Wait() {
	s.wg.Wait()
}

func (s *Sink) pump(ctx context.Context, src RTPSource, writer *oggwriter.OggWriter, log zerolog.Logger) int {
	packets := 0
	for ctx.Err() == nil {
		pkt, err := src.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Msg("remote track read stopped")
			}
			return packets
		}
		packets++
		if writer == nil {
			continue
		}
		if err := writer.WriteRTP(pkt); err != nil {
			log.Warn().Err(err).Msg("playback write failed")
			return packets
		}
	}
	return packets
}

// open returns the byte stream the Ogg pages go to, or nil to discard.
func (s *Sink) open(src RTPSource) (io.WriteCloser, error) {
	switch s.cfg.Mode {
	case ModeDiscard:
		return nil, nil
	case ModeFile:
		if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create playback dir: %w", err)
		}
		name := fmt.Sprintf("%s_%s_%s.ogg",
			s.now().UTC().Format("20060102T150405Z"),
			safeName(src.Participant()),
			safeName(src.SID()),
		)
		path := filepath.Join(s.cfg.Dir, name)
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create playback file: %w", err)
		}
		s.log.Info().Str("path", path).Msg("recording remote audio")
		return f, nil
	case ModeFFplay:
		return s.startFFplay()
	default:
		return nil, fmt.Errorf("unknown playback mode %q", s.cfg.Mode)
	}
}

func (s *Sink) startFFplay() (io.WriteCloser, error) {
	path, err := exec.LookPath(s.cfg.FFplayPath)
	if err != nil {
		return nil, fmt.Errorf("ffplay is required for playback (install ffmpeg/ffplay or set PLAYBACK_MODE): %w", err)
	}
	cmd := exec.Command(path,
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-f", "ogg",
		"-i", "pipe:0",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffplay stdin: %w", err)
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffplay: %w", err)
	}
	return &ffplayStdin{WriteCloser: stdin, cmd: cmd}, nil
}

// ffplayStdin waits for ffplay to drain its input after stdin closes.
type ffplayStdin struct {
	io.WriteCloser
	cmd *exec.Cmd
}

func (p *ffplayStdin) Close() error {
	err := p.WriteCloser.Close()
	_ = p.cmd.Wait()
	return err
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func safeName(s string) string {
	s = unsafeChars.ReplaceAllString(s, "-")
	if s == "" {
		return "unknown"
	}
	return s
}
