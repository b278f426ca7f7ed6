package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/usbtotal/internal/catalog"
	"github.com/danmuck/usbtotal/internal/observability"
	"github.com/danmuck/usbtotal/internal/protocol"
	"github.com/danmuck/usbtotal/internal/protocol/frame"
	"github.com/danmuck/usbtotal/internal/source"
	"github.com/danmuck/usbtotal/internal/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FileSource is positioned random access to one catalog file.
type FileSource interface {
	Size() uint64
	Seek(offset uint64) error
	// Read returns fewer than length bytes only at end-of-file.
	Read(length uint64) ([]byte, error)
	Close() error
}

// Opener opens the file behind a catalog entry.
type Opener func(path string) (FileSource, error)

func openFile(path string) (FileSource, error) {
	f, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Option customizes a Session.
type Option func(*Session)

func WithOpener(open Opener) Option {
	return func(s *Session) {
		if open != nil {
			s.open = open
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.log = logger
	}
}

// Session serves one catalog to one peer over one transport.
type Session struct {
	cfg     Config
	t       transport.Transport
	catalog catalog.Catalog
	open    Opener
	log     zerolog.Logger

	mu       sync.RWMutex
	progress Progress
	ran      bool
}

func New(cfg Config, t transport.Transport, c catalog.Catalog, opts ...Option) *Session {
	s := &Session{
		cfg:     cfg,
		t:       t,
		catalog: c,
		open:    openFile,
		log:     log.Logger.With().Str("component", "session").Logger(),
		progress: Progress{
			State:     protocol.StateIdle,
			Index:     -1,
			FileCount: c.Len(),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drives the session from Idle to Completed or Failed. The transport is
// reset exactly once afterwards, best-effort when the session failed.
// A Session can only be run once.
func (s *Session) Run() error {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return ErrAlreadyRun
	}
	s.ran = true
	s.mu.Unlock()

	err := s.run()
	resetErr := s.t.Reset()
	observability.RecordSession(err == nil)

	if err != nil {
		s.fail(err)
		ev := s.log.Error().Err(err)
		if resetErr != nil {
			ev = ev.AnErr("reset_error", resetErr)
		}
		ev.Msg("session failed")
		return err
	}
	if resetErr != nil {
		err = &Error{
			State: protocol.StateCompleted,
			Index: -1,
			Err:   fmt.Errorf("%w: reset: %w", protocol.ErrTransport, resetErr),
		}
		s.fail(err)
		return err
	}
	p := s.Progress()
	s.log.Info().
		Int("files", p.FileCount).
		Uint64("bytes_sent", p.BytesSent).
		Uint64("requests", p.Requests).
		Uint64("predictor_hits", p.PredictorHits).
		Msg("session completed")
	return nil
}

func (s *Session) run() error {
	s.setState(protocol.StateHandshaking, -1, "")
	if err := s.handshake(); err != nil {
		return &Error{State: protocol.StateHandshaking, Index: -1, Err: err}
	}
	for i := 0; i < s.catalog.Len(); i++ {
		if err := s.serveEntry(i, s.catalog.At(i)); err != nil {
			return err
		}
	}
	s.setState(protocol.StateCompleted, -1, "")
	return nil
}

// handshake blocks until the peer speaks first. Nothing is written unless
// both magic and version match.
func (s *Session) handshake() error {
	req, err := frame.ReadHandshakeRequest(s.t)
	if err != nil {
		return err
	}
	if req.Magic != s.cfg.Magic {
		return fmt.Errorf("%w: magic %#08x, want %#08x", protocol.ErrProtocolMismatch, req.Magic, s.cfg.Magic)
	}
	if req.Version != s.cfg.Version {
		return fmt.Errorf("%w: version %d, want %d", protocol.ErrProtocolMismatch, req.Version, s.cfg.Version)
	}
	reply := frame.HandshakeReply{
		Magic:     s.cfg.Magic,
		Version:   s.cfg.Version,
		BusSpeed:  s.t.BusSpeed(),
		FileCount: uint32(s.catalog.Len()),
	}
	if err := frame.WriteHandshakeReply(s.t, reply); err != nil {
		return err
	}
	s.log.Info().
		Str("bus_speed", fmt.Sprintf("%#04x", reply.BusSpeed)).
		Uint32("file_count", reply.FileCount).
		Msg("handshake accepted")
	return nil
}

// serveEntry announces entry i and answers its range requests until the
// terminator. The file is closed on every exit path.
func (s *Session) serveEntry(i int, e catalog.Entry) (err error) {
	state := protocol.StateAnnouncing
	s.setState(state, i, e.Path)
	defer func() {
		if err != nil {
			err = &Error{State: state, Index: i, Path: e.Path, Err: err}
		}
	}()

	src, err := s.open(e.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", protocol.ErrSource, err)
	}
	defer src.Close()

	size := src.Size()
	if size != e.Size {
		s.log.Warn().
			Str("path", e.Path).
			Uint64("catalog_size", e.Size).
			Uint64("size", size).
			Msg("file size changed since discovery")
	}
	if err := frame.WriteFileDescriptor(s.t, frame.FileDescriptor{Size: size, Name: e.Name}); err != nil {
		return err
	}
	s.log.Info().Int("index", i).Str("name", e.Name).Uint64("size", size).Msg("file announced")

	state = protocol.StateServing
	s.setState(state, i, e.Path)

	var pred predictor
	for {
		req, err := frame.ReadRangeRequest(s.t)
		if err != nil {
			return err
		}
		if req.Terminator() {
			observability.RecordRange(observability.RangeTerminator, 0, 0)
			observability.RecordFileServed()
			s.log.Debug().Int("index", i).Msg("terminator received")
			return nil
		}

		start := time.Now()
		buf, hit, err := s.readRange(src, size, &pred, req)
		if err != nil {
			return err
		}
		if err := frame.WritePayload(s.t, buf); err != nil {
			return err
		}
		result := observability.RangeServed
		if hit {
			result = observability.RangePredicted
		}
		observability.RecordRange(result, len(buf), time.Since(start))
		s.recordRange(len(buf), hit)
		s.log.Trace().
			Uint64("offset", req.Offset).
			Uint64("length", req.Length).
			Bool("predicted", hit).
			Msg("range served")

		if s.cfg.Prefetch {
			if err := pred.prefetch(src, req); err != nil {
				s.log.Debug().Err(err).Msg("read-ahead dropped")
			}
		}
	}
}

// readRange returns exactly req.Length bytes at req.Offset or fails. Bounds
// are checked against the announced size before any buffer is allocated.
func (s *Session) readRange(src FileSource, size uint64, pred *predictor, req frame.RangeRequest) ([]byte, bool, error) {
	if req.Offset > size || req.Length > size-req.Offset {
		return nil, false, fmt.Errorf("%w: range offset=%d length=%d exceeds size %d",
			protocol.ErrShortRead, req.Offset, req.Length, size)
	}
	if buf, ok := pred.take(req); ok {
		return buf, true, nil
	}
	pred.reset()
	if err := src.Seek(req.Offset); err != nil {
		return nil, false, fmt.Errorf("%w: %w", protocol.ErrSource, err)
	}
	buf, err := src.Read(req.Length)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", protocol.ErrSource, err)
	}
	if uint64(len(buf)) != req.Length {
		return nil, false, fmt.Errorf("%w: read %d of %d bytes at offset %d",
			protocol.ErrShortRead, len(buf), req.Length, req.Offset)
	}
	return buf, false, nil
}
