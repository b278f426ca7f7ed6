package session

import "github.com/danmuck/usbtotal/internal/protocol"

// Progress is a point-in-time view of a session for observers.
type Progress struct {
	State         protocol.State `json:"state"`
	Index         int            `json:"index"`
	Path          string         `json:"path,omitempty"`
	FileCount     int            `json:"file_count"`
	FilesDone     int            `json:"files_done"`
	BytesSent     uint64         `json:"bytes_sent"`
	Requests      uint64         `json:"requests"`
	PredictorHits uint64         `json:"predictor_hits"`
	Error         string         `json:"error,omitempty"`
}

// Progress is safe to call from any goroutine.
func (s *Session) Progress() Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

func (s *Session) setState(state protocol.State, index int, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress.State == protocol.StateServing && state != protocol.StateServing {
		s.progress.FilesDone++
	}
	s.progress.State = state
	s.progress.Index = index
	s.progress.Path = path
}

func (s *Session) recordRange(n int, hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Requests++
	s.progress.BytesSent += uint64(n)
	if hit {
		s.progress.PredictorHits++
	}
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.State = protocol.StateFailed
	s.progress.Error = err.Error()
}
