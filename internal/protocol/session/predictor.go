package session

import "github.com/danmuck/usbtotal/internal/protocol/frame"

// predictor caches the bytes that follow the last served range. It is a
// cache key only: a hit requires both offset and length to match exactly.
type predictor struct {
	next  uint64
	buf   []byte
	valid bool
}

func (p *predictor) reset() {
	p.next = 0
	p.buf = nil
	p.valid = false
}

// take returns the cached buffer when req is exactly the predicted range.
func (p *predictor) take(req frame.RangeRequest) ([]byte, bool) {
	if !p.valid || req.Offset != p.next || req.Length != uint64(len(p.buf)) {
		return nil, false
	}
	buf := p.buf
	p.reset()
	return buf, true
}

// prefetch reads the next req.Length bytes from the current position of src,
// which must sit at req.Offset+req.Length. Near EOF the buffer comes back
// short and the next lookup simply misses.
func (p *predictor) prefetch(src FileSource, req frame.RangeRequest) error {
	buf, err := src.Read(req.Length)
	if err != nil {
		p.reset()
		return err
	}
	p.next = req.Offset + req.Length
	p.buf = buf
	p.valid = true
	return nil
}
