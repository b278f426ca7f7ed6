package session

import (
	"errors"
	"fmt"

	"github.com/danmuck/usbtotal/internal/protocol"
)

var ErrAlreadyRun = errors.New("session: already run")

// Error locates a failure by stage and catalog entry. Index is -1 when the
// failure happened before any entry was announced.
type Error struct {
	State protocol.State
	Index int
	Path  string
	Err   error
}

func (e *Error) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("session: %s: %v", e.State, e.Err)
	}
	return fmt.Sprintf("session: %s file[%d] %s: %v", e.State, e.Index, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
