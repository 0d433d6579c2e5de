package core

import (
	"errors"
	"fmt"
	"sync"

	"waxwing/internal/domain"
)

// ErrAVUnsupported is returned when the AV extension cannot bind to the
// supplied core implementation.
var ErrAVUnsupported = errors.New("core does not support audio/video")

// AV is the audio/video extension bound to one Core. Call lifecycles are
// out of scope here; AV owns the session bookkeeping the profile layer
// needs to start and stop with the core.
type AV struct {
	core *Core

	mu      sync.Mutex
	started bool
}

// NewAV binds an AV extension to c. It fails for core implementations
// other than this package's.
func NewAV(c domain.Core) (*AV, error) {
	cc, ok := c.(*Core)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrAVUnsupported, c)
	}
	return &AV{core: cc}, nil
}

// Start brings the extension up. Idempotent starts are an error so a
// double profile bootstrap is caught early.
func (a *AV) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return errors.New("av already started")
	}
	a.started = true
	return nil
}

// Stop tears the extension down. Safe to call when not started.
func (a *AV) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.started = false
}

var _ domain.AV = (*AV)(nil)
