// Package operation tracks the single calibration run allowed against a robot at a time.
package operation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrRunInProgress is returned when a second run is started while one is active.
var ErrRunInProgress = errors.New("a calibration run is already in progress")

// Operation describes the run currently holding the manager.
type Operation struct {
	ID      uuid.UUID
	Label   string
	Started time.Time

	cancel context.CancelFunc
}

// Cancel cancels the context associated with an operation.
func (o *Operation) Cancel() {
	o.cancel()
}

// SingleOperationManager ensures only 1 operation is happening at a time. Unlike a
// preemptive manager, a new operation is refused rather than cancelling the running one,
// because two sequences interleaving motion commands on one arm is never safe.
type SingleOperationManager struct {
	mu        sync.Mutex
	currentOp *Operation
}

// Start claims the manager for a new operation. It returns a context that is cancelled by
// CancelRunning and a function to call when done.
func (sm *SingleOperationManager) Start(ctx context.Context, label string) (*Operation, context.Context, func(), error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.currentOp != nil {
		return nil, nil, nil, errors.Wrapf(ErrRunInProgress, "%q started at %s", sm.currentOp.Label,
			sm.currentOp.Started.Format(time.RFC3339))
	}

	opCtx, cancel := context.WithCancel(ctx)
	theOp := &Operation{
		ID:      uuid.New(),
		Label:   label,
		Started: time.Now(),
		cancel:  cancel,
	}
	sm.currentOp = theOp

	return theOp, opCtx, func() {
		cancel()
		sm.mu.Lock()
		if theOp == sm.currentOp {
			sm.currentOp = nil
		}
		sm.mu.Unlock()
	}, nil
}

// OpRunning returns if there is a current operation.
func (sm *SingleOperationManager) OpRunning() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.currentOp != nil
}

// Current returns the running operation, or nil.
func (sm *SingleOperationManager) Current() *Operation {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.currentOp
}

// CancelRunning cancels the current operation, if any. The operation still has to return
// and call its done function before a new one may start.
func (sm *SingleOperationManager) CancelRunning() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.currentOp != nil {
		sm.currentOp.Cancel()
	}
}
