package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/morpheus/pkg/scene"
)

// DefaultTimeout is the limit for a single evaluation unless the engine is
// configured otherwise.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when an evaluation runs past its limit.
	ErrTimeout = errors.New("engine: evaluation timed out")
	// ErrSuperseded is returned when a newer evaluation started while this
	// one was running.
	ErrSuperseded = errors.New("engine: evaluation superseded by newer request")
)

// evalResult passes evaluation results through channels.
type evalResult struct {
	scene  *scene.Scene
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, but returns ErrTimeout if the
// evaluation exceeds timeout. It uses a generation counter to discard stale
// results from previous evaluations.
//
// On timeout, the goroutine may still be running; the generation check
// ensures its result is discarded when it eventually completes.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
	timeout time.Duration,
) (*scene.Scene, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, ErrSuperseded
		}
		return res.scene, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
