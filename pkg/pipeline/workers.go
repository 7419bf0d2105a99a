package pipeline

import (
	"fmt"
	"runtime/debug"
	"time"
)

// pollInterval is how often pending workers are checked for completion.
const pollInterval = 10 * time.Millisecond

// unit is one worker with its one-shot result channel.
type unit[T any] struct {
	index int
	done  chan T
}

// runUnits starts one worker per index, at most limit at a time, and
// passes every result to collect as it arrives. collect runs on the
// calling goroutine. A panicking worker yields fail(i, err).
func runUnits[T any](n, limit int, work func(i int) T, fail func(i int, err error) T, collect func(i int, v T)) {
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	pending := make([]unit[T], n)
	for i := range n {
		u := unit[T]{index: i, done: make(chan T, 1)}
		pending[i] = u
		go func() {
			sem <- struct{}{}
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					u.done <- fail(i, fmt.Errorf("worker panic: %v\n%s", r, debug.Stack()))
				}
			}()
			u.done <- work(i)
		}()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for len(pending) > 0 {
		rest := pending[:0]
		for _, u := range pending {
			select {
			case v := <-u.done:
				collect(u.index, v)
			default:
				rest = append(rest, u)
			}
		}
		pending = rest
		if len(pending) > 0 {
			<-ticker.C
		}
	}
}
