// Copyright 2026 The dappsnode Authors
// This file is part of the dappsnode library.
//
// The dappsnode library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The dappsnode library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the dappsnode library. If not, see <http://www.gnu.org/licenses/>.

// Package reactor provides the shared task scheduler handle that asynchronous
// work (on-demand requests, content resolution) is spawned on.
package reactor

import (
	"context"
	"runtime"
	"sync"

	"github.com/JekaMas/workerpool"
	"github.com/ethereum/go-ethereum/log"
)

// Remote is a handle on a bounded pool of workers. It is safe for concurrent
// use and may be shared by any number of components.
type Remote struct {
	pool *workerpool.WorkerPool

	mu      sync.RWMutex
	stopped bool
}

// NewRemote creates a scheduler running at most workers tasks at once. A
// non-positive count defaults to the number of CPUs.
func NewRemote(workers int) *Remote {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	log.Debug("Started task scheduler", "workers", workers)
	return &Remote{pool: workerpool.New(workers)}
}

// Spawn queues task for execution. It reports false, dropping the task, if the
// scheduler has been stopped. Tasks must not wait on other spawned tasks: the
// worker they hold is the one the awaited task may be queued behind.
func (r *Remote) Spawn(task func()) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		return false
	}
	r.pool.Submit(context.Background(), func() error {
		task()
		return nil
	}, 0)
	return true
}

// Stop waits for queued tasks to finish and rejects any further ones.
func (r *Remote) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.pool.StopWait()
	log.Debug("Stopped task scheduler")
}
