// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package validationpool implements the node's block-validation worker
// pool: a fixed set of goroutines that run PartialValidation concurrently
// across independent blocks (spec §5: "one block-validation worker pool
// for Partial validation; work items are independent and may run
// concurrently"). It is built on asyncprovider.Provider the same way
// every other background task in the node is, rather than introducing a
// second concurrency primitive for one subsystem.
package validationpool

import (
	"sync"

	"github.com/xds-project/xdsd/asyncprovider"
)

// Job is one unit of Partial-validation work. Run performs the check;
// Done, if set, is called with its result once Run returns. Run must not
// touch any state another Job's Run might mutate concurrently — the pool
// makes no ordering guarantee between jobs.
type Job struct {
	Run  func() error
	Done func(err error)
}

// Pool runs a fixed number of worker goroutines draining Job values from
// a shared queue until its NodeLifetime is cancelled.
type Pool struct {
	jobs chan Job
}

// New starts workerCount goroutines under provider, each pulling jobs
// from the pool's queue until the provider's lifetime is cancelled or the
// pool is closed. queueDepth bounds how many submitted jobs may be
// buffered before Submit blocks.
func New(provider *asyncprovider.Provider, workerCount, queueDepth int) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueDepth <= 0 {
		queueDepth = workerCount
	}
	p := &Pool{jobs: make(chan Job, queueDepth)}
	for i := 0; i < workerCount; i++ {
		provider.Go(p.runWorker)
	}
	return p
}

func (p *Pool) runWorker(lifetime *asyncprovider.NodeLifetime) {
	for {
		select {
		case <-lifetime.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			err := job.Run()
			if job.Done != nil {
				job.Done(err)
			}
		}
	}
}

// Submit enqueues job, blocking if the queue is full. It panics if called
// after Close.
func (p *Pool) Submit(job Job) {
	p.jobs <- job
}

// SubmitAndWait runs job synchronously from the caller's perspective: it
// submits the job and blocks until its Run has completed, returning the
// error Run produced. Useful for callers that need the result inline
// (e.g. a single-block IBD catch-up path) while still sharing the pool's
// worker budget with concurrent multi-block validation.
func (p *Pool) SubmitAndWait(run func() error) error {
	var wg sync.WaitGroup
	var result error
	wg.Add(1)
	p.Submit(Job{
		Run: run,
		Done: func(err error) {
			result = err
			wg.Done()
		},
	})
	wg.Wait()
	return result
}

// Close stops accepting new jobs. Workers drain whatever remains queued
// and exit once it is empty or their lifetime is cancelled.
func (p *Pool) Close() {
	close(p.jobs)
}
