// Copyright 2016 CoreOS, Inc
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lifecycle coordinates shutdown of the concurrent per-file
// decompression jobs the CLI fans out, so a SIGINT can drain in-flight
// writers, log which sources are still draining, and clean up any output
// file a cancellation left incomplete.
package lifecycle

import (
	"sync"

	"github.com/inflatehq/gzinflate/capnslog"
)

var plog = capnslog.NewPackageLogger("github.com/inflatehq/gzinflate", "lifecycle")

// AlreadyDone is a pre-closed channel for jobs that finished before being
// asked to stop.
var AlreadyDone <-chan struct{}

func init() {
	closeMe := make(chan struct{})
	close(closeMe)
	AlreadyDone = closeMe
}

// Stoppable is any job that can be asked to stop; the returned channel
// closes once the job has actually finished.
type Stoppable interface {
	Stop() <-chan struct{}
}

// StopperFunc is an alternative to implementing Stoppable.
type StopperFunc func() <-chan struct{}

// job is one registered source file: its stop callback, the name that
// identifies it in Stop's log line, and an optional cleanup run once the
// job has actually finished.
type job struct {
	name    string
	stop    StopperFunc
	cleanup func()
}

// Group tracks every file decompression job registered for a single CLI
// invocation so they can all be stopped together, e.g. from a
// signal.Notify handler, with named jobs reported in the log and any
// cleanup (such as removing a partially-written output file) run once a
// job's stop channel closes.
type Group struct {
	mu   sync.Mutex
	jobs []job
}

// NewGroup returns an empty Group.
func NewGroup() *Group {
	return &Group{}
}

// Add registers a named job.
func (g *Group) Add(name string, s Stoppable) {
	g.AddFunc(name, s.Stop)
}

// AddFunc registers a named stop callback directly.
func (g *Group) AddFunc(name string, stop StopperFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.jobs = append(g.jobs, job{name: name, stop: stop})
}

// AddCleanup is like AddFunc, but also registers cleanup to run once the
// job's stop channel closes. The CLI uses this to delete an output file
// that a SIGINT interrupted mid-write, rather than leaving a truncated
// decompression result on disk; cleanup is a no-op to skip removal (e.g.
// when the job finished successfully before Stop was ever called).
func (g *Group) AddCleanup(name string, stop StopperFunc, cleanup func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.jobs = append(g.jobs, job{name: name, stop: stop, cleanup: cleanup})
}

// Stop asks every registered job to stop and returns a channel that closes
// once they have all finished and any registered cleanup has run.
func (g *Group) Stop() <-chan struct{} {
	g.mu.Lock()
	jobs := g.jobs
	g.jobs = nil
	g.mu.Unlock()

	done := make(chan struct{})
	if len(jobs) == 0 {
		close(done)
		return done
	}

	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.name
	}
	plog.Noticef("waiting for %d job(s) to drain: %v", len(jobs), names)

	type pending struct {
		name    string
		wait    <-chan struct{}
		cleanup func()
	}
	pendings := make([]pending, len(jobs))
	for i, j := range jobs {
		waitFor := j.stop()
		if waitFor == nil {
			panic("lifecycle: Stop returned a nil channel")
		}
		pendings[i] = pending{name: j.name, wait: waitFor, cleanup: j.cleanup}
	}

	go func() {
		for _, p := range pendings {
			<-p.wait
			if p.cleanup != nil {
				plog.Infof("cleaning up job %s", p.name)
				p.cleanup()
			}
		}
		close(done)
	}()
	return done
}
