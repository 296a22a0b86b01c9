/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package resources

import (
	"sync"

	"github.com/bytedance/gopkg/util/gopool"
)

// Pool runs resource trials concurrently. Trials only read the model and
// the committed usage, so they can proceed in parallel.
type Pool struct {
	pool    gopool.Pool
	workers int
}

func NewPool(workers int) *Pool {
	if workers <= 1 {
		return &Pool{workers: 1}
	}
	return &Pool{
		pool:    gopool.NewPool("tableplace-trials", int32(workers), gopool.NewConfig()),
		workers: workers,
	}
}

func (self *Pool) Workers() int {
	return self.workers
}

// TrialAll tries every request against the same committed usage and returns
// the trials in request order. A panic in any trial is re-raised here.
func (self *Pool) TrialAll(m *Model, committed Usage, reqs []Request) []Trial {
	ret := make([]Trial, len(reqs))
	if self.pool == nil || len(reqs) < 2 {
		for i, r := range reqs {
			ret[i] = m.Try(committed, r)
		}
		return ret
	}

	wg := sync.WaitGroup{}
	errs := make([]interface{}, len(reqs))
	wg.Add(len(reqs))

	/* each trial writes its own slot only */
	for i := range reqs {
		i := i
		self.pool.Go(func() {
			defer wg.Done()
			defer func() { errs[i] = recover() }()
			ret[i] = m.Try(committed, reqs[i])
		})
	}

	wg.Wait()
	for _, e := range errs {
		if e != nil {
			panic(e)
		}
	}
	return ret
}
