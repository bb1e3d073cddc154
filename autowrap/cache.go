// Copyright 2026 symforge Authors
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

package autowrap

import (
	"container/list"
	"sync"
)

// artifactCache is a bounded LRU over built artifacts keyed by
// fingerprint. Evicted artifacts are closed and their files removed;
// callers must not hold a Callable across an eviction of its artifact,
// which in practice means sizing the cache to the working set.
type artifactCache struct {
	mu    sync.Mutex
	max   int
	ll    *list.List
	items map[string]*list.Element
}

type cacheEntry struct {
	fp string
	a  *Artifact
}

func newArtifactCache(max int) *artifactCache {
	return &artifactCache{
		max:   max,
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *artifactCache) get(fp string) (*Artifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[fp]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).a, true
}

func (c *artifactCache) put(fp string, a *Artifact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[fp]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*cacheEntry).a = a
		return
	}
	c.items[fp] = c.ll.PushFront(&cacheEntry{fp: fp, a: a})
	for c.max > 0 && c.ll.Len() > c.max {
		c.evictOldest()
	}
}

func (c *artifactCache) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	ent := el.Value.(*cacheEntry)
	c.ll.Remove(el)
	delete(c.items, ent.fp)
	debugf("evicting artifact %s", ent.fp[:12])
	ent.a.remove()
}

// drop evicts one fingerprint; reports whether it was cached.
func (c *artifactCache) drop(fp string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[fp]
	if !ok {
		return false
	}
	ent := el.Value.(*cacheEntry)
	c.ll.Remove(el)
	delete(c.items, ent.fp)
	ent.a.remove()
	return true
}

// len reports the number of cached artifacts.
func (c *artifactCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// close evicts everything.
func (c *artifactCache) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.ll.Len() > 0 {
		c.evictOldest()
	}
}
