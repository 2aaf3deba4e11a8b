// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package callframe is spec.md §4.5's call-frame handler: the entry point
// for every nested and top-level call, responsible for looking up or
// building a compiled artifact per code hash, constructing a RuntimeContext,
// running it, and marshaling the result back to the caller.
package callframe

import (
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/vmlayer/engine/ir"
	"github.com/vmlayer/engine/metrics"
	"github.com/vmlayer/engine/primitives"
)

// Artifact is the compiled unit installed under a code hash: the lowered
// Module plus the bytecode kind it was built from (spec.md §3 "Artifact").
// There is no native code generation in this engine (see SPEC_FULL.md §1.1),
// so the "artifact" is simply the ir.Module interp walks directly.
type Artifact struct {
	Module *ir.Module
	IsEOF  bool
}

// ArtifactCache memoizes Artifact-building per code hash on top of a
// database-backed, cross-process cache: an in-process bounded LRU absorbs
// the common case, and a singleflight.Group collapses concurrent builds of
// the same hash into one (spec.md §5 "Shared resources... implementations
// may serialize cache inserts; reads are safe at any time because an
// installed artifact is immutable").
type ArtifactCache struct {
	lru    *lru.Cache
	flight singleflight.Group

	hits   metrics.CounterMeter
	misses metrics.CounterMeter
}

// NewArtifactCache builds a cache holding up to size compiled artifacts
// in-process; size <= 0 defaults to a reasonable bound rather than failing,
// since a misconfigured size should not take the whole engine down.
func NewArtifactCache(size int) *ArtifactCache {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New(size)
	if err != nil {
		// lru.New only fails for size <= 0, already guarded above.
		panic(err)
	}
	return &ArtifactCache{
		lru:    c,
		hits:   metrics.Counter("artifact_cache_hits_total"),
		misses: metrics.Counter("artifact_cache_misses_total"),
	}
}

// GetOrBuild returns the cached Artifact for codeHash, building it with
// build if absent. Concurrent callers requesting the same hash share one
// build (collapsed by singleflight); the result is cached in-process and,
// for embedders whose Database persists artifacts across process restarts,
// in db as well.
func (c *ArtifactCache) GetOrBuild(db artifactStore, codeHash primitives.Hash, build func() (*Artifact, error)) (*Artifact, error) {
	if v, ok := c.lru.Get(codeHash); ok {
		c.hits.Add(1)
		return v.(*Artifact), nil
	}
	if raw, ok := db.GetArtifact(codeHash); ok {
		if a, ok := raw.(*Artifact); ok {
			c.hits.Add(1)
			c.lru.Add(codeHash, a)
			return a, nil
		}
	}
	c.misses.Add(1)
	v, err, _ := c.flight.Do(string(codeHash[:]), func() (any, error) {
		a, err := build()
		if err != nil {
			return nil, err
		}
		c.lru.Add(codeHash, a)
		db.SetArtifact(codeHash, a)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Artifact), nil
}

// artifactStore is the slice of state.Database the cache needs; declared
// locally so this file doesn't import state just for the parameter type.
type artifactStore interface {
	GetArtifact(codeHash primitives.Hash) (any, bool)
	SetArtifact(codeHash primitives.Hash, artifact any)
}
