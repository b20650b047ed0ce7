//
// Copyright 2023 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package sacofa implements the differentially private trace-variant query:
// a breadth-first exploration of the prefix tree over the trace variants of
// an event log, guided by noisy support counts.
//
// At every tree level each live prefix asks, for its most frequent candidate
// continuations, how many traces carry the extended prefix; the counts are
// perturbed with Laplace noise and only continuations whose noisy support
// reaches the pruning threshold k stay in the tree. Within a level each
// trace contributes to exactly one count, so a level costs its per-level ε
// once, and sequential composition over levels bounds the whole exploration
// by the configured ε.
package sacofa

import (
	"fmt"
	"sort"

	log "github.com/golang/glog"

	"github.com/google/differential-privacy/privlog/checks"
	"github.com/google/differential-privacy/privlog/eventlog"
	"github.com/google/differential-privacy/privlog/noise"
	"github.com/google/differential-privacy/privlog/rand"
)

// LevelSchedule selects how the exploration budget is split across tree
// levels.
type LevelSchedule int

const (
	// ScheduleUniform gives every level the same share of the budget.
	ScheduleUniform LevelSchedule = iota
	// ScheduleGeometric halves the share from level to level (normalized to
	// the depth bound), spending more budget where prefixes are short and
	// populations large.
	ScheduleGeometric
)

// ExplorerOptions contains the options necessary to initialize an Explorer.
type ExplorerOptions struct {
	// Epsilon is the privacy budget of the exploration. Required.
	Epsilon float64
	// MinSupport is the pruning threshold k: a prefix is only expanded while
	// its noisy support stays at or above it. Required, at least 1.
	MinSupport int64
	// CandidateBound is the bound p on how many candidate continuations are
	// counted per prefix. Defaults to 1.
	CandidateBound int64
	// MaxDepth bounds the exploration depth. 0 derives the bound from the
	// longest input trace.
	MaxDepth int
	// LevelSchedule splits Epsilon across levels. Defaults to ScheduleUniform.
	LevelSchedule LevelSchedule
	// Rand is the randomness source feeding the noise. Defaults to a secure
	// source; inject a seeded source for reproducible runs.
	Rand *rand.Source
}

// Explorer runs the differentially private trace-variant query.
// Single-use: one Explore call per instance. Not thread-safe.
type Explorer struct {
	epsilon  float64
	k        int64
	p        int64
	maxDepth int
	schedule LevelSchedule
	src      *rand.Source

	explored         bool
	expandedPerLevel []int
}

// NewExplorer validates the options and returns an Explorer.
func NewExplorer(opt *ExplorerOptions) (*Explorer, error) {
	if opt == nil {
		opt = &ExplorerOptions{}
	}
	if err := checks.CheckEpsilonStrict(opt.Epsilon); err != nil {
		return nil, err
	}
	if err := checks.CheckMinSupport(opt.MinSupport); err != nil {
		return nil, err
	}
	p := opt.CandidateBound
	if p == 0 {
		p = 1
	}
	if err := checks.CheckCandidateBound(p); err != nil {
		return nil, err
	}
	if err := checks.CheckMaxDepth(opt.MaxDepth); err != nil {
		return nil, err
	}
	if opt.LevelSchedule != ScheduleUniform && opt.LevelSchedule != ScheduleGeometric {
		return nil, fmt.Errorf("LevelSchedule is %d, must be ScheduleUniform or ScheduleGeometric", opt.LevelSchedule)
	}
	src := opt.Rand
	if src == nil {
		src = rand.NewSecureSource()
	}
	return &Explorer{
		epsilon:  opt.Epsilon,
		k:        opt.MinSupport,
		p:        p,
		maxDepth: opt.MaxDepth,
		schedule: opt.LevelSchedule,
		src:      src,
	}, nil
}

// node is one prefix in the arena-backed tree. Expansion is strictly
// top-down over child index lists; the parent index only serves to rebuild
// the activity sequence when a prefix is published.
type node struct {
	label      string
	parent     int
	depth      int
	noisyCount float64
	// traces indexes the input traces carrying this prefix.
	traces   []int
	children []int
}

// candidate is one possible continuation of a live prefix.
type candidate struct {
	label  string
	traces []int
}

// Explore runs the exploration over the log and returns the published
// trace-variant query result. An empty log yields an empty result.
// The method can be called only once.
func (e *Explorer) Explore(l *eventlog.Log) (*eventlog.VariantResult, error) {
	if e.explored {
		log.Fatalf("The exploration has already been run. An Explorer cannot be reused.")
	}
	e.explored = true

	result := eventlog.NewVariantResult(e.epsilon)
	if l.Empty() {
		return result, nil
	}

	maxDepth := e.maxDepth
	if maxDepth == 0 {
		maxDepth = l.MaxTraceLength()
	}
	levelEpsilons := e.levelEpsilons(maxDepth)

	arena := []node{{parent: -1, depth: 0, traces: traceIndices(l)}}
	frontier := []int{0}
	e.expandedPerLevel = make([]int, 0, maxDepth)

	for level := 1; level <= maxDepth && len(frontier) > 0; level++ {
		epsLevel := levelEpsilons[level-1]
		var nextFrontier []int
		for _, idx := range frontier {
			expanded, err := e.expand(l, &arena, idx, epsLevel, result)
			if err != nil {
				return nil, err
			}
			nextFrontier = append(nextFrontier, expanded...)
		}
		e.expandedPerLevel = append(e.expandedPerLevel, len(nextFrontier))
		frontier = nextFrontier
	}

	// Prefixes still live at the depth bound cannot grow further; they are
	// finalized as complete variants with their admitted noisy support.
	for _, idx := range frontier {
		n := arena[idx]
		result.Set(variantOf(arena, idx), n.noisyCount)
	}
	return result, nil
}

// expand processes one live prefix: counts its candidate continuations and
// trace endings, perturbs the counts with the level budget, appends the
// surviving children to the arena and publishes the prefix as a complete
// variant where the pruning policy says so. It returns the arena indices of
// the surviving children.
func (e *Explorer) expand(l *eventlog.Log, arena *[]node, idx int, epsLevel float64, result *eventlog.VariantResult) ([]int, error) {
	n := (*arena)[idx]
	continuations, ends := continuationsOf(l, n)

	// Only the p most frequent observed continuations get a noisy count;
	// a continuation no trace has is never considered, so a path with a
	// deterministically zero count cannot enter the tree.
	sort.Slice(continuations, func(i, j int) bool {
		if len(continuations[i].traces) != len(continuations[j].traces) {
			return len(continuations[i].traces) > len(continuations[j].traces)
		}
		return continuations[i].label < continuations[j].label
	})
	if int64(len(continuations)) > e.p {
		continuations = continuations[:e.p]
	}

	var survivors []int
	for _, c := range continuations {
		noisy, err := noise.Laplace(e.src, float64(len(c.traces)), 1, epsLevel)
		if err != nil {
			return nil, err
		}
		if noisy < float64(e.k) {
			continue
		}
		*arena = append(*arena, node{
			label:      c.label,
			parent:     idx,
			depth:      n.depth + 1,
			noisyCount: noisy,
			traces:     c.traces,
		})
		child := len(*arena) - 1
		(*arena)[idx].children = append((*arena)[idx].children, child)
		survivors = append(survivors, child)
	}

	published := false
	if len(ends) > 0 && n.depth > 0 {
		// Traces that stop exactly at this prefix form the end-of-trace
		// pseudo candidate of the level; if its noisy support clears k, the
		// prefix is published as a complete variant even though longer
		// variants may extend it.
		noisy, err := noise.Laplace(e.src, float64(len(ends)), 1, epsLevel)
		if err != nil {
			return nil, err
		}
		if noisy >= float64(e.k) {
			result.Set(variantOf(*arena, idx), noisy)
			published = true
		}
	}
	if len(survivors) == 0 && !published && n.depth > 0 {
		// No continuation survived: the prefix is finalized as a complete
		// variant with the noisy support that admitted it.
		result.Set(variantOf(*arena, idx), n.noisyCount)
	}
	return survivors, nil
}

// continuationsOf groups the prefix's traces by their next activity;
// traces ending at the prefix are returned separately.
func continuationsOf(l *eventlog.Log, n node) ([]candidate, []int) {
	byLabel := make(map[string]*candidate)
	var order []string
	var ends []int
	for _, ti := range n.traces {
		events := l.Traces[ti].Events
		if len(events) <= n.depth {
			ends = append(ends, ti)
			continue
		}
		label := events[n.depth].Activity
		c, ok := byLabel[label]
		if !ok {
			c = &candidate{label: label}
			byLabel[label] = c
			order = append(order, label)
		}
		c.traces = append(c.traces, ti)
	}
	sort.Strings(order)
	continuations := make([]candidate, 0, len(order))
	for _, label := range order {
		continuations = append(continuations, *byLabel[label])
	}
	return continuations, ends
}

// variantOf reconstructs the activity sequence of the node by walking the
// parent chain to the root.
func variantOf(arena []node, idx int) eventlog.Variant {
	v := make(eventlog.Variant, arena[idx].depth)
	for i := idx; arena[i].depth > 0; i = arena[i].parent {
		v[arena[i].depth-1] = arena[i].label
	}
	return v
}

// ExpandedPrefixes returns, per level, how many prefixes survived pruning.
// Only valid after Explore.
func (e *Explorer) ExpandedPrefixes() []int {
	return append([]int(nil), e.expandedPerLevel...)
}

// levelEpsilons splits the exploration budget across maxDepth levels
// according to the configured schedule. The shares always sum to the total.
func (e *Explorer) levelEpsilons(maxDepth int) []float64 {
	eps := make([]float64, maxDepth)
	switch e.schedule {
	case ScheduleGeometric:
		weight := 1.0
		total := 0.0
		for i := range eps {
			eps[i] = weight
			total += weight
			weight /= 2
		}
		for i := range eps {
			eps[i] = e.epsilon * eps[i] / total
		}
	default:
		for i := range eps {
			eps[i] = e.epsilon / float64(maxDepth)
		}
	}
	return eps
}

func traceIndices(l *eventlog.Log) []int {
	indices := make([]int, l.Len())
	for i := range indices {
		indices[i] = i
	}
	return indices
}
