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

// Package pripel turns a published trace-variant query result into a full
// anonymized event log.
//
// For every original trace the engine picks a published variant, aligns the
// original activity sequence onto it, carries matched events' attributes
// forward, synthesizes placeholder events for inserted positions from the
// log-wide empirical marginals, and then perturbs every retained attribute
// value with the mechanism matching its type: additive Laplace noise for
// numeric values, randomized response for categorical and timestamp values.
// Traces are processed in parallel; each worker draws noise from its own
// randomness stream so that parallel perturbations stay independent.
package pripel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/google/differential-privacy/privlog/checks"
	"github.com/google/differential-privacy/privlog/eventlog"
	"github.com/google/differential-privacy/privlog/noise"
	"github.com/google/differential-privacy/privlog/rand"
)

// ErrNoVariantsAvailable is returned when the trace-variant query result is
// empty. Realignment cannot proceed without at least one published variant;
// silently producing an empty log would look like a valid anonymization
// without being one.
var ErrNoVariantsAvailable = errors.New("no published trace variants available")

// ErrUnsupportedAttributeType is returned when an attribute value has no
// matching perturbation strategy. Passing such a value through unperturbed
// would break the end-to-end privacy guarantee.
var ErrUnsupportedAttributeType = errors.New("unsupported attribute type")

// SelectionStrategy determines how a target variant is chosen per trace.
type SelectionStrategy int

const (
	// SelectProportional samples a variant with probability proportional to
	// its published noisy frequency.
	SelectProportional SelectionStrategy = iota
	// SelectNearest picks the variant with the smallest edit distance to the
	// original trace, breaking ties by lexicographically smaller sequence.
	SelectNearest
)

// UndeclaredAttributePolicy says what to do with an attribute no sensitivity
// was declared for.
type UndeclaredAttributePolicy int

const (
	// UndeclaredFail aborts the run. This is the default: an undeclared
	// attribute slipping through unperturbed would void the guarantee.
	UndeclaredFail UndeclaredAttributePolicy = iota
	// UndeclaredDrop removes the attribute from the output instead. An
	// explicit policy choice, logged per attribute name.
	UndeclaredDrop
)

// AttributeSpec declares how one event attribute is anonymized.
type AttributeSpec struct {
	// Sensitivity is the maximum change one individual's record can cause in
	// the attribute's value. Required, strictly positive.
	Sensitivity float64
	// Epsilon is the privacy budget spent on each value of this attribute.
	// Required, strictly positive.
	Epsilon float64
}

// AnonymizerOptions contains the options necessary to initialize an
// Anonymizer.
type AnonymizerOptions struct {
	// Variants is the published trace-variant query result. Required and
	// non-empty.
	Variants *eventlog.VariantResult
	// Strategy selects the variant per trace. Defaults to SelectProportional.
	Strategy SelectionStrategy
	// Attributes declares sensitivity and budget per attribute name.
	Attributes map[string]AttributeSpec
	// Undeclared is the policy for attributes without a declaration.
	// Defaults to UndeclaredFail.
	Undeclared UndeclaredAttributePolicy
	// Parallelism bounds the number of traces processed concurrently.
	// Defaults to GOMAXPROCS.
	Parallelism int
	// Rand seeds the per-worker randomness streams. Defaults to a secure
	// source; inject a seeded source for reproducible runs.
	Rand *rand.Source
}

// Anonymizer realigns and anonymizes traces against a fixed variant result.
// Safe for concurrent use once constructed: all state is read-only.
type Anonymizer struct {
	variants    []eventlog.Variant
	frequencies []float64
	totalWeight float64
	strategy    SelectionStrategy
	attributes  map[string]AttributeSpec
	undeclared  UndeclaredAttributePolicy
	parallelism int
	src         *rand.Source
}

// NewAnonymizer validates the options and returns an Anonymizer.
func NewAnonymizer(opt *AnonymizerOptions) (*Anonymizer, error) {
	if opt == nil {
		opt = &AnonymizerOptions{}
	}
	if opt.Variants == nil || opt.Variants.Empty() {
		return nil, ErrNoVariantsAvailable
	}
	if opt.Strategy != SelectProportional && opt.Strategy != SelectNearest {
		return nil, fmt.Errorf("Strategy is %d, must be SelectProportional or SelectNearest", opt.Strategy)
	}
	if opt.Undeclared != UndeclaredFail && opt.Undeclared != UndeclaredDrop {
		return nil, fmt.Errorf("Undeclared is %d, must be UndeclaredFail or UndeclaredDrop", opt.Undeclared)
	}
	for name, spec := range opt.Attributes {
		if err := checks.CheckSensitivity(spec.Sensitivity, fmt.Sprintf("Sensitivity of attribute %q", name)); err != nil {
			return nil, err
		}
		if err := checks.CheckEpsilonStrict(spec.Epsilon, fmt.Sprintf("Epsilon of attribute %q", name)); err != nil {
			return nil, err
		}
	}
	parallelism := opt.Parallelism
	if parallelism == 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	if parallelism < 1 {
		return nil, fmt.Errorf("Parallelism is %d, must be positive", opt.Parallelism)
	}
	src := opt.Rand
	if src == nil {
		src = rand.NewSecureSource()
	}

	// The published variants in their deterministic order, with clamped
	// weights; proportional sampling walks this cumulative order so that
	// equal weights resolve by sequence order.
	variants := opt.Variants.Variants()
	frequencies := make([]float64, len(variants))
	total := 0.0
	for i, v := range variants {
		f, _ := opt.Variants.Get(v)
		frequencies[i] = f
		total += f
	}

	attributes := make(map[string]AttributeSpec, len(opt.Attributes))
	for name, spec := range opt.Attributes {
		attributes[name] = spec
	}
	return &Anonymizer{
		variants:    variants,
		frequencies: frequencies,
		totalWeight: total,
		strategy:    opt.Strategy,
		attributes:  attributes,
		undeclared:  opt.Undeclared,
		parallelism: parallelism,
		src:         src,
	}, nil
}

// AnonymizeLog realigns and anonymizes every trace of the log and assembles
// the results into a fresh log. Traces keep their input order; case
// identifiers are replaced with fresh ones.
func (a *Anonymizer) AnonymizeLog(ctx context.Context, l *eventlog.Log) (*eventlog.Log, error) {
	marginals := newMarginals(l)

	out := make([]eventlog.Trace, l.Len())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)
	for i := range l.Traces {
		i := i
		// One forked stream per trace keeps the noise independent across
		// workers and the output reproducible under a fixed seed regardless
		// of goroutine scheduling.
		src := a.src.Fork(int64(i))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			trace, err := a.anonymizeTrace(src, l.Traces[i], marginals)
			if err != nil {
				return fmt.Errorf("trace %d: %w", i, err)
			}
			out[i] = trace
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &eventlog.Log{Traces: out}, nil
}

// anonymizeTrace produces one anonymized trace: variant selection,
// alignment, attribute carry-over and placeholder synthesis, then noise.
func (a *Anonymizer) anonymizeTrace(src *rand.Source, t eventlog.Trace, m *marginals) (eventlog.Trace, error) {
	orig := t.Variant()
	target := a.selectVariant(src, orig)
	alignment := Align(orig, target)

	events := make([]eventlog.Event, 0, len(target))
	for _, op := range alignment {
		switch op.Kind {
		case OpMatch:
			events = append(events, t.Events[op.OrigIndex].Clone())
		case OpInsert:
			events = append(events, m.placeholderEvent(src, target[op.VariantIndex]))
		case OpDelete:
			// Dropped together with its attributes.
		}
	}

	for i := range events {
		anonymized, err := a.anonymizeAttributes(src, events[i].Attributes, m)
		if err != nil {
			return eventlog.Trace{}, fmt.Errorf("event %d (%s): %w", i, events[i].Activity, err)
		}
		events[i].Attributes = anonymized
	}
	return eventlog.Trace{CaseID: eventlog.NewCaseID(), Events: events}, nil
}

// selectVariant picks the target variant for one original trace.
func (a *Anonymizer) selectVariant(src *rand.Source, orig eventlog.Variant) eventlog.Variant {
	if a.strategy == SelectNearest {
		best := 0
		bestDistance := editDistance(orig, a.variants[0])
		for i := 1; i < len(a.variants); i++ {
			if d := editDistance(orig, a.variants[i]); d < bestDistance {
				best, bestDistance = i, d
			}
		}
		return a.variants[best]
	}

	if a.totalWeight <= 0 {
		// Every published frequency was clamped to zero; fall back to a
		// uniform draw over the published variants.
		return a.variants[src.I63n(int64(len(a.variants)))]
	}
	u := src.Uniform() * a.totalWeight
	cumulative := 0.0
	for i, f := range a.frequencies {
		cumulative += f
		if u <= cumulative {
			return a.variants[i]
		}
	}
	return a.variants[len(a.variants)-1]
}

// anonymizeAttributes perturbs every attribute value with the strategy
// matching its kind.
func (a *Anonymizer) anonymizeAttributes(src *rand.Source, attrs map[string]eventlog.Value, m *marginals) (map[string]eventlog.Value, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	out := make(map[string]eventlog.Value, len(attrs))
	// Deterministic iteration keeps seeded runs reproducible.
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec, declared := a.attributes[name]
		if !declared {
			if a.undeclared == UndeclaredDrop {
				log.Warningf("dropping attribute %q: no sensitivity declared", name)
				continue
			}
			return nil, fmt.Errorf("attribute %q has no declared sensitivity", name)
		}
		anonymized, err := a.anonymizeValue(src, name, attrs[name], spec, m)
		if err != nil {
			if errors.Is(err, ErrUnsupportedAttributeType) && a.undeclared == UndeclaredDrop {
				log.Warningf("dropping attribute %q: %v", name, err)
				continue
			}
			return nil, err
		}
		out[name] = anonymized
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// anonymizeValue dispatches one value to the strategy of its kind.
func (a *Anonymizer) anonymizeValue(src *rand.Source, name string, v eventlog.Value, spec AttributeSpec, m *marginals) (eventlog.Value, error) {
	switch v.Kind() {
	case eventlog.Numeric:
		x, _ := v.Numeric()
		noised, err := noise.Laplace(src, x, spec.Sensitivity, spec.Epsilon)
		if err != nil {
			return eventlog.Value{}, err
		}
		return eventlog.NumericValue(noised), nil
	case eventlog.Categorical, eventlog.Timestamp:
		domain := m.domain(name, v.Kind())
		index := -1
		for i, d := range domain {
			if d.Equal(v) {
				index = i
				break
			}
		}
		if index < 0 {
			// The domains are built from the same log the values come from,
			// so a missing value means the input was mutated mid-run.
			return eventlog.Value{}, fmt.Errorf("attribute %q: value not in the empirical domain", name)
		}
		replacement, err := noise.RandomizedResponse(src, index, len(domain), spec.Epsilon)
		if err != nil {
			return eventlog.Value{}, err
		}
		return domain[replacement], nil
	}
	return eventlog.Value{}, fmt.Errorf("%w: attribute %q has kind %s", ErrUnsupportedAttributeType, name, v.Kind())
}

// marginals caches the log-wide empirical attribute statistics one
// anonymization run needs: the per-attribute value multisets placeholder
// events sample from, the per-kind distinct domains randomized response
// replaces within, and the attribute names carried by each activity.
type marginals struct {
	values            map[string][]eventlog.Value
	domainsByKind     map[string]map[eventlog.ValueKind][]eventlog.Value
	activityAttrNames map[string][]string
}

func newMarginals(l *eventlog.Log) *marginals {
	m := &marginals{
		values:            l.AttributeMarginals(),
		domainsByKind:     make(map[string]map[eventlog.ValueKind][]eventlog.Value),
		activityAttrNames: make(map[string][]string),
	}
	for name, domain := range l.AttributeDomains() {
		byKind := make(map[eventlog.ValueKind][]eventlog.Value)
		for _, v := range domain {
			byKind[v.Kind()] = append(byKind[v.Kind()], v)
		}
		m.domainsByKind[name] = byKind
	}
	seen := make(map[string]map[string]bool)
	for _, t := range l.Traces {
		for _, e := range t.Events {
			names, ok := seen[e.Activity]
			if !ok {
				names = make(map[string]bool)
				seen[e.Activity] = names
			}
			for name := range e.Attributes {
				names[name] = true
			}
		}
	}
	for activity, names := range seen {
		sorted := make([]string, 0, len(names))
		for name := range names {
			sorted = append(sorted, name)
		}
		sort.Strings(sorted)
		m.activityAttrNames[activity] = sorted
	}
	return m
}

// domain returns the distinct observed values of the attribute restricted to
// one kind.
func (m *marginals) domain(name string, kind eventlog.ValueKind) []eventlog.Value {
	return m.domainsByKind[name][kind]
}

// placeholderEvent synthesizes the event for an inserted alignment position.
// It carries the attributes that events with the same activity carry in the
// log, each value drawn from the log-wide marginal of the attribute rather
// than from the originating trace, so an insertion leaks nothing beyond what
// the published variant already does.
func (m *marginals) placeholderEvent(src *rand.Source, activity string) eventlog.Event {
	names := m.activityAttrNames[activity]
	if len(names) == 0 {
		return eventlog.Event{Activity: activity}
	}
	attrs := make(map[string]eventlog.Value, len(names))
	for _, name := range names {
		values := m.values[name]
		if len(values) == 0 {
			continue
		}
		attrs[name] = values[src.I63n(int64(len(values)))]
	}
	return eventlog.Event{Activity: activity, Attributes: attrs}
}
