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

package pripel

import (
	"context"
	"fmt"

	"github.com/google/differential-privacy/privlog/budget"
	"github.com/google/differential-privacy/privlog/eventlog"
	"github.com/google/differential-privacy/privlog/rand"
	"github.com/google/differential-privacy/privlog/sacofa"
)

// PipelineOptions configures an end-to-end anonymization run.
type PipelineOptions struct {
	// Epsilon is the total privacy budget of the run. Required.
	Epsilon float64
	// ExploreFraction is the share of the budget spent on the trace-variant
	// query; the rest is split evenly across the declared attributes.
	// Defaults to 0.5.
	ExploreFraction float64
	// MinSupport is the exploration pruning threshold k. Required.
	MinSupport int64
	// CandidateBound is the per-prefix candidate bound p. Defaults to 1.
	CandidateBound int64
	// MaxDepth bounds the exploration depth; 0 derives it from the log.
	MaxDepth int
	// LevelSchedule splits the exploration budget across tree levels.
	LevelSchedule sacofa.LevelSchedule
	// Strategy selects the target variant per trace.
	Strategy SelectionStrategy
	// Sensitivities declares, per attribute name, the maximum change one
	// individual's record can cause in the attribute's value. Attributes
	// not listed here fall under the Undeclared policy.
	Sensitivities map[string]float64
	// Undeclared is the policy for attributes without a declared sensitivity.
	Undeclared UndeclaredAttributePolicy
	// Parallelism bounds concurrent trace processing; 0 means GOMAXPROCS.
	Parallelism int
	// Seed, when set, makes the whole run reproducible. Leave nil for
	// production runs so that noise comes from a secure source.
	Seed *int64
}

// Run executes the full pipeline over the log: budget allocation, the
// differentially private trace-variant query, and the PRIPEL realignment
// and attribute anonymization. It returns the anonymized log together with
// the variant query result, which can be persisted and reused.
func Run(ctx context.Context, l *eventlog.Log, opt *PipelineOptions) (*eventlog.Log, *eventlog.VariantResult, error) {
	if opt == nil {
		opt = &PipelineOptions{}
	}
	exploreFraction := opt.ExploreFraction
	if exploreFraction == 0 {
		exploreFraction = 0.5
	}

	allocator, err := budget.NewAllocator(&budget.AllocatorOptions{Epsilon: opt.Epsilon})
	if err != nil {
		return nil, nil, err
	}
	epsExplore, err := allocator.Fraction(exploreFraction)
	if err != nil {
		return nil, nil, err
	}

	src := rand.NewSecureSource()
	if opt.Seed != nil {
		src = rand.NewSeededSource(*opt.Seed)
	}

	explorer, err := sacofa.NewExplorer(&sacofa.ExplorerOptions{
		Epsilon:        epsExplore,
		MinSupport:     opt.MinSupport,
		CandidateBound: opt.CandidateBound,
		MaxDepth:       opt.MaxDepth,
		LevelSchedule:  opt.LevelSchedule,
		Rand:           src.Fork(-1),
	})
	if err != nil {
		return nil, nil, err
	}
	variants, err := explorer.Explore(l)
	if err != nil {
		return nil, nil, fmt.Errorf("variant exploration: %w", err)
	}

	attributes, err := attributeSpecs(allocator, exploreFraction, opt.Sensitivities)
	if err != nil {
		return nil, nil, err
	}
	anonymizer, err := NewAnonymizer(&AnonymizerOptions{
		Variants:    variants,
		Strategy:    opt.Strategy,
		Attributes:  attributes,
		Undeclared:  opt.Undeclared,
		Parallelism: opt.Parallelism,
		Rand:        src,
	})
	if err != nil {
		return nil, nil, err
	}
	anonymized, err := anonymizer.AnonymizeLog(ctx, l)
	if err != nil {
		return nil, nil, fmt.Errorf("realignment: %w", err)
	}
	return anonymized, variants, nil
}

// attributeSpecs splits the budget left after exploration evenly across the
// declared attributes.
func attributeSpecs(allocator *budget.Allocator, exploreFraction float64, sensitivities map[string]float64) (map[string]AttributeSpec, error) {
	if len(sensitivities) == 0 {
		return nil, nil
	}
	attrFraction := (1 - exploreFraction) / float64(len(sensitivities))
	specs := make(map[string]AttributeSpec, len(sensitivities))
	for name, sensitivity := range sensitivities {
		epsAttr, err := allocator.Fraction(attrFraction)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		specs[name] = AttributeSpec{Sensitivity: sensitivity, Epsilon: epsAttr}
	}
	return specs, nil
}
