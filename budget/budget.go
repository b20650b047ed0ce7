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

// Package budget tracks how a total differential privacy budget ε is split
// across the phases of the anonymization pipeline.
//
// Under sequential composition the privacy loss of a pipeline is the sum of
// the ε values its mechanisms consume, so the invariant the Allocator
// enforces is simple: the sum of the per-phase epsilons it hands out never
// exceeds the declared total.
package budget

import (
	"errors"
	"fmt"

	"github.com/google/differential-privacy/privlog/checks"
)

// ErrBudgetExhausted is returned when a phase requests more budget than the
// allocator has left. The run cannot continue: consuming budget beyond the
// declared total would void the claimed guarantee.
var ErrBudgetExhausted = errors.New("privacy budget exhausted")

// consumedTolerance absorbs floating point error when many small fractions
// are summed against the total.
const consumedTolerance = 1e-9

// AllocatorOptions contains the options necessary to initialize an Allocator.
type AllocatorOptions struct {
	// Epsilon is the total privacy budget of the run. Required.
	Epsilon float64
	// Fractions optionally pre-declares the per-phase split. When set, the
	// fractions must lie in (0, 1] and sum to at most 1, and phases draw
	// their shares in order via Next. When empty, phases draw explicit
	// shares via Fraction.
	Fractions []float64
}

// Allocator hands out per-phase epsilons from a fixed total.
// Not thread-safe.
type Allocator struct {
	total     float64
	fractions []float64
	next      int
	consumed  float64
}

// NewAllocator returns an Allocator for the given total budget.
func NewAllocator(opt *AllocatorOptions) (*Allocator, error) {
	if opt == nil {
		opt = &AllocatorOptions{}
	}
	if err := checks.CheckEpsilonStrict(opt.Epsilon); err != nil {
		return nil, err
	}
	if err := checks.CheckFractions(opt.Fractions); err != nil {
		return nil, err
	}
	return &Allocator{
		total:     opt.Epsilon,
		fractions: append([]float64(nil), opt.Fractions...),
	}, nil
}

// Total returns the declared total budget.
func (a *Allocator) Total() float64 {
	return a.total
}

// Remaining returns the budget not yet handed out.
func (a *Allocator) Remaining() float64 {
	r := a.total - a.consumed
	if r < 0 {
		return 0
	}
	return r
}

// Next returns the epsilon of the next pre-declared phase. It fails with
// ErrBudgetExhausted once all declared phases have drawn their share.
func (a *Allocator) Next() (float64, error) {
	if a.next >= len(a.fractions) {
		return 0, fmt.Errorf("%w: all %d declared phases have already drawn their share", ErrBudgetExhausted, len(a.fractions))
	}
	eps := a.total * a.fractions[a.next]
	a.next++
	a.consumed += eps
	return eps, nil
}

// Fraction hands out the given fraction of the total budget. It fails with
// ErrBudgetExhausted if the fraction would push the consumed budget past the
// total.
func (a *Allocator) Fraction(f float64) (float64, error) {
	if err := checks.CheckFraction(f); err != nil {
		return 0, err
	}
	eps := a.total * f
	if a.consumed+eps > a.total+consumedTolerance {
		return 0, fmt.Errorf("%w: requested %f of %f with only %f remaining", ErrBudgetExhausted, eps, a.total, a.Remaining())
	}
	a.consumed += eps
	return eps, nil
}

// SplitUniform splits epsilon into n equal shares. It is the allocation the
// explorer uses across tree levels when no decay schedule is configured.
func SplitUniform(epsilon float64, n int) ([]float64, error) {
	if err := checks.CheckEpsilonStrict(epsilon); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("number of shares is %d, must be at least 1", n)
	}
	shares := make([]float64, n)
	for i := range shares {
		shares[i] = epsilon / float64(n)
	}
	return shares, nil
}
