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

package budget

import (
	"errors"
	"math"
	"testing"
)

func TestNewAllocatorArgumentChecks(t *testing.T) {
	for _, tc := range []struct {
		desc string
		opt  *AllocatorOptions
	}{
		{"nil options", nil},
		{"zero epsilon", &AllocatorOptions{Epsilon: 0}},
		{"negative epsilon", &AllocatorOptions{Epsilon: -1}},
		{"oversubscribed fractions", &AllocatorOptions{Epsilon: 1, Fractions: []float64{0.8, 0.8}}},
		{"zero fraction", &AllocatorOptions{Epsilon: 1, Fractions: []float64{0.5, 0}}},
	} {
		if _, err := NewAllocator(tc.opt); err == nil {
			t.Errorf("NewAllocator with %s: got nil error, want error", tc.desc)
		}
	}
}

func TestNextFollowsDeclaredFractions(t *testing.T) {
	a, err := NewAllocator(&AllocatorOptions{Epsilon: 2.0, Fractions: []float64{0.5, 0.25, 0.25}})
	if err != nil {
		t.Fatalf("NewAllocator: got err %v", err)
	}
	want := []float64{1.0, 0.5, 0.5}
	for i, w := range want {
		got, err := a.Next()
		if err != nil {
			t.Fatalf("Next (phase %d): got err %v", i, err)
		}
		if math.Abs(got-w) > 1e-12 {
			t.Errorf("Next (phase %d) = %f, want %f", i, got, w)
		}
	}
	if _, err := a.Next(); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("Next past declared phases: got %v, want ErrBudgetExhausted", err)
	}
}

func TestFractionRejectsOversubscription(t *testing.T) {
	a, err := NewAllocator(&AllocatorOptions{Epsilon: 1.0})
	if err != nil {
		t.Fatalf("NewAllocator: got err %v", err)
	}
	if _, err := a.Fraction(0.7); err != nil {
		t.Fatalf("Fraction(0.7): got err %v", err)
	}
	if _, err := a.Fraction(0.5); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("Fraction past total: got %v, want ErrBudgetExhausted", err)
	}
	// The rejected request must not have consumed anything.
	if got, want := a.Remaining(), 0.3; math.Abs(got-want) > 1e-12 {
		t.Errorf("Remaining after rejected request = %f, want %f", got, want)
	}
}

// The composition bound: however the budget is split, the handed-out shares
// never sum to more than the declared total.
func TestConsumedNeverExceedsTotal(t *testing.T) {
	for _, fractions := range [][]float64{
		{1.0},
		{0.5, 0.5},
		{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1},
		{0.3, 0.2},
	} {
		a, err := NewAllocator(&AllocatorOptions{Epsilon: 1.5, Fractions: fractions})
		if err != nil {
			t.Fatalf("NewAllocator(%v): got err %v", fractions, err)
		}
		sum := 0.0
		for range fractions {
			eps, err := a.Next()
			if err != nil {
				t.Fatalf("Next: got err %v", err)
			}
			sum += eps
		}
		if sum > a.Total()+1e-9 {
			t.Errorf("fractions %v: consumed %f, exceeds total %f", fractions, sum, a.Total())
		}
	}
}

func TestSplitUniform(t *testing.T) {
	shares, err := SplitUniform(1.0, 4)
	if err != nil {
		t.Fatalf("SplitUniform: got err %v", err)
	}
	sum := 0.0
	for _, s := range shares {
		if math.Abs(s-0.25) > 1e-12 {
			t.Errorf("share = %f, want 0.25", s)
		}
		sum += s
	}
	if math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("shares sum to %f, want 1.0", sum)
	}
	if _, err := SplitUniform(1.0, 0); err == nil {
		t.Errorf("SplitUniform with zero shares: got nil error, want error")
	}
}
