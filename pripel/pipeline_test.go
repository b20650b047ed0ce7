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
	"errors"
	"fmt"
	"testing"

	"github.com/google/differential-privacy/privlog/eventlog"
)

func scenarioLog() *eventlog.Log {
	l := &eventlog.Log{}
	add := func(n int, costs []float64, activities ...string) {
		for i := 0; i < n; i++ {
			l.Traces = append(l.Traces, attrTrace(fmt.Sprintf("c%d-%d", len(l.Traces), i), activities, costs))
		}
	}
	add(10, []float64{10, 20, 30}, "A", "B", "C")
	add(5, []float64{40, 50, 60}, "A", "B", "D")
	return l
}

func TestRunEndToEnd(t *testing.T) {
	seed := int64(11)
	l := scenarioLog()
	out, variants, err := Run(context.Background(), l, &PipelineOptions{
		Epsilon:         100, // keeps the run stable enough to assert structure
		ExploreFraction: 0.5,
		MinSupport:      3,
		CandidateBound:  2,
		Sensitivities:   map[string]float64{"cost": 1},
		Seed:            &seed,
	})
	if err != nil {
		t.Fatalf("Run: got err %v", err)
	}
	if variants.Empty() {
		t.Fatalf("Run published no variants")
	}
	if got, want := out.Len(), l.Len(); got != want {
		t.Fatalf("anonymized log has %d traces, want %d", got, want)
	}
	for i, tr := range out.Traces {
		if _, ok := variants.Get(tr.Variant()); !ok {
			t.Errorf("trace %d has variant %v, not among the published variants", i, tr.Variant())
		}
		for j, e := range tr.Events {
			if _, ok := e.Attributes["cost"]; !ok {
				t.Errorf("trace %d event %d lost its cost attribute", i, j)
			}
		}
	}
}

func TestRunEmptyLogFailsWithNoVariantsAvailable(t *testing.T) {
	seed := int64(1)
	_, _, err := Run(context.Background(), &eventlog.Log{}, &PipelineOptions{
		Epsilon:    1,
		MinSupport: 2,
		Seed:       &seed,
	})
	if !errors.Is(err, ErrNoVariantsAvailable) {
		t.Errorf("Run on empty log: got %v, want ErrNoVariantsAvailable", err)
	}
}

func TestRunArgumentChecks(t *testing.T) {
	l := scenarioLog()
	for _, tc := range []struct {
		desc string
		opt  *PipelineOptions
	}{
		{"nil options", nil},
		{"zero epsilon", &PipelineOptions{MinSupport: 1}},
		{"zero min support", &PipelineOptions{Epsilon: 1}},
		{"explore fraction above one", &PipelineOptions{Epsilon: 1, MinSupport: 1, ExploreFraction: 1.5}},
	} {
		if _, _, err := Run(context.Background(), l, tc.opt); err == nil {
			t.Errorf("Run with %s: got nil error, want error", tc.desc)
		}
	}
}

func TestRunFullExploreFractionLeavesNoAttributeBudget(t *testing.T) {
	l := scenarioLog()
	_, _, err := Run(context.Background(), l, &PipelineOptions{
		Epsilon:         1,
		ExploreFraction: 1.0,
		MinSupport:      3,
		Sensitivities:   map[string]float64{"cost": 1},
	})
	if err == nil {
		t.Errorf("Run with the whole budget on exploration and declared attributes: got nil error, want error")
	}
}

func TestRunSeededIsReproducible(t *testing.T) {
	seed := int64(21)
	l := scenarioLog()
	run := func() (*eventlog.Log, *eventlog.VariantResult) {
		out, variants, err := Run(context.Background(), l, &PipelineOptions{
			Epsilon:        10,
			MinSupport:     3,
			CandidateBound: 2,
			Sensitivities:  map[string]float64{"cost": 1},
			Seed:           &seed,
		})
		if err != nil {
			t.Fatalf("Run: got err %v", err)
		}
		return out, variants
	}
	out1, variants1 := run()
	out2, variants2 := run()
	if variants1.Len() != variants2.Len() {
		t.Fatalf("seeded runs published %d and %d variants", variants1.Len(), variants2.Len())
	}
	for _, v := range variants1.Variants() {
		f1, _ := variants1.Get(v)
		f2, ok := variants2.Get(v)
		if !ok || f1 != f2 {
			t.Errorf("seeded runs disagree on variant %v: %f vs %f (present %t)", v, f1, f2, ok)
		}
	}
	for i := range out1.Traces {
		if !out1.Traces[i].Variant().Equal(out2.Traces[i].Variant()) {
			t.Errorf("trace %d: seeded runs realigned to %v and %v", i, out1.Traces[i].Variant(), out2.Traces[i].Variant())
		}
	}
}
