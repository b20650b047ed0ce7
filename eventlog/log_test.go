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

package eventlog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func traceOf(caseID string, activities ...string) Trace {
	events := make([]Event, len(activities))
	for i, a := range activities {
		events[i] = Event{Activity: a}
	}
	return Trace{CaseID: caseID, Events: events}
}

func TestTraceVariant(t *testing.T) {
	tr := traceOf("c1", "A", "B", "C")
	if diff := cmp.Diff(Variant{"A", "B", "C"}, tr.Variant()); diff != "" {
		t.Errorf("Variant() mismatch (-want +got):\n%s", diff)
	}
	if got := (Trace{}).Variant(); len(got) != 0 {
		t.Errorf("Variant() of empty trace = %v, want empty", got)
	}
}

func TestLogHelpers(t *testing.T) {
	l := &Log{Traces: []Trace{
		traceOf("c1", "B", "A"),
		traceOf("c2", "A", "C", "A"),
	}}
	if got, want := l.Len(), 2; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
	if l.Empty() {
		t.Errorf("Empty() = true, want false")
	}
	if got, want := l.MaxTraceLength(), 3; got != want {
		t.Errorf("MaxTraceLength() = %d, want %d", got, want)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, l.ActivityAlphabet()); diff != "" {
		t.Errorf("ActivityAlphabet() mismatch (-want +got):\n%s", diff)
	}

	empty := &Log{}
	if !empty.Empty() || empty.MaxTraceLength() != 0 || len(empty.ActivityAlphabet()) != 0 {
		t.Errorf("empty log helpers returned non-empty results")
	}
}

func TestAttributeDomainsAndMarginals(t *testing.T) {
	l := &Log{Traces: []Trace{
		{CaseID: "c1", Events: []Event{
			{Activity: "A", Attributes: map[string]Value{"cost": NumericValue(5), "team": CategoricalValue("gold")}},
			{Activity: "B", Attributes: map[string]Value{"cost": NumericValue(5)}},
		}},
		{CaseID: "c2", Events: []Event{
			{Activity: "A", Attributes: map[string]Value{"cost": NumericValue(3), "team": CategoricalValue("silver")}},
		}},
	}}

	marginals := l.AttributeMarginals()
	if got, want := len(marginals["cost"]), 3; got != want {
		t.Errorf("marginal of cost has %d values, want %d (a multiset, duplicates kept)", got, want)
	}

	domains := l.AttributeDomains()
	wantCost := []Value{NumericValue(3), NumericValue(5)}
	if diff := cmp.Diff(wantCost, domains["cost"], cmp.AllowUnexported(Value{})); diff != "" {
		t.Errorf("domain of cost mismatch (-want +got):\n%s", diff)
	}
	wantTeam := []Value{CategoricalValue("gold"), CategoricalValue("silver")}
	if diff := cmp.Diff(wantTeam, domains["team"], cmp.AllowUnexported(Value{})); diff != "" {
		t.Errorf("domain of team mismatch (-want +got):\n%s", diff)
	}
}

func TestEventCloneIsIndependent(t *testing.T) {
	e := Event{Activity: "A", Attributes: map[string]Value{"cost": NumericValue(1)}}
	c := e.Clone()
	c.Attributes["cost"] = NumericValue(2)
	if got, _ := e.Attributes["cost"].Numeric(); got != 1 {
		t.Errorf("mutating the clone changed the original: cost = %f, want 1", got)
	}
}

func TestVariantKeyRoundTrip(t *testing.T) {
	for _, v := range []Variant{
		{},
		{"A"},
		{"A", "B", "C"},
		{"register request", "decide", "pay compensation"},
	} {
		got := ParseVariantKey(v.Key())
		if !got.Equal(v) {
			t.Errorf("ParseVariantKey(Key(%v)) = %v, want round trip", v, got)
		}
	}
}

func TestVariantLess(t *testing.T) {
	for _, tc := range []struct {
		a, b Variant
		want bool
	}{
		{Variant{"A"}, Variant{"B"}, true},
		{Variant{"B"}, Variant{"A"}, false},
		{Variant{"A"}, Variant{"A", "B"}, true},
		{Variant{"A", "B"}, Variant{"A"}, false},
		{Variant{"A"}, Variant{"A"}, false},
	} {
		if got := tc.a.Less(tc.b); got != tc.want {
			t.Errorf("%v.Less(%v) = %t, want %t", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestNewCaseIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewCaseID()
		if seen[id] {
			t.Fatalf("NewCaseID returned duplicate %q", id)
		}
		seen[id] = true
	}
}
