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
	"encoding/json"
	"fmt"
	"sort"
)

// VariantResult is the trace-variant query result: the published mapping
// from complete trace variants to noisy frequencies. As a whole it satisfies
// ε-differential privacy for the recorded epsilon, and being pure output it
// may be persisted and reused across anonymization runs with fresh
// sub-budgets.
//
// Frequencies are non-negative but need not sum to the size of the
// originating log.
type VariantResult struct {
	epsilon float64
	freqs   map[string]float64
}

// NewVariantResult returns an empty result labeled with the epsilon its
// contents will satisfy.
func NewVariantResult(epsilon float64) *VariantResult {
	return &VariantResult{
		epsilon: epsilon,
		freqs:   make(map[string]float64),
	}
}

// Epsilon returns the privacy budget the result satisfies.
func (r *VariantResult) Epsilon() float64 {
	return r.epsilon
}

// Set records a noisy frequency for the variant. Negative frequencies are
// clamped to 0: the mapping is a published artifact and publishes only
// non-negative weights (clamping published output is post-processing and
// costs no privacy).
func (r *VariantResult) Set(v Variant, frequency float64) {
	if frequency < 0 {
		frequency = 0
	}
	r.freqs[v.Key()] = frequency
}

// Get returns the noisy frequency of the variant and whether it is present.
func (r *VariantResult) Get(v Variant) (float64, bool) {
	f, ok := r.freqs[v.Key()]
	return f, ok
}

// Len returns the number of published variants.
func (r *VariantResult) Len() int {
	return len(r.freqs)
}

// Empty reports whether no variants were published.
func (r *VariantResult) Empty() bool {
	return len(r.freqs) == 0
}

// Variants returns the published variants in lexicographic order. The order
// is the deterministic basis for proportional sampling.
func (r *VariantResult) Variants() []Variant {
	variants := make([]Variant, 0, len(r.freqs))
	for key := range r.freqs {
		variants = append(variants, ParseVariantKey(key))
	}
	sort.Slice(variants, func(i, j int) bool { return variants[i].Less(variants[j]) })
	return variants
}

// TotalWeight returns the sum of all published frequencies.
func (r *VariantResult) TotalWeight() float64 {
	total := 0.0
	for _, f := range r.freqs {
		total += f
	}
	return total
}

// jsonVariantResult is the wire form: a sorted array keeps the artifact
// byte-stable across runs.
type jsonVariantResult struct {
	Epsilon  float64            `json:"epsilon"`
	Variants []jsonVariantEntry `json:"variants"`
}

type jsonVariantEntry struct {
	Activities []string `json:"activities"`
	Frequency  float64  `json:"frequency"`
}

// MarshalJSON encodes the result as a sorted variant array.
func (r *VariantResult) MarshalJSON() ([]byte, error) {
	out := jsonVariantResult{Epsilon: r.epsilon, Variants: []jsonVariantEntry{}}
	for _, v := range r.Variants() {
		f, _ := r.Get(v)
		out.Variants = append(out.Variants, jsonVariantEntry{Activities: v, Frequency: f})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the sorted variant array form.
func (r *VariantResult) UnmarshalJSON(data []byte) error {
	var in jsonVariantResult
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	decoded := NewVariantResult(in.Epsilon)
	for _, e := range in.Variants {
		if e.Frequency < 0 {
			return fmt.Errorf("variant %v has negative frequency %f", e.Activities, e.Frequency)
		}
		decoded.Set(Variant(e.Activities), e.Frequency)
	}
	*r = *decoded
	return nil
}
