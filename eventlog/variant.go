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

import "strings"

// variantKeySeparator joins activity labels into map keys. The ASCII unit
// separator cannot appear in sane activity labels, so the join is unambiguous.
const variantKeySeparator = "\x1f"

// Variant is the ordered activity-label sequence of a trace: the
// control-flow abstraction the explorer privatizes.
type Variant []string

// Key returns a string form of the variant usable as a map key.
func (v Variant) Key() string {
	return strings.Join(v, variantKeySeparator)
}

// ParseVariantKey is the inverse of Key.
func ParseVariantKey(key string) Variant {
	if key == "" {
		return Variant{}
	}
	return Variant(strings.Split(key, variantKeySeparator))
}

// Equal reports whether two variants are the same activity sequence.
func (v Variant) Equal(o Variant) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if v[i] != o[i] {
			return false
		}
	}
	return true
}

// Less orders variants lexicographically by activity sequence. It is the
// deterministic order used to resolve ties during variant selection.
func (v Variant) Less(o Variant) bool {
	for i := 0; i < len(v) && i < len(o); i++ {
		if v[i] != o[i] {
			return v[i] < o[i]
		}
	}
	return len(v) < len(o)
}
