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
	"time"
)

// ValueKind enumerates the attribute value types the pipeline can anonymize.
// The set is closed: each kind has exactly one perturbation strategy, and an
// unknown kind must fail rather than pass through unperturbed.
type ValueKind int

const (
	// Numeric values receive additive Laplace noise.
	Numeric ValueKind = iota
	// Categorical values are perturbed with randomized response.
	Categorical
	// Timestamp values are perturbed with randomized response over the
	// empirical timestamp domain.
	Timestamp
)

// String returns the JSON tag of the kind.
func (k ValueKind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Timestamp:
		return "timestamp"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Value is a typed attribute value: a closed tagged union over the kinds
// above. The zero Value is the numeric 0.
type Value struct {
	kind ValueKind
	num  float64
	str  string
	ts   time.Time
}

// NumericValue returns a Value holding a float64.
func NumericValue(v float64) Value {
	return Value{kind: Numeric, num: v}
}

// CategoricalValue returns a Value holding a string label.
func CategoricalValue(v string) Value {
	return Value{kind: Categorical, str: v}
}

// TimestampValue returns a Value holding an instant, truncated to UTC.
func TimestampValue(v time.Time) Value {
	return Value{kind: Timestamp, ts: v.UTC()}
}

// Kind returns the kind tag of the value.
func (v Value) Kind() ValueKind {
	return v.kind
}

// Numeric returns the numeric payload, and whether the value is numeric.
func (v Value) Numeric() (float64, bool) {
	return v.num, v.kind == Numeric
}

// Categorical returns the string payload, and whether the value is
// categorical.
func (v Value) Categorical() (string, bool) {
	return v.str, v.kind == Categorical
}

// Timestamp returns the instant payload, and whether the value is a
// timestamp.
func (v Value) Timestamp() (time.Time, bool) {
	return v.ts, v.kind == Timestamp
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Numeric:
		return v.num == o.num
	case Categorical:
		return v.str == o.str
	case Timestamp:
		return v.ts.Equal(o.ts)
	}
	return false
}

// less orders values of the same kind; used for deterministic domain
// enumeration. Values of different kinds order by kind.
func (v Value) less(o Value) bool {
	if v.kind != o.kind {
		return v.kind < o.kind
	}
	switch v.kind {
	case Numeric:
		return v.num < o.num
	case Categorical:
		return v.str < o.str
	case Timestamp:
		return v.ts.Before(o.ts)
	}
	return false
}

// jsonValue is the wire form of a Value.
type jsonValue struct {
	Kind  string      `json:"kind"`
	Value interface{} `json:"value"`
}

// MarshalJSON encodes the value as {"kind": ..., "value": ...}.
func (v Value) MarshalJSON() ([]byte, error) {
	jv := jsonValue{Kind: v.kind.String()}
	switch v.kind {
	case Numeric:
		jv.Value = v.num
	case Categorical:
		jv.Value = v.str
	case Timestamp:
		jv.Value = v.ts.Format(time.RFC3339Nano)
	default:
		return nil, fmt.Errorf("cannot marshal value of kind %s", v.kind)
	}
	return json.Marshal(jv)
}

// UnmarshalJSON decodes the {"kind": ..., "value": ...} form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var jv struct {
		Kind  string          `json:"kind"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	switch jv.Kind {
	case "numeric":
		var f float64
		if err := json.Unmarshal(jv.Value, &f); err != nil {
			return fmt.Errorf("numeric value: %w", err)
		}
		*v = NumericValue(f)
	case "categorical":
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return fmt.Errorf("categorical value: %w", err)
		}
		*v = CategoricalValue(s)
	case "timestamp":
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return fmt.Errorf("timestamp value: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp value: %w", err)
		}
		*v = TimestampValue(ts)
	default:
		return fmt.Errorf("unknown value kind %q", jv.Kind)
	}
	return nil
}
