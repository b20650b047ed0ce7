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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueJSON(t *testing.T) {
	ts := time.Date(2023, 4, 7, 12, 30, 0, 0, time.UTC)
	for _, tc := range []struct {
		name  string
		value Value
		want  string
	}{
		{"numeric", NumericValue(3.5), `{"kind":"numeric","value":3.5}`},
		{"categorical", CategoricalValue("gold"), `{"kind":"categorical","value":"gold"}`},
		{"timestamp", TimestampValue(ts), `{"kind":"timestamp","value":"2023-04-07T12:30:00Z"}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.value)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(data))

			var back Value
			require.NoError(t, json.Unmarshal(data, &back))
			assert.True(t, back.Equal(tc.value), "round trip changed the value")
		})
	}
}

func TestValueJSONRejectsUnknownKind(t *testing.T) {
	var v Value
	err := json.Unmarshal([]byte(`{"kind":"blob","value":"x"}`), &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blob")
}

func TestLogJSONRoundTrip(t *testing.T) {
	l := &Log{Traces: []Trace{
		{
			CaseID: "c1",
			Events: []Event{
				{Activity: "register", Attributes: map[string]Value{
					"cost": NumericValue(40),
					"team": CategoricalValue("gold"),
					"when": TimestampValue(time.Date(2023, 1, 2, 9, 0, 0, 0, time.UTC)),
				}},
				{Activity: "decide"},
			},
		},
		{CaseID: "c2", Events: []Event{{Activity: "register"}}},
	}}

	data, err := json.Marshal(l)
	require.NoError(t, err)

	var back Log
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back.Traces, 2)
	assert.Equal(t, "c1", back.Traces[0].CaseID)
	require.Len(t, back.Traces[0].Events, 2)
	assert.Equal(t, "register", back.Traces[0].Events[0].Activity)
	cost, ok := back.Traces[0].Events[0].Attributes["cost"].Numeric()
	require.True(t, ok)
	assert.Equal(t, 40.0, cost)
}

func TestVariantResultJSONRoundTrip(t *testing.T) {
	r := NewVariantResult(0.5)
	r.Set(Variant{"A", "B", "C"}, 10.2)
	r.Set(Variant{"A", "B", "D"}, 4.7)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var back VariantResult
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 0.5, back.Epsilon())
	assert.Equal(t, 2, back.Len())
	f, ok := back.Get(Variant{"A", "B", "D"})
	require.True(t, ok)
	assert.InDelta(t, 4.7, f, 1e-12)
}

func TestVariantResultJSONIsSorted(t *testing.T) {
	r := NewVariantResult(1.0)
	r.Set(Variant{"B"}, 1)
	r.Set(Variant{"A"}, 2)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"epsilon":1,"variants":[{"activities":["A"],"frequency":2},{"activities":["B"],"frequency":1}]}`, string(data))
}

func TestVariantResultRejectsNegativeFrequency(t *testing.T) {
	var r VariantResult
	err := json.Unmarshal([]byte(`{"epsilon":1,"variants":[{"activities":["A"],"frequency":-3}]}`), &r)
	require.Error(t, err)
}

func TestVariantResultSetClampsNegative(t *testing.T) {
	r := NewVariantResult(1.0)
	r.Set(Variant{"A"}, -5)
	f, ok := r.Get(Variant{"A"})
	require.True(t, ok)
	assert.Equal(t, 0.0, f)
}
