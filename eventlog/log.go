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

// Package eventlog holds the process-mining data model the anonymization
// pipeline operates on: events carrying typed attributes, traces, logs, and
// the trace-variant abstraction that the explorer privatizes.
//
// Logs, traces and events are read-only inputs to the pipeline. Case
// identifiers exist only to keep traces apart during processing; they are
// never copied to an anonymized output.
package eventlog

import (
	"sort"

	"github.com/google/uuid"
)

// Event is one step of a trace: an activity label plus named attribute
// values. Events are treated as immutable once recorded.
type Event struct {
	Activity   string           `json:"activity"`
	Attributes map[string]Value `json:"attributes,omitempty"`
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	c := Event{Activity: e.Activity}
	if e.Attributes != nil {
		c.Attributes = make(map[string]Value, len(e.Attributes))
		for k, v := range e.Attributes {
			c.Attributes[k] = v
		}
	}
	return c
}

// Trace is an ordered sequence of events belonging to one case.
type Trace struct {
	CaseID     string           `json:"case_id"`
	Events     []Event          `json:"events"`
	Attributes map[string]Value `json:"attributes,omitempty"`
}

// Variant returns the activity-label sequence of the trace, stripped of
// attributes and identity.
func (t Trace) Variant() Variant {
	v := make(Variant, len(t.Events))
	for i, e := range t.Events {
		v[i] = e.Activity
	}
	return v
}

// Log is a collection of traces: the unit of pipeline input and output.
type Log struct {
	Traces []Trace `json:"traces"`
}

// Len returns the number of traces.
func (l *Log) Len() int {
	return len(l.Traces)
}

// Empty reports whether the log has no traces.
func (l *Log) Empty() bool {
	return len(l.Traces) == 0
}

// MaxTraceLength returns the length of the longest trace, 0 for an empty log.
func (l *Log) MaxTraceLength() int {
	max := 0
	for _, t := range l.Traces {
		if len(t.Events) > max {
			max = len(t.Events)
		}
	}
	return max
}

// ActivityAlphabet returns the distinct activity labels of the log in
// lexicographic order.
func (l *Log) ActivityAlphabet() []string {
	seen := make(map[string]bool)
	for _, t := range l.Traces {
		for _, e := range t.Events {
			seen[e.Activity] = true
		}
	}
	alphabet := make([]string, 0, len(seen))
	for a := range seen {
		alphabet = append(alphabet, a)
	}
	sort.Strings(alphabet)
	return alphabet
}

// AttributeMarginals returns, per event attribute name, every value observed
// in the log, in event order. This is the empirical marginal distribution
// that placeholder events for inserted alignment positions are drawn from:
// sampling from the log-wide marginal leaks nothing beyond what the
// published variants already reveal.
func (l *Log) AttributeMarginals() map[string][]Value {
	marginals := make(map[string][]Value)
	for _, t := range l.Traces {
		for _, e := range t.Events {
			for name, v := range e.Attributes {
				marginals[name] = append(marginals[name], v)
			}
		}
	}
	return marginals
}

// AttributeDomains returns, per event attribute name, the distinct values
// observed in the log in a deterministic order. Randomized response draws
// its replacement values from these domains.
func (l *Log) AttributeDomains() map[string][]Value {
	domains := make(map[string][]Value)
	for name, values := range l.AttributeMarginals() {
		distinct := make([]Value, 0, len(values))
		for _, v := range values {
			found := false
			for _, d := range distinct {
				if d.Equal(v) {
					found = true
					break
				}
			}
			if !found {
				distinct = append(distinct, v)
			}
		}
		sort.Slice(distinct, func(i, j int) bool { return distinct[i].less(distinct[j]) })
		domains[name] = distinct
	}
	return domains
}

// NewCaseID returns a fresh case identifier for an anonymized output trace.
func NewCaseID() string {
	return uuid.NewString()
}
