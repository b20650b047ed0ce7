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

package checks

import (
	"math"
	"testing"
)

func TestCheckEpsilonStrict(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		epsilon float64
		wantErr bool
	}{
		{"positive epsilon", 0.1, false},
		{"large epsilon", 50.0, false},
		{"zero epsilon", 0, true},
		{"negative epsilon", -1.0, true},
		{"infinite epsilon", math.Inf(1), true},
		{"NaN epsilon", math.NaN(), true},
	} {
		err := CheckEpsilonStrict(tc.epsilon)
		if (err != nil) != tc.wantErr {
			t.Errorf("CheckEpsilonStrict: when %s for err got %v, wantErr %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckSensitivity(t *testing.T) {
	for _, tc := range []struct {
		desc        string
		sensitivity float64
		wantErr     bool
	}{
		{"positive sensitivity", 1.0, false},
		{"fractional sensitivity", 0.5, false},
		{"zero sensitivity", 0, true},
		{"negative sensitivity", -2.0, true},
		{"infinite sensitivity", math.Inf(1), true},
		{"NaN sensitivity", math.NaN(), true},
	} {
		err := CheckSensitivity(tc.sensitivity)
		if (err != nil) != tc.wantErr {
			t.Errorf("CheckSensitivity: when %s for err got %v, wantErr %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestCheckMinSupport(t *testing.T) {
	for _, tc := range []struct {
		k       int64
		wantErr bool
	}{
		{1, false},
		{20, false},
		{0, true},
		{-5, true},
	} {
		err := CheckMinSupport(tc.k)
		if (err != nil) != tc.wantErr {
			t.Errorf("CheckMinSupport(%d) for err got %v, wantErr %t", tc.k, err, tc.wantErr)
		}
	}
}

func TestCheckCandidateBound(t *testing.T) {
	for _, tc := range []struct {
		p       int64
		wantErr bool
	}{
		{1, false},
		{100, false},
		{0, true},
		{-1, true},
	} {
		err := CheckCandidateBound(tc.p)
		if (err != nil) != tc.wantErr {
			t.Errorf("CheckCandidateBound(%d) for err got %v, wantErr %t", tc.p, err, tc.wantErr)
		}
	}
}

func TestCheckProbability(t *testing.T) {
	for _, tc := range []struct {
		q       float64
		wantErr bool
	}{
		{0, false},
		{0.5, false},
		{1, false},
		{-0.1, true},
		{1.1, true},
		{math.NaN(), true},
	} {
		err := CheckProbability(tc.q)
		if (err != nil) != tc.wantErr {
			t.Errorf("CheckProbability(%f) for err got %v, wantErr %t", tc.q, err, tc.wantErr)
		}
	}
}

func TestCheckFractions(t *testing.T) {
	for _, tc := range []struct {
		desc      string
		fractions []float64
		wantErr   bool
	}{
		{"uniform split", []float64{0.25, 0.25, 0.25, 0.25}, false},
		{"partial allocation", []float64{0.5, 0.3}, false},
		{"single full fraction", []float64{1.0}, false},
		{"empty", nil, false},
		{"zero fraction", []float64{0.5, 0}, true},
		{"negative fraction", []float64{-0.5, 0.5}, true},
		{"oversubscribed", []float64{0.7, 0.7}, true},
		{"fraction above one", []float64{1.5}, true},
	} {
		err := CheckFractions(tc.fractions)
		if (err != nil) != tc.wantErr {
			t.Errorf("CheckFractions: when %s for err got %v, wantErr %t", tc.desc, err, tc.wantErr)
		}
	}
}

func TestChecksRejectSecondName(t *testing.T) {
	if err := CheckEpsilonStrict(1.0, "EpsilonExplore", "EpsilonAttr"); err == nil {
		t.Errorf("CheckEpsilonStrict with two names: got nil, want error")
	}
}
