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

// Package checks contains parameter checks for the differentially private
// event log anonymization primitives. All checks reject their input before
// any computation starts, so a caller can retry with corrected parameters.
package checks

import (
	"fmt"
	"math"
)

const (
	epsilonName     = "Epsilon"
	sensitivityName = "Sensitivity"
	probabilityName = "Probability"
	fractionName    = "Fraction"
)

func verifyName(defaultName string, nameSlice []string) (string, error) {
	var name string
	switch len(nameSlice) {
	case 0:
		name = defaultName
	case 1:
		name = nameSlice[0]
	default:
		return "", fmt.Errorf("This should never happen. There should be 0 or 1 'name' parameter, got %d", len(nameSlice))
	}
	return name, nil
}

// CheckEpsilonStrict returns an error if ε is nonpositive, NaN or ±∞.
func CheckEpsilonStrict(epsilon float64, name ...string) error {
	epsName, err := verifyName(epsilonName, name)
	if err != nil {
		return err
	}
	if epsilon <= 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return fmt.Errorf("%s is %f, must be strictly positive and finite", epsName, epsilon)
	}
	return nil
}

// CheckSensitivity returns an error if the sensitivity is nonpositive, NaN
// or ±∞. A sensitivity of 0 is rejected because the resulting noise scale
// would be 0, i.e. no noise at all.
func CheckSensitivity(sensitivity float64, name ...string) error {
	sensName, err := verifyName(sensitivityName, name)
	if err != nil {
		return err
	}
	if sensitivity <= 0 || math.IsInf(sensitivity, 0) || math.IsNaN(sensitivity) {
		return fmt.Errorf("%s is %f, must be strictly positive and finite", sensName, sensitivity)
	}
	return nil
}

// CheckMinSupport returns an error if the pruning threshold k is less than 1.
func CheckMinSupport(k int64) error {
	if k < 1 {
		return fmt.Errorf("MinSupport is %d, must be at least 1", k)
	}
	return nil
}

// CheckCandidateBound returns an error if the per-prefix candidate bound p is
// less than 1.
func CheckCandidateBound(p int64) error {
	if p < 1 {
		return fmt.Errorf("CandidateBound is %d, must be at least 1", p)
	}
	return nil
}

// CheckMaxDepth returns an error if the exploration depth bound is negative.
// A depth of 0 means the bound is derived from the longest input trace.
func CheckMaxDepth(depth int) error {
	if depth < 0 {
		return fmt.Errorf("MaxDepth is %d, must be nonnegative", depth)
	}
	return nil
}

// CheckProbability returns an error if q is not within [0, 1].
func CheckProbability(q float64, name ...string) error {
	probName, err := verifyName(probabilityName, name)
	if err != nil {
		return err
	}
	if q < 0 || q > 1 || math.IsNaN(q) {
		return fmt.Errorf("%s is %f, must be within [0, 1]", probName, q)
	}
	return nil
}

// CheckFraction returns an error if f is not within (0, 1].
func CheckFraction(f float64, name ...string) error {
	fracName, err := verifyName(fractionName, name)
	if err != nil {
		return err
	}
	if f <= 0 || f > 1 || math.IsNaN(f) {
		return fmt.Errorf("%s is %f, must be within (0, 1]", fracName, f)
	}
	return nil
}

// fractionSumTolerance absorbs the floating point error that accumulates when
// many per-phase fractions are summed against a declared total.
const fractionSumTolerance = 1e-9

// CheckFractions returns an error if any fraction is outside (0, 1] or the
// fractions sum to more than 1.
func CheckFractions(fractions []float64) error {
	sum := 0.0
	for i, f := range fractions {
		if err := CheckFraction(f, fmt.Sprintf("Fraction[%d]", i)); err != nil {
			return err
		}
		sum += f
	}
	if sum > 1+fractionSumTolerance {
		return fmt.Errorf("Fractions sum to %f, must not exceed 1", sum)
	}
	return nil
}
