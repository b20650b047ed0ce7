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

package noise

import (
	"fmt"
	"math"

	"github.com/google/differential-privacy/privlog/checks"
	"github.com/google/differential-privacy/privlog/rand"
)

// KeepProbability returns the probability with which generalized randomized
// response keeps the true value for a domain of the given size while
// satisfying ε-differential privacy:
//
//	e^ε / (e^ε + domainSize - 1)
//
// It fails if epsilon is invalid or domainSize is less than 1.
func KeepProbability(epsilon float64, domainSize int) (float64, error) {
	if err := checks.CheckEpsilonStrict(epsilon); err != nil {
		return 0, err
	}
	if domainSize < 1 {
		return 0, fmt.Errorf("DomainSize is %d, must be at least 1", domainSize)
	}
	expEps := math.Exp(epsilon)
	return expEps / (expEps + float64(domainSize) - 1), nil
}

// RandomizedResponse perturbs the categorical value at the given domain
// index: it keeps the index with KeepProbability(epsilon, domainSize) and
// otherwise replaces it with one of the remaining domainSize-1 indices,
// chosen uniformly at random from src. The output is ε-differentially
// private with respect to the value.
//
// A domain of size 1 is degenerate and always returns index 0: there is
// nothing to hide when only one value exists.
func RandomizedResponse(src *rand.Source, index, domainSize int, epsilon float64) (int, error) {
	keep, err := KeepProbability(epsilon, domainSize)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= domainSize {
		return 0, fmt.Errorf("Index is %d, must be within [0, %d)", index, domainSize)
	}
	if domainSize == 1 {
		return 0, nil
	}
	if src.Uniform() <= keep {
		return index, nil
	}
	// Draw uniformly from the domain without the true index.
	r := int(src.I63n(int64(domainSize - 1)))
	if r >= index {
		r++
	}
	return r, nil
}
