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

// Package noise contains the mechanisms that make values differentially
// private: additive Laplace noise for numeric queries and randomized
// response for categorical ones.
//
// The mechanisms never post-process their output. In particular, a noisy
// count may come back negative; clamping it to zero is the caller's
// decision, because clamping inside the mechanism would bias it.
package noise

import (
	"math"

	"github.com/google/differential-privacy/privlog/checks"
	"github.com/google/differential-privacy/privlog/rand"
)

// Laplace adds zero-mean Laplace noise with scale sensitivity/epsilon to x,
// drawing from src, so that the output is ε-differentially private given the
// L₁ sensitivity of the underlying query.
//
// It fails if epsilon or sensitivity is nonpositive or non-finite, before
// any entropy is consumed.
func Laplace(src *rand.Source, x, sensitivity, epsilon float64) (float64, error) {
	if err := checkArgsLaplace(sensitivity, epsilon); err != nil {
		return 0, err
	}
	lambda := sensitivity / epsilon
	// Inverse CDF sampling: with U uniform on (0, 1] and S a fair sign,
	// -λ·S·ln(U) is Laplace distributed with mean 0 and scale λ.
	return x - lambda*src.Sign()*math.Log(src.Uniform()), nil
}

// LaplaceInt64 adds Laplace noise to the integer count x and rounds the
// result to the nearest integer. The rounding is a data-independent
// post-processing step and does not affect the privacy guarantee.
func LaplaceInt64(src *rand.Source, x int64, sensitivity, epsilon float64) (int64, error) {
	noised, err := Laplace(src, float64(x), sensitivity, epsilon)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(noised)), nil
}

func checkArgsLaplace(sensitivity, epsilon float64) error {
	if err := checks.CheckSensitivity(sensitivity); err != nil {
		return err
	}
	return checks.CheckEpsilonStrict(epsilon)
}
