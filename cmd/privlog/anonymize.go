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

package main

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/google/differential-privacy/privlog/budget"
	"github.com/google/differential-privacy/privlog/eventlog"
	"github.com/google/differential-privacy/privlog/pripel"
	"github.com/google/differential-privacy/privlog/rand"
)

func newAnonymizeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anonymize",
		Short: "Anonymize an event log end to end",
		Long: `anonymize runs the full pipeline: the differentially private
trace-variant query followed by per-trace realignment and attribute
anonymization. With --variants a pre-computed variant artifact is used
instead of exploring, and the whole budget goes to the attributes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := readLog(v.GetString("input"))
			if err != nil {
				return err
			}
			sensitivities, err := parseSensitivities(v.GetStringSlice("sensitivity"))
			if err != nil {
				return err
			}
			seed, err := parseSeed(v.GetString("seed"))
			if err != nil {
				return err
			}
			strategy, err := strategyFromName(v.GetString("strategy"))
			if err != nil {
				return err
			}
			undeclared := pripel.UndeclaredFail
			if v.GetBool("drop-undeclared") {
				undeclared = pripel.UndeclaredDrop
			}

			var out *eventlog.Log
			var variants *eventlog.VariantResult
			if variantsPath := v.GetString("variants"); variantsPath != "" {
				variants, err = readVariants(variantsPath)
				if err != nil {
					return err
				}
				out, err = anonymizeWithVariants(cmd, v, l, variants, sensitivities, strategy, undeclared, seed)
			} else {
				schedule, scheduleErr := scheduleFromName(v.GetString("level-schedule"))
				if scheduleErr != nil {
					return scheduleErr
				}
				out, variants, err = pripel.Run(cmd.Context(), l, &pripel.PipelineOptions{
					Epsilon:         v.GetFloat64("epsilon"),
					ExploreFraction: v.GetFloat64("explore-fraction"),
					MinSupport:      v.GetInt64("min-support"),
					CandidateBound:  v.GetInt64("candidate-bound"),
					MaxDepth:        v.GetInt("max-depth"),
					LevelSchedule:   schedule,
					Strategy:        strategy,
					Sensitivities:   sensitivities,
					Undeclared:      undeclared,
					Parallelism:     v.GetInt("parallelism"),
					Seed:            seed,
				})
			}
			if err != nil {
				return err
			}
			log.Infof("anonymized %d traces against %d published variants", out.Len(), variants.Len())
			return writeJSON(v.GetString("output"), out)
		},
	}
	addExploreFlags(cmd)
	cmd.Flags().Float64("explore-fraction", 0.5, "share of the budget spent on variant exploration")
	cmd.Flags().String("strategy", "proportional", "variant selection: proportional or nearest")
	cmd.Flags().StringSlice("sensitivity", nil, "attribute sensitivity as name=value; repeatable")
	cmd.Flags().Bool("drop-undeclared", false, "drop attributes without declared sensitivity instead of failing")
	cmd.Flags().Int("parallelism", 0, "concurrent trace workers, 0 means GOMAXPROCS")
	cmd.Flags().String("variants", "", "pre-computed variant artifact (JSON); skips exploration")
	cmd.Flags().String("input", "", "input event log (JSON)")
	cmd.Flags().String("output", "", "output anonymized log (JSON)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}

// anonymizeWithVariants runs only the PRIPEL stage against a pre-computed
// variant artifact; the full --epsilon is then split across the declared
// attributes.
func anonymizeWithVariants(cmd *cobra.Command, v *viper.Viper, l *eventlog.Log, variants *eventlog.VariantResult,
	sensitivities map[string]float64, strategy pripel.SelectionStrategy, undeclared pripel.UndeclaredAttributePolicy, seed *int64) (*eventlog.Log, error) {
	src := rand.NewSecureSource()
	if seed != nil {
		src = rand.NewSeededSource(*seed)
	}
	attributes, err := splitAttributeBudget(v.GetFloat64("epsilon"), sensitivities)
	if err != nil {
		return nil, err
	}
	anonymizer, err := pripel.NewAnonymizer(&pripel.AnonymizerOptions{
		Variants:    variants,
		Strategy:    strategy,
		Attributes:  attributes,
		Undeclared:  undeclared,
		Parallelism: v.GetInt("parallelism"),
		Rand:        src,
	})
	if err != nil {
		return nil, err
	}
	return anonymizer.AnonymizeLog(cmd.Context(), l)
}

func splitAttributeBudget(epsilon float64, sensitivities map[string]float64) (map[string]pripel.AttributeSpec, error) {
	if len(sensitivities) == 0 {
		return nil, nil
	}
	allocator, err := budget.NewAllocator(&budget.AllocatorOptions{Epsilon: epsilon})
	if err != nil {
		return nil, err
	}
	specs := make(map[string]pripel.AttributeSpec, len(sensitivities))
	for name, sensitivity := range sensitivities {
		epsAttr, err := allocator.Fraction(1.0 / float64(len(sensitivities)))
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		specs[name] = pripel.AttributeSpec{Sensitivity: sensitivity, Epsilon: epsAttr}
	}
	return specs, nil
}

func strategyFromName(name string) (pripel.SelectionStrategy, error) {
	switch name {
	case "proportional":
		return pripel.SelectProportional, nil
	case "nearest":
		return pripel.SelectNearest, nil
	}
	return 0, fmt.Errorf("strategy is %q, must be proportional or nearest", name)
}

func readVariants(path string) (*eventlog.VariantResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading variants: %w", err)
	}
	var variants eventlog.VariantResult
	if err := json.Unmarshal(data, &variants); err != nil {
		return nil, fmt.Errorf("decoding variants %s: %w", path, err)
	}
	return &variants, nil
}
