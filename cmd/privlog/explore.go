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
	"fmt"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/google/differential-privacy/privlog/rand"
	"github.com/google/differential-privacy/privlog/sacofa"
)

func newExploreCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Run only the differentially private trace-variant query",
		Long: `explore builds the noisy trace-variant distribution of the input log and
writes it as a standalone JSON artifact. The artifact can be reused across
anonymize runs without spending exploration budget again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := readLog(v.GetString("input"))
			if err != nil {
				return err
			}

			src := rand.NewSecureSource()
			seed, err := parseSeed(v.GetString("seed"))
			if err != nil {
				return err
			}
			if seed != nil {
				src = rand.NewSeededSource(*seed)
			}

			schedule, err := scheduleFromName(v.GetString("level-schedule"))
			if err != nil {
				return err
			}
			explorer, err := sacofa.NewExplorer(&sacofa.ExplorerOptions{
				Epsilon:        v.GetFloat64("epsilon"),
				MinSupport:     v.GetInt64("min-support"),
				CandidateBound: v.GetInt64("candidate-bound"),
				MaxDepth:       v.GetInt("max-depth"),
				LevelSchedule:  schedule,
				Rand:           src,
			})
			if err != nil {
				return err
			}
			result, err := explorer.Explore(l)
			if err != nil {
				return err
			}
			log.Infof("explored %d traces, published %d variants (per-level expansions: %v)",
				l.Len(), result.Len(), explorer.ExpandedPrefixes())
			return writeJSON(v.GetString("output"), result)
		},
	}
	addExploreFlags(cmd)
	cmd.Flags().String("input", "", "input event log (JSON)")
	cmd.Flags().String("output", "", "output variant artifact (JSON)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}

func addExploreFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("epsilon", 1.0, "privacy budget of the exploration")
	cmd.Flags().Int64("min-support", 20, "pruning threshold k: minimum noisy support to expand a prefix")
	cmd.Flags().Int64("candidate-bound", 5, "bound p on candidate continuations per prefix")
	cmd.Flags().Int("max-depth", 0, "exploration depth bound, 0 derives it from the longest trace")
	cmd.Flags().String("level-schedule", "uniform", "per-level budget schedule: uniform or geometric")
	cmd.Flags().String("seed", "", "seed for reproducible runs; leave unset for secure noise")
}

func scheduleFromName(name string) (sacofa.LevelSchedule, error) {
	switch name {
	case "uniform":
		return sacofa.ScheduleUniform, nil
	case "geometric":
		return sacofa.ScheduleGeometric, nil
	}
	return 0, fmt.Errorf("level-schedule is %q, must be uniform or geometric", name)
}
