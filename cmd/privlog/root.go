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
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/google/differential-privacy/privlog/eventlog"
)

const envPrefix = "PRIVLOG"

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:   "privlog",
		Short: "Differentially private event log anonymization",
		Long: `privlog publishes business-process event logs under a formal
differential privacy guarantee: a noisy trace-variant distribution is
explored first, then every trace is realigned to a published variant and its
attribute values are perturbed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				v.SetConfigFile(configFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config: %w", err)
				}
			}
			v.SetEnvPrefix(envPrefix)
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			return v.BindPFlags(cmd.Flags())
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (any format viper reads)")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newExploreCmd(v))
	root.AddCommand(newAnonymizeCmd(v))
	return root
}

func readLog(path string) (*eventlog.Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	var l eventlog.Log
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decoding log %s: %w", path, err)
	}
	return &l, nil
}

func writeJSON(path string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// parseSensitivities turns repeated name=value flags into the sensitivity
// mapping of the parameter surface.
func parseSensitivities(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	sensitivities := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("sensitivity %q, want name=value", pair)
		}
		s, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("sensitivity %q: %w", pair, err)
		}
		sensitivities[name] = s
	}
	return sensitivities, nil
}

// parseSeed returns the configured seed, or nil when reproducibility was not
// requested and noise must come from a secure source.
func parseSeed(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	seed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("seed %q: %w", raw, err)
	}
	return &seed, nil
}
