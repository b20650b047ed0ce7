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

// privlog anonymizes business-process event logs under differential privacy.
//
// The explore subcommand runs only the trace-variant query and persists its
// result as a standalone artifact; the anonymize subcommand runs the full
// pipeline and writes an anonymized log. Logs and artifacts are exchanged as
// JSON files.
//
// Usage example:
//
//	privlog anonymize --input log.json --output anonymized.json \
//	    --epsilon 1.0 --min-support 20 --candidate-bound 5 \
//	    --sensitivity cost=100 --sensitivity team=1
package main

import (
	"os"

	log "github.com/golang/glog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
