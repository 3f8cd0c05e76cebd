// Copyright 2025 Pipeflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shared

import "github.com/spf13/pflag"

// Global flag values, bound by the root command.
var (
	verboseFlag bool
	quietFlag   bool
	jsonFlag    bool
	jqFlag      string
	filterFlag  string
	configFlag  string

	// Build-time version information, injected via ldflags.
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// BindGlobalFlags registers the CLI-wide flags on the given flag set,
// normally the root command's persistent flags.
func BindGlobalFlags(flags *pflag.FlagSet) {
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	flags.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-error output")
	flags.BoolVar(&jsonFlag, "json", false, "Output in JSON format")
	flags.StringVar(&jqFlag, "jq", "", "Apply a jq expression to JSON output")
	flags.StringVar(&filterFlag, "filter", "", "Filter list output with a boolean expression")
	flags.StringVar(&configFlag, "config", "", "Path to config file (default: env or stored session)")
}

// SetVersion records the build-time version information (called from main).
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVersion returns the build-time version information.
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// GetVerbose reports whether --verbose was given.
func GetVerbose() bool { return verboseFlag }

// GetQuiet reports whether --quiet was given.
func GetQuiet() bool { return quietFlag }

// GetJSON reports whether --json was given.
func GetJSON() bool { return jsonFlag }

// GetJQ returns the --jq expression, or "".
func GetJQ() string { return jqFlag }

// GetFilter returns the --filter expression, or "".
func GetFilter() string { return filterFlag }

// GetConfigPath returns the --config file path, or "".
func GetConfigPath() string { return configFlag }
