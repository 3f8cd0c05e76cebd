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

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pipeflowhq/pipeflow-go/internal/filter"
	"github.com/pipeflowhq/pipeflow-go/internal/jq"
)

// EmitJSON writes v as indented JSON to stdout, applying the --jq
// expression when one was given.
func EmitJSON(v any) error {
	return emitJSONTo(os.Stdout, v)
}

func emitJSONTo(w io.Writer, v any) error {
	if expression := GetJQ(); expression != "" {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}
		result, err := jq.NewExecutor(0, 0).Apply(context.Background(), expression, raw)
		if err != nil {
			return err
		}
		v = result
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// ApplyFilter narrows items with the --filter expression. Without the
// flag the input comes back unchanged.
func ApplyFilter[T any](items []T) ([]T, error) {
	expression := GetFilter()
	if expression == "" {
		return items, nil
	}

	f, err := filter.New(expression)
	if err != nil {
		return nil, NewUsageError(err.Error())
	}
	return filter.Apply(f, items)
}

// Table renders rows in aligned columns to stdout.
func Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

// Printf writes to stdout unless --quiet is set.
func Printf(format string, args ...any) {
	if GetQuiet() {
		return
	}
	fmt.Printf(format, args...)
}
