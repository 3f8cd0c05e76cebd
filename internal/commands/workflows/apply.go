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

package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/pipeflowhq/pipeflow-go/internal/commands/shared"
	"github.com/pipeflowhq/pipeflow-go/pkg/pipeflow"
)

// debounce interval for watch mode; editors often fire several events
// per save.
const applyDebounce = 300 * time.Millisecond

func newApplyCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "apply <pattern>",
		Short: "Import workflow definitions from files",
		Long: `Import workflow JSON definitions matching a glob pattern. Patterns
support doublestar globs, e.g. 'flows/**/*.json'.

With --watch the command keeps running and re-imports files as they
change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := shared.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			matches, err := expandPattern(args[0])
			if err != nil {
				return err
			}
			if len(matches) == 0 && !watch {
				return shared.NewUsageError("no files match " + args[0])
			}

			for _, path := range matches {
				if err := applyFile(ctx, client, path); err != nil {
					if !watch {
						return err
					}
					shared.Printf("%s\n", shared.RenderError(fmt.Sprintf("%s: %v", path, err)))
				}
			}

			if !watch {
				return nil
			}
			return watchAndApply(ctx, client, args[0])
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-import files on change")
	return cmd
}

func expandPattern(pattern string) ([]string, error) {
	base, rest := doublestar.SplitPattern(pattern)
	matches, err := doublestar.Glob(os.DirFS(base), rest)
	if err != nil {
		return nil, shared.NewUsageError(fmt.Sprintf("invalid pattern %q: %v", pattern, err))
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(base, m))
	}
	return paths, nil
}

func applyFile(ctx context.Context, client *pipeflow.Client, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if !json.Valid(data) {
		return fmt.Errorf("%s is not valid JSON", path)
	}

	wf, err := client.Workflows.Import(ctx, data)
	if err != nil {
		return fmt.Errorf("importing %s: %w", path, err)
	}

	shared.Printf("%s\n", shared.RenderOK(
		fmt.Sprintf("Applied %s as %q (%s)", path, wf.Name, wf.ID)))
	return nil
}

// watchAndApply re-imports matching files as they change until the
// context is cancelled.
func watchAndApply(ctx context.Context, client *pipeflow.Client, pattern string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	base, _ := doublestar.SplitPattern(pattern)
	if err := addWatchDirs(watcher, base); err != nil {
		return err
	}

	shared.Printf("Watching %s for changes (Ctrl+C to stop)\n", pattern)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(applyDebounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				// New subdirectories need their own watch.
				_ = addWatchDirs(watcher, event.Name)
				continue
			}
			if ok, _ := doublestar.PathMatch(pattern, event.Name); ok {
				pending[event.Name] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			shared.Printf("%s\n", shared.RenderWarn("watch error: "+err.Error()))

		case now := <-ticker.C:
			for path, seen := range pending {
				if now.Sub(seen) < applyDebounce {
					continue
				}
				delete(pending, path)
				if err := applyFile(ctx, client, path); err != nil {
					shared.Printf("%s\n", shared.RenderError(err.Error()))
				}
			}
		}
	}
}

func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
