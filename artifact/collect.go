package artifact

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sluiceworks/sluice/fs"
	"github.com/sluiceworks/sluice/internal/pattern"
)

// Collected records one artifact gathered from a job workspace.
type Collected struct {
	// Source is the workspace-relative path the artifact came from.
	Source string

	// Info describes the stored object.
	Info ObjectInfo
}

// Collect walks a job workspace and stores every file matching the job's
// artifact patterns under the run/job key prefix. Patterns use the same
// filter language as branch filters, including ** and ! negation. Files
// under dot-directories (such as .git) and dotfiles are never collected.
//
// Collecting nothing is not an error; the caller decides whether an empty
// result is worth reporting.
func Collect(
	ctx context.Context,
	fsys fs.Filesystem,
	workspace string,
	patterns []string,
	store Store,
	runID, jobID string,
) ([]Collected, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	filters, err := pattern.CompileFilters(patterns)
	if err != nil {
		return nil, fmt.Errorf("artifact patterns: %w", err)
	}

	var collected []Collected
	err = fsys.Walk(workspace, func(p string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}

		rel := p
		if workspace != "." {
			rel = strings.TrimPrefix(p, workspace+"/")
		}
		if hasHiddenSegment(rel) {
			return nil
		}
		if !filters.Matches(rel) {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		data, readErr := fsys.ReadFile(p)
		if readErr != nil {
			return fmt.Errorf("read %q: %w", rel, readErr)
		}

		key := Key(runID, jobID, rel)
		info, putErr := store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), detectContentType(data))
		if putErr != nil {
			return putErr
		}

		collected = append(collected, Collected{Source: rel, Info: info})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect artifacts for %s/%s: %w", runID, jobID, err)
	}

	return collected, nil
}

// hasHiddenSegment reports whether any path segment starts with a dot.
func hasHiddenSegment(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
