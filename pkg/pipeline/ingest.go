package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/evidence-toolkit/core/pkg/runctx"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Ingest walks caseDir (excluding hidden files and directories), calling
// Store.Ingest for each regular file found. Parallelism is I/O-bound,
// default width min(8, file_count).
func Ingest(ctx context.Context, rc *runctx.RunContext, caseDir string, opts Options) (*RunResult, error) {
	files, err := walkCaseDir(caseDir)
	if err != nil {
		return nil, fmt.Errorf("pipeline: ingest: walk %s: %w", caseDir, err)
	}
	if len(files) == 0 {
		return newResult(nil, 0), nil
	}

	width := len(files)
	if width > 8 {
		width = 8
	}
	sem := semaphore.NewWeighted(int64(width))

	var mu sync.Mutex
	var failures []ItemFailure

	g, gctx := errgroup.WithContext(ctx)
	for _, path := range files {
		path := path
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			result, err := rc.Store.Ingest(path, opts.CaseID, opts.Actor)
			recordItem(gctx, rc, "ingest", err)
			if err != nil {
				mu.Lock()
				failures = append(failures, ItemFailure{Stage: "ingest", Item: path, Err: err})
				mu.Unlock()
				if opts.FailFast {
					return err
				}
				return nil
			}
			indexIngested(gctx, rc, opts.CaseID, result)
			return nil
		})
	}
	if err := g.Wait(); err != nil && opts.FailFast {
		return newResult(failures, len(files)), nil
	}
	return newResult(failures, len(files)), nil
}

// walkCaseDir lists every non-hidden regular file under root, recursing
// into non-hidden subdirectories. A root that is itself a regular file is
// returned as the single item, so ingest accepts a file or a directory.
func walkCaseDir(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if info.Mode().IsRegular() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}
