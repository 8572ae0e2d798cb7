package pathfinder

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/dupefoundry/telemetry"
	"github.com/fulmenhq/dupefoundry/telemetry/metrics"
)

// Finder is the concrete Pathfinder used to discover candidate translation
// units on disk before they reach a host-language parser adaptor (spec §6).
// It never yields a path outside its root, and honors a .fulmenignore-style
// IgnoreMatcher plus the include patterns passed to Discover. This is a
// separate, earlier exclusion layer from config.Options.ExcludePatterns:
// Finder decides which files reach an Analyzer run at all, while
// analyzer.Analyzer re-applies config.ExcludeMatcher per relative path
// during the run itself, since a Report's Paths can also be built without
// ever going through Finder (e.g. a caller that already has a file list).
type Finder struct {
	includeHidden bool
}

// NewFinder builds a Finder. includeHidden controls whether dot-prefixed
// path segments are discovered.
func NewFinder(includeHidden bool) *Finder {
	return &Finder{includeHidden: includeHidden}
}

var _ Pathfinder = (*Finder)(nil)

// Discover walks root and returns every regular file whose path matches at
// least one of patterns (doublestar globs, matched against the path
// relative to root) and isn't excluded by root's .fulmenignore or hidden by
// default.
func (f *Finder) Discover(ctx context.Context, root string, patterns []string) ([]string, error) {
	start := time.Now()
	defer func() {
		telemetry.EmitHistogram(metrics.PathfinderFindMs, time.Since(start), nil)
	}()

	if err := ValidatePath(root); err != nil {
		return nil, err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	ignore, err := NewIgnoreMatcher(absRoot)
	if err != nil {
		return nil, err
	}

	var matches []string
	walkErr := f.Walk(ctx, absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !f.includeHidden && ContainsHiddenSegment(rel) {
			return nil
		}
		if ignore.IsIgnored(rel) {
			return nil
		}

		for _, pattern := range patterns {
			ok, matchErr := doublestar.Match(pattern, rel)
			if matchErr == nil && ok {
				matches = append(matches, path)
				break
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return matches, nil
}

// Walk safely traverses root, refusing to descend into or report any path
// that ValidatePathWithinRoot rejects (defense in depth against a symlink
// or parser-adaptor path escaping root).
func (f *Finder) Walk(ctx context.Context, root string, walkFn fs.WalkDirFunc) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return walkFn(path, d, err)
		}

		absPath, absErr := filepath.Abs(path)
		if absErr != nil {
			return walkFn(path, d, absErr)
		}
		if validateErr := ValidatePathWithinRoot(absPath, absRoot); validateErr != nil {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		return walkFn(path, d, nil)
	})
}

// ValidatePath implements Pathfinder by delegating to the package-level
// ValidatePath.
func (f *Finder) ValidatePath(path string) error {
	return ValidatePath(path)
}
