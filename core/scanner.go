package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/testhub/core/extract"
	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/internal/javaparse"
	"github.com/huangsam/testhub/schema"
)

// TestMarkers are the annotations that make a method a test.
var TestMarkers = map[string]struct{}{
	"Test":              {},
	"ParameterizedTest": {},
	"RepeatedTest":      {},
	"TestFactory":       {},
	"TestTemplate":      {},
}

// TestRoots are the conventional test source roots, checked in this order.
var TestRoots = []string{
	"src/test/java",
	"src/it/java",
	"src/integration-test/java",
	"src/integrationTest/java",
	"test/java",
	"test",
}

// MainSourceRoot is searched for extra directories named TestDirName.
const (
	MainSourceRoot = "src/main/java"
	TestDirName    = "test"
	SourceSuffix   = ".java"
	RepoMarker     = ".git"
)

// Scanner walks a hub and builds a ScanSummary from the test sources it finds.
type Scanner struct {
	registry *extract.Registry
	filter   *contract.PathFilter
	repos    map[string]contract.RepositorySpec
	cache    *ParseCache
	now      func() time.Time
}

var _ contract.Scanner = &Scanner{} // Compile-time check

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithRepositories attaches team metadata to repositories by hub folder name.
func WithRepositories(specs []contract.RepositorySpec) ScannerOption {
	return func(s *Scanner) {
		for _, spec := range specs {
			s.repos[spec.Name] = spec
		}
	}
}

// WithParseCache reuses parse results of unchanged files across scans.
func WithParseCache(c *ParseCache) ScannerOption {
	return func(s *Scanner) { s.cache = c }
}

// WithClock overrides the summary timestamp source.
func WithClock(now func() time.Time) ScannerOption {
	return func(s *Scanner) { s.now = now }
}

// NewScanner creates a scanner. A nil registry means the built-in dialects.
func NewScanner(registry *extract.Registry, filter *contract.PathFilter, opts ...ScannerOption) *Scanner {
	if registry == nil {
		registry = extract.NewDefaultRegistry()
	}
	s := &Scanner{
		registry: registry,
		filter:   filter,
		repos:    map[string]contract.RepositorySpec{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewScannerFromConfig creates a scanner for the validated config.
func NewScannerFromConfig(cfg *contract.Config, cache *ParseCache) (*Scanner, error) {
	filter, err := contract.NewPathFilter(cfg.Include, cfg.Exclude)
	if err != nil {
		return nil, err
	}
	return NewScanner(extract.NewDefaultRegistry(), filter,
		WithRepositories(cfg.Repositories),
		WithParseCache(cache),
	), nil
}

// Scan walks root depth-first in directory order. A directory holding a
// repository marker is scanned as one repository and not descended into.
// File-level failures are logged and counted; only an unreadable root or
// a cancelled context fails the scan.
func (s *Scanner) Scan(ctx context.Context, root string) (*schema.ScanSummary, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, contract.Wrap(contract.ErrIO, "resolve scan root", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, contract.Wrap(contract.ErrIO, fmt.Sprintf("scan root %s", abs), err)
	}
	if !info.IsDir() {
		return nil, contract.Wrap(contract.ErrIO, fmt.Sprintf("scan root %s is not a directory", abs), nil)
	}

	b := schema.NewSummaryBuilder(abs, s.now())
	if err := s.visit(ctx, abs, abs, b); err != nil {
		return nil, err
	}
	summary := b.Build()
	contract.LogInfof("scanned %d repositories: %d test classes, %d test methods, %d annotated",
		summary.TotalRepositories, summary.TotalTestClasses, summary.TotalTestMethods, summary.TotalAnnotatedTestMethods)
	return summary, nil
}

func (s *Scanner) visit(ctx context.Context, root, dir string, b *schema.SummaryBuilder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if isRepoRoot(dir) {
		rel := relSlash(root, dir)
		if rel == "." {
			rel = filepath.Base(dir)
		}
		if !s.filter.Allow(rel) {
			b.Stats().RepositoriesSkipped++
			return nil
		}
		b.Stats().RepositoriesVisited++
		repo, err := s.scanRepository(ctx, dir, b.Stats())
		if err != nil {
			return err
		}
		b.AddRepository(repo)
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if dir == root {
			return contract.Wrap(contract.ErrIO, fmt.Sprintf("read %s", dir), err)
		}
		contract.LogWarn(fmt.Sprintf("skipping unreadable directory %s", dir), err)
		return nil
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := s.visit(ctx, root, filepath.Join(dir, e.Name()), b); err != nil {
			return err
		}
	}
	return nil
}

// scanRepository builds the record of one repository checkout.
func (s *Scanner) scanRepository(ctx context.Context, dir string, stats *schema.ScanStats) (*schema.RepositoryRecord, error) {
	name := filepath.Base(dir)
	spec := s.repos[name]
	repo := &schema.RepositoryRecord{
		Name:       name,
		LocalPath:  dir,
		GitURL:     contract.ReadRemoteURL(dir),
		TeamName:   spec.TeamName,
		TeamCode:   spec.TeamCode,
		Department: spec.Department,
	}
	if repo.GitURL == "" {
		repo.GitURL = spec.URL
	}

	seen := map[string]struct{}{}
	for _, testRoot := range DiscoverTestRoots(dir) {
		stats.TestRoots++
		files, err := sourceFiles(testRoot)
		if err != nil {
			contract.LogWarn(fmt.Sprintf("listing %s", testRoot), err)
		}
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			for _, cls := range s.scanFile(dir, path, stats) {
				repo.AddClass(cls)
			}
		}
	}
	return repo, nil
}

// scanFile returns the test classes of one source file. Failures are logged and counted.
func (s *Scanner) scanFile(repoDir, path string, stats *schema.ScanStats) []*schema.TestClassRecord {
	parsed, cached, err := s.parse(path)
	if err != nil {
		stats.FilesFailed++
		contract.LogWarn(fmt.Sprintf("skipping %s", path), err)
		return nil
	}
	stats.FilesScanned++
	if cached {
		stats.FilesCached++
	}

	rel := relSlash(repoDir, path)
	var classes []*schema.TestClassRecord
	for _, c := range parsed.Classes {
		cls := &schema.TestClassRecord{
			ClassName:   c.Name,
			PackageName: parsed.Package,
			FilePath:    rel,
		}
		for _, m := range c.Methods {
			if !IsTestMethod(m) {
				continue
			}
			sig := m.Signature()
			cls.AddMethod(schema.TestMethodRecord{
				MethodName:      m.Name,
				MethodSignature: sig,
				ClassName:       c.Name,
				PackageName:     parsed.Package,
				FilePath:        rel,
				LineNumber:      m.Line,
				TestCaseIDs:     s.registry.ExtractAll(m.Annotations),
				Annotation:      extract.DecodeMetadata(m.Annotations, sig),
			})
		}
		if cls.TotalTestMethods > 0 {
			classes = append(classes, cls)
		}
	}
	return classes
}

func (s *Scanner) parse(path string) (*javaparse.File, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, contract.Wrap(contract.ErrIO, "stat", err)
	}
	if f, ok := s.cache.Get(path, info); ok {
		return f, true, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, false, contract.Wrap(contract.ErrIO, "read", err)
	}
	f, err := javaparse.Parse(path, src)
	if err != nil {
		return nil, false, err
	}
	s.cache.Put(path, info, f)
	return f, false, nil
}

// IsTestMethod reports whether the method carries a test marker annotation.
func IsTestMethod(m *javaparse.Method) bool {
	for _, a := range m.Annotations {
		if _, ok := TestMarkers[a.Name]; ok {
			return true
		}
	}
	return false
}

// DiscoverTestRoots returns every existing test root of a repository: the
// conventional roots in order, then each directory named "test" under the
// main source root. Paths are absolute and unique.
func DiscoverTestRoots(repoDir string) []string {
	var roots []string
	seen := map[string]struct{}{}
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		roots = append(roots, p)
	}

	for _, rel := range TestRoots {
		p := filepath.Join(repoDir, filepath.FromSlash(rel))
		if isDir(p) {
			add(p)
		}
	}

	main := filepath.Join(repoDir, filepath.FromSlash(MainSourceRoot))
	if !isDir(main) {
		return roots
	}
	_ = filepath.WalkDir(main, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && p != main && d.Name() == TestDirName {
			add(p)
			return filepath.SkipDir
		}
		return nil
	})
	return roots
}

// sourceFiles lists the source files under dir in lexical order.
func sourceFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), SourceSuffix) {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func isRepoRoot(dir string) bool {
	_, err := os.Lstat(filepath.Join(dir, RepoMarker))
	return err == nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func relSlash(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}
