// Package schema has constants, models and record types for all parts of testhub.
package schema

import "time"

// Annotation is one annotation occurrence as produced by the source parser.
// Only literal arguments are kept: string literals are unquoted and concatenated,
// any other expression is kept as its source text.
type Annotation struct {
	Name   string                  // Simple name, e.g. "Test" for @org.junit.Test
	Args   map[string][]string     // Literal values per attribute; single-value form is "value"
	Nested map[string][]Annotation // Nested annotations per attribute, e.g. @Tags({@Tag("x")})
	Line   int                     // 1-based line of the '@'
}

// Values returns the literal values of an attribute, or nil when absent.
func (a Annotation) Values(key string) []string {
	if a.Args == nil {
		return nil
	}
	return a.Args[key]
}

// Value returns the first literal value of an attribute, or "" when absent.
func (a Annotation) Value(key string) string {
	vals := a.Values(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Has reports whether the attribute was written explicitly.
func (a Annotation) Has(key string) bool {
	if a.Args == nil {
		return false
	}
	_, ok := a.Args[key]
	return ok
}

// TestMethodAnnotation is the structured metadata carried by the rich annotation dialect.
// Array fields are never nil when produced by extraction.
type TestMethodAnnotation struct {
	Title               string   `json:"title"`
	Author              string   `json:"author"`
	Status              string   `json:"status"`
	TargetClass         string   `json:"targetClass"`
	TargetMethod        string   `json:"targetMethod"`
	Description         string   `json:"description"`
	Tags                []string `json:"tags"`
	TestPoints          []string `json:"testPoints"`
	RelatedRequirements []string `json:"relatedRequirements"`
	RelatedDefects      []string `json:"relatedDefects"`
	RelatedTestcases    []string `json:"relatedTestcases"`
	TestCaseIDs         []string `json:"testCaseIds"`
	LastUpdateTime      string   `json:"lastUpdateTime"`
	LastUpdateAuthor    string   `json:"lastUpdateAuthor"`
	MethodSignature     string   `json:"methodSignature"`
}

// TestMethodRecord is one discovered test method.
// Identity is (repository, class, MethodName, MethodSignature).
type TestMethodRecord struct {
	MethodName      string
	MethodSignature string
	ClassName       string
	PackageName     string
	FilePath        string // Relative to the repository root, '/' separated
	LineNumber      int    // 1-based
	TestCaseIDs     []string
	Annotation      *TestMethodAnnotation // nil when the method carries no rich annotation
}

// IsAnnotated reports whether the method carries rich metadata, titled or not.
func (m TestMethodRecord) IsAnnotated() bool {
	return m.Annotation != nil
}

// ScanStats counts work done during a scan, including what got dropped.
type ScanStats struct {
	RepositoriesVisited int
	RepositoriesSkipped int // Filtered out by include/exclude patterns
	RepositoriesEmpty   int // Scanned but had no test classes
	TestRoots           int
	FilesScanned        int
	FilesFailed         int
	FilesCached         int
}

// ScanSummary is the immutable result of one scan and the unit of persistence.
// Build it with a SummaryBuilder; do not mutate its fields afterwards.
type ScanSummary struct {
	ScanDirectory             string
	Timestamp                 time.Time
	Repositories              []*RepositoryRecord
	TotalRepositories         int
	TotalTestClasses          int
	TotalTestMethods          int
	TotalAnnotatedTestMethods int
	TotalTestCaseIDs          int
	Stats                     ScanStats
}

// CoverageRate returns the share of test methods carrying rich metadata, in percent.
func (s *ScanSummary) CoverageRate() float64 {
	return Percent(s.TotalAnnotatedTestMethods, s.TotalTestMethods)
}
