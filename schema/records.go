package schema

import "time"

// TestClassRecord groups the test methods of one class.
// Counts are maintained by AddMethod and ReplaceMethods only.
type TestClassRecord struct {
	ClassName   string
	PackageName string
	FilePath    string
	Methods     []TestMethodRecord

	TotalTestMethods     int
	AnnotatedTestMethods int
	TestCaseIDCount      int
}

// AddMethod appends a method and updates the counts.
func (c *TestClassRecord) AddMethod(m TestMethodRecord) {
	c.Methods = append(c.Methods, m)
	c.count(m)
}

// ReplaceMethods swaps the whole method list and recomputes the counts from it.
func (c *TestClassRecord) ReplaceMethods(methods []TestMethodRecord) {
	c.Methods = make([]TestMethodRecord, 0, len(methods))
	c.TotalTestMethods, c.AnnotatedTestMethods, c.TestCaseIDCount = 0, 0, 0
	for _, m := range methods {
		c.AddMethod(m)
	}
}

// recount rebuilds the counts from the method list.
func (c *TestClassRecord) recount() {
	c.TotalTestMethods, c.AnnotatedTestMethods, c.TestCaseIDCount = 0, 0, 0
	for _, m := range c.Methods {
		c.count(m)
	}
}

func (c *TestClassRecord) clone() *TestClassRecord {
	cp := *c
	cp.Methods = append([]TestMethodRecord(nil), c.Methods...)
	cp.recount()
	return &cp
}

func (c *TestClassRecord) count(m TestMethodRecord) {
	c.TotalTestMethods++
	if m.IsAnnotated() {
		c.AnnotatedTestMethods++
	}
	c.TestCaseIDCount += len(m.TestCaseIDs)
}

// RepositoryRecord groups the test classes found in one repository checkout.
// The repository owns copies of its classes, so mutating a class after
// AddClass leaves the repository and its counts untouched.
type RepositoryRecord struct {
	Name       string
	LocalPath  string
	GitURL     string // Empty when no remote could be read
	TeamName   string
	TeamCode   string
	Department string
	Classes    []*TestClassRecord

	TotalTestClasses     int
	TotalTestMethods     int
	AnnotatedTestMethods int
	TestCaseIDCount      int
}

// AddClass appends a copy of the class and adds its counts.
func (r *RepositoryRecord) AddClass(c *TestClassRecord) {
	cp := c.clone()
	r.Classes = append(r.Classes, cp)
	r.TotalTestClasses++
	r.TotalTestMethods += cp.TotalTestMethods
	r.AnnotatedTestMethods += cp.AnnotatedTestMethods
	r.TestCaseIDCount += cp.TestCaseIDCount
}

// ReplaceClasses swaps the whole class list and recomputes the counts from it.
func (r *RepositoryRecord) ReplaceClasses(classes []*TestClassRecord) {
	r.Classes = make([]*TestClassRecord, 0, len(classes))
	r.TotalTestClasses, r.TotalTestMethods, r.AnnotatedTestMethods, r.TestCaseIDCount = 0, 0, 0, 0
	for _, c := range classes {
		r.AddClass(c)
	}
}

// clone deep-copies the repository and recounts it from its methods.
func (r *RepositoryRecord) clone() *RepositoryRecord {
	cp := *r
	cp.ReplaceClasses(r.Classes)
	return &cp
}

// SummaryBuilder accumulates repositories into a ScanSummary.
type SummaryBuilder struct {
	dir   string
	ts    time.Time
	repos []*RepositoryRecord
	stats ScanStats
}

// NewSummaryBuilder starts a summary for a scan directory.
func NewSummaryBuilder(dir string, ts time.Time) *SummaryBuilder {
	return &SummaryBuilder{dir: dir, ts: ts}
}

// AddRepository keeps the repository if it has at least one test class.
// It reports whether the repository was kept.
func (b *SummaryBuilder) AddRepository(r *RepositoryRecord) bool {
	if r == nil || len(r.Classes) == 0 {
		b.stats.RepositoriesEmpty++
		return false
	}
	b.repos = append(b.repos, r)
	return true
}

// Stats exposes the counters so the scanner can update them while walking.
func (b *SummaryBuilder) Stats() *ScanStats {
	return &b.stats
}

// Build returns a deep copy of everything added so far with counts rebuilt
// from the methods. The builder can keep being used; the result does not change.
func (b *SummaryBuilder) Build() *ScanSummary {
	repos := make([]*RepositoryRecord, len(b.repos))
	for i, r := range b.repos {
		repos[i] = r.clone()
	}

	s := &ScanSummary{
		ScanDirectory: b.dir,
		Timestamp:     b.ts,
		Repositories:  repos,
		Stats:         b.stats,
	}
	for _, r := range repos {
		s.TotalRepositories++
		s.TotalTestClasses += r.TotalTestClasses
		s.TotalTestMethods += r.TotalTestMethods
		s.TotalAnnotatedTestMethods += r.AnnotatedTestMethods
		s.TotalTestCaseIDs += r.TestCaseIDCount
	}
	return s
}
