// Package extract turns method annotations into external test-case identifiers.
package extract

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/huangsam/testhub/schema"
)

// IDPattern matches identifiers such as "TC-12" or "ORD-7": two or more letters, a hyphen, digits.
var IDPattern = regexp.MustCompile(`^[A-Za-z]{2,}-\d+$`)

// Extractor recognizes one annotation dialect.
type Extractor interface {
	// Name identifies the extractor in logs.
	Name() string
	// Priority orders extractors; higher runs first.
	Priority() int
	// Supports reports whether the annotation belongs to this dialect.
	Supports(a schema.Annotation) bool
	// Extract returns the identifiers carried by the annotation.
	Extract(a schema.Annotation) []string
}

// Registry runs extractors in priority order. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	extractors []Extractor
}

// NewRegistry creates a registry holding the given extractors.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// NewDefaultRegistry creates a registry with the built-in dialects.
func NewDefaultRegistry() *Registry {
	return NewRegistry(RichExtractor{}, IDExtractor{}, TagExtractor{})
}

// Register adds an extractor and re-sorts by priority. Ties keep registration order.
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors = append(r.extractors, e)
	sort.SliceStable(r.extractors, func(i, j int) bool {
		return r.extractors[i].Priority() > r.extractors[j].Priority()
	})
}

// Extractors returns the registered extractors in run order.
func (r *Registry) Extractors() []Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Extractor, len(r.extractors))
	copy(out, r.extractors)
	return out
}

// ExtractAll runs every supporting extractor over every annotation and returns
// the identifiers deduplicated in first-seen order. The result is never nil.
func (r *Registry) ExtractAll(annotations []schema.Annotation) []string {
	if len(annotations) == 0 {
		return []string{}
	}
	var ids []string
	for _, e := range r.Extractors() {
		for _, a := range annotations {
			if e.Supports(a) {
				ids = append(ids, schema.CleanTokens(e.Extract(a))...)
			}
		}
	}
	return schema.Dedup(ids)
}

// idsIn returns every identifier-shaped token found in the values, in order.
func idsIn(values []string) []string {
	var out []string
	for _, v := range values {
		for _, f := range strings.FieldsFunc(v, isSeparator) {
			if IDPattern.MatchString(f) {
				out = append(out, f)
			}
		}
	}
	return out
}

func isSeparator(r rune) bool {
	return r != '-' && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
