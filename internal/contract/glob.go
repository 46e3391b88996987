package contract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Glob is a compiled path pattern. A single star matches a run of characters
// other than '/', a double star matches any run including '/' ("**/" also
// matches nothing) and a question mark matches one character other than '/'.
// Everything else matches itself. Matching is anchored at both ends.
type Glob struct {
	pattern string
	re      *regexp.Regexp
}

// CompileGlob translates a glob pattern into an anchored regular expression.
func CompileGlob(pattern string) (*Glob, error) {
	pattern = NormalizeRelPath(pattern)
	if pattern == "" {
		return nil, Wrap(ErrConfig, "empty glob pattern", nil)
	}

	var sb strings.Builder
	sb.WriteString("^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch c := runes[i]; c {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				i++
				if i+1 < len(runes) && runes[i+1] == '/' {
					i++
					sb.WriteString("(?:.*/)?")
				} else {
					sb.WriteString(".*")
				}
				continue
			}
			sb.WriteString("[^/]*")
		case '?':
			sb.WriteString("[^/]")
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, Wrap(ErrConfig, fmt.Sprintf("invalid glob %q", pattern), err)
	}
	return &Glob{pattern: pattern, re: re}, nil
}

// Match reports whether the path matches the pattern.
func (g *Glob) Match(path string) bool {
	return g.re.MatchString(NormalizeRelPath(path))
}

// String returns the source pattern.
func (g *Glob) String() string {
	return g.pattern
}

// PathFilter decides which hub-relative repository paths get scanned.
type PathFilter struct {
	Include []*Glob
	Exclude []*Glob
}

// NewPathFilter compiles include and exclude patterns, ignoring blank ones.
func NewPathFilter(include, exclude []string) (*PathFilter, error) {
	f := &PathFilter{}
	for _, p := range include {
		if strings.TrimSpace(p) == "" {
			continue
		}
		g, err := CompileGlob(p)
		if err != nil {
			return nil, err
		}
		f.Include = append(f.Include, g)
	}
	for _, p := range exclude {
		if strings.TrimSpace(p) == "" {
			continue
		}
		g, err := CompileGlob(p)
		if err != nil {
			return nil, err
		}
		f.Exclude = append(f.Exclude, g)
	}
	return f, nil
}

// Allow reports whether relPath passes the filter.
// Exclusion wins over inclusion; without include patterns everything is included.
func (f *PathFilter) Allow(relPath string) bool {
	if f == nil {
		return true
	}
	for _, g := range f.Exclude {
		if g.Match(relPath) {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, g := range f.Include {
		if g.Match(relPath) {
			return true
		}
	}
	return false
}

// NormalizeRelPath converts a relative path to '/' separators without
// a leading "./" or a trailing '/'.
func NormalizeRelPath(p string) string {
	p = strings.TrimSpace(filepath.ToSlash(p))
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
