package core

import (
	"sort"

	"github.com/huangsam/testhub/schema"
)

// RepositoryCoverage is the per-repository line of a scan summary.
type RepositoryCoverage struct {
	Name      string  `json:"name"`
	TeamCode  string  `json:"team_code"`
	Classes   int     `json:"classes"`
	Methods   int     `json:"methods"`
	Annotated int     `json:"annotated"`
	CaseIDs   int     `json:"case_ids"`
	Coverage  float64 `json:"coverage"`
}

// RepositoryCoverages lists the repositories of a summary in scan order.
func RepositoryCoverages(s *schema.ScanSummary) []RepositoryCoverage {
	out := make([]RepositoryCoverage, 0, len(s.Repositories))
	for _, r := range s.Repositories {
		out = append(out, RepositoryCoverage{
			Name:      r.Name,
			TeamCode:  r.TeamCode,
			Classes:   r.TotalTestClasses,
			Methods:   r.TotalTestMethods,
			Annotated: r.AnnotatedTestMethods,
			CaseIDs:   r.TestCaseIDCount,
			Coverage:  schema.Percent(r.AnnotatedTestMethods, r.TotalTestMethods),
		})
	}
	return out
}

// RankRepositories sorts repositories by test method count in descending
// order and returns the top 'limit' ones. Ties keep name order.
func RankRepositories(repos []RepositoryCoverage, limit int) []RepositoryCoverage {
	sort.SliceStable(repos, func(i, j int) bool {
		if repos[i].Methods != repos[j].Methods {
			return repos[i].Methods > repos[j].Methods
		}
		return repos[i].Name < repos[j].Name
	})
	if limit > 0 && len(repos) > limit {
		return repos[:limit]
	}
	return repos
}
