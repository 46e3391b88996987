package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/testhub/core"
	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/schema"
)

// WriteScanResult outputs a scan run, dispatching on the configured output format.
func WriteScanResult(view ScanView, cfg *contract.Config) error {
	if view.Summary == nil {
		return fmt.Errorf("no scan summary to write")
	}
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScanJSON(w, view, cfg.Limit)
		}, "Wrote JSON")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScanTable(w, view, cfg)
		}, "Wrote table")
	}
}

type jsonScan struct {
	SessionID    int64                     `json:"session_id"`
	ScanDir      string                    `json:"scan_directory"`
	Timestamp    time.Time                 `json:"timestamp"`
	DurationMs   int64                     `json:"duration_ms"`
	Repositories int                       `json:"total_repositories"`
	Classes      int                       `json:"total_test_classes"`
	Methods      int                       `json:"total_test_methods"`
	Annotated    int                       `json:"total_annotated_test_methods"`
	CaseIDs      int                       `json:"total_test_case_ids"`
	Coverage     float64                   `json:"coverage_rate"`
	Top          []core.RepositoryCoverage `json:"repositories"`
	Stats        schema.ScanStats          `json:"scan_stats"`
	Sync         jsonSync                  `json:"sync"`
	Skipped      []jsonSkipped             `json:"skipped_rows,omitempty"`
	Reports      []string                  `json:"reports,omitempty"`
}

type jsonSkipped struct {
	Table string `json:"table"`
	Key   string `json:"key"`
	Error string `json:"error"`
}

func writeScanJSON(w io.Writer, view ScanView, limit int) error {
	s := view.Summary
	out := jsonScan{
		SessionID:    view.SessionID,
		ScanDir:      s.ScanDirectory,
		Timestamp:    s.Timestamp,
		DurationMs:   view.Duration.Milliseconds(),
		Repositories: s.TotalRepositories,
		Classes:      s.TotalTestClasses,
		Methods:      s.TotalTestMethods,
		Annotated:    s.TotalAnnotatedTestMethods,
		CaseIDs:      s.TotalTestCaseIDs,
		Coverage:     s.CoverageRate(),
		Top:          core.RankRepositories(core.RepositoryCoverages(s), limit),
		Stats:        s.Stats,
		Sync:         toJSONSync(view.Sync),
		Reports:      view.Reports,
	}
	for _, sk := range view.Persist.Skipped {
		out.Skipped = append(out.Skipped, jsonSkipped{Table: sk.Table, Key: sk.Key, Error: errString(sk.Err)})
	}
	return writeJSON(w, out)
}

func writeScanTable(w io.Writer, view ScanView, cfg *contract.Config) error {
	s := view.Summary
	nameWidth := GetMaxTablePathWidth(cfg, summaryFixedWidth)
	var rows [][]string
	for _, r := range core.RankRepositories(core.RepositoryCoverages(s), cfg.Limit) {
		rows = append(rows, []string{
			contract.TruncatePath(r.Name, nameWidth),
			r.TeamCode,
			humanize.Comma(int64(r.Classes)),
			humanize.Comma(int64(r.Methods)),
			humanize.Comma(int64(r.Annotated)),
			humanize.Comma(int64(r.CaseIDs)),
			formatPercent(r.Coverage),
		})
	}
	if err := renderTable(w, []string{"Repository", "Team", "Classes", "Methods", "Annotated", "Case IDs", "Coverage"}, rows); err != nil {
		return err
	}

	lines := []string{
		fmt.Sprintf("Showing top %d of %d repositories (%s classes, %s methods, %s annotated, %s coverage)",
			len(rows), s.TotalRepositories, humanize.Comma(int64(s.TotalTestClasses)), humanize.Comma(int64(s.TotalTestMethods)),
			humanize.Comma(int64(s.TotalAnnotatedTestMethods)), formatPercent(s.CoverageRate())),
		fmt.Sprintf("Files: %d scanned, %d cached, %d failed. Repositories: %d visited, %d filtered, %d without tests",
			s.Stats.FilesScanned, s.Stats.FilesCached, s.Stats.FilesFailed,
			s.Stats.RepositoriesVisited, s.Stats.RepositoriesSkipped, s.Stats.RepositoriesEmpty),
		fmt.Sprintf("Sync: %d succeeded, %d failed", view.Sync.Succeeded, view.Sync.Failed),
	}
	if view.SessionID > 0 {
		lines = append(lines, fmt.Sprintf("Session %d persisted in %s (%d batches, %d row fallbacks, %d rows skipped)",
			view.SessionID, view.Duration.Round(time.Millisecond), view.Persist.Batches, view.Persist.Fallbacks, len(view.Persist.Skipped)))
	}
	for _, p := range view.Reports {
		lines = append(lines, "Report: "+p)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
