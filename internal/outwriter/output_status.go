package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/schema"
)

// WriteStatusView outputs store status, recent sessions and daily metrics.
func WriteStatusView(view StatusView, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStatusJSON(w, view)
		}, "Wrote JSON")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStatusText(w, view, cfg)
		}, "Wrote status")
	}
}

type jsonSession struct {
	ID           int64     `json:"id"`
	ScanDate     time.Time `json:"scan_date"`
	ScanDir      string    `json:"scan_directory"`
	Repositories int       `json:"total_repositories"`
	Classes      int       `json:"total_test_classes"`
	Methods      int       `json:"total_test_methods"`
	Annotated    int       `json:"total_annotated_test_methods"`
	CaseIDs      int       `json:"total_test_case_ids"`
	DurationMs   int64     `json:"duration_ms"`
	Status       string    `json:"status"`
	Error        *string   `json:"error_message,omitempty"`
}

type jsonMetric struct {
	Date         string  `json:"metric_date"`
	Repositories int     `json:"total_repositories"`
	Classes      int     `json:"total_test_classes"`
	Methods      int     `json:"total_test_methods"`
	Annotated    int     `json:"total_annotated_test_methods"`
	Coverage     float64 `json:"coverage_rate"`
	NewMethods   int     `json:"new_test_methods"`
	NewAnnotated int     `json:"new_annotated_test_methods"`
	SessionID    int64   `json:"scan_session_id"`
}

type jsonStatus struct {
	Store     schema.StoreStatus  `json:"store"`
	Sessions  []jsonSession       `json:"sessions"`
	Metrics   []jsonMetric        `json:"daily_metrics"`
	Scheduler *schema.RunSnapshot `json:"scheduler,omitempty"`
}

func writeStatusJSON(w io.Writer, view StatusView) error {
	out := jsonStatus{
		Store:     view.Store,
		Sessions:  make([]jsonSession, 0, len(view.Sessions)),
		Metrics:   make([]jsonMetric, 0, len(view.Metrics)),
		Scheduler: view.Scheduler,
	}
	for _, s := range view.Sessions {
		out.Sessions = append(out.Sessions, jsonSession{
			ID:           s.ID,
			ScanDate:     s.ScanDate,
			ScanDir:      s.ScanDirectory,
			Repositories: s.TotalRepositories,
			Classes:      s.TotalTestClasses,
			Methods:      s.TotalTestMethods,
			Annotated:    s.TotalAnnotatedTestMethods,
			CaseIDs:      s.TotalTestCaseIDs,
			DurationMs:   s.DurationMs,
			Status:       string(s.Status),
			Error:        s.ErrorMessage,
		})
	}
	for _, m := range view.Metrics {
		out.Metrics = append(out.Metrics, jsonMetric{
			Date:         m.MetricDate,
			Repositories: m.TotalRepositories,
			Classes:      m.TotalTestClasses,
			Methods:      m.TotalTestMethods,
			Annotated:    m.TotalAnnotatedTestMethods,
			Coverage:     m.CoverageRate,
			NewMethods:   m.NewTestMethods,
			NewAnnotated: m.NewAnnotatedTestMethods,
			SessionID:    m.ScanSessionID,
		})
	}
	return writeJSON(w, out)
}

func writeStatusText(w io.Writer, view StatusView, cfg *contract.Config) error {
	st := view.Store
	connected := contract.FailureColor.Sprint("disconnected")
	if st.Connected {
		connected = contract.SuccessColor.Sprint("connected")
	}
	if _, err := fmt.Fprintf(w, "Store: %s (%s), %d sessions\n", st.Backend, connected, st.TotalSessions); err != nil {
		return err
	}
	if st.LastSessionID > 0 {
		if _, err := fmt.Fprintf(w, "Last session: %d, %s\n", st.LastSessionID, humanize.Time(st.LastScanTime)); err != nil {
			return err
		}
	}

	if snap := view.Scheduler; snap != nil {
		if err := writeSnapshot(w, *snap); err != nil {
			return err
		}
	}

	if len(st.TableSizes) > 0 {
		if err := section(w, "Tables"); err != nil {
			return err
		}
		var rows [][]string
		for _, name := range schema.AllTables {
			if n, ok := st.TableSizes[name]; ok {
				rows = append(rows, []string{name, humanize.Comma(n)})
			}
		}
		if err := renderTable(w, []string{"Table", "Rows"}, rows); err != nil {
			return err
		}
	}

	if err := section(w, "Recent sessions"); err != nil {
		return err
	}
	dirWidth := GetMaxTablePathWidth(cfg, sessionsFixedWidth)
	rows := make([][]string, 0, len(view.Sessions))
	for _, s := range view.Sessions {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			contract.GetColorLabel(string(s.Status)),
			s.ScanDate.Local().Format(time.DateTime),
			contract.TruncatePath(s.ScanDirectory, dirWidth),
			humanize.Comma(int64(s.TotalRepositories)),
			humanize.Comma(int64(s.TotalTestMethods)),
			humanize.Comma(int64(s.TotalAnnotatedTestMethods)),
			(time.Duration(s.DurationMs) * time.Millisecond).String(),
		})
	}
	if err := renderTable(w, []string{"ID", "Status", "Started", "Directory", "Repos", "Methods", "Annotated", "Duration"}, rows); err != nil {
		return err
	}

	if len(view.Metrics) == 0 {
		return nil
	}
	if err := section(w, "Daily metrics"); err != nil {
		return err
	}
	rows = make([][]string, 0, len(view.Metrics))
	for _, m := range view.Metrics {
		rows = append(rows, []string{
			m.MetricDate,
			humanize.Comma(int64(m.TotalRepositories)),
			humanize.Comma(int64(m.TotalTestMethods)),
			humanize.Comma(int64(m.TotalAnnotatedTestMethods)),
			formatPercent(m.CoverageRate),
			formatDelta(m.NewTestMethods),
			formatDelta(m.NewAnnotatedTestMethods),
		})
	}
	return renderTable(w, []string{"Date", "Repos", "Methods", "Annotated", "Coverage", "New", "New annotated"}, rows)
}

func writeSnapshot(w io.Writer, snap schema.RunSnapshot) error {
	last := "never"
	if !snap.LastRunTime.IsZero() {
		last = humanize.Time(snap.LastRunTime)
	}
	if _, err := fmt.Fprintf(w, "Scheduler: %s, last run %s, schedule %q", contract.GetColorLabel(string(snap.Status)), last, snap.Schedule); err != nil {
		return err
	}
	if !snap.NextRunTime.IsZero() {
		if _, err := fmt.Fprintf(w, ", next run %s", humanize.Time(snap.NextRunTime)); err != nil {
			return err
		}
	}
	if snap.Running {
		if _, err := fmt.Fprint(w, ", "+contract.RunningColor.Sprint("running")); err != nil {
			return err
		}
	}
	if snap.LastError != "" {
		if _, err := fmt.Fprintf(w, "\n  last error: %s", snap.LastError); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func formatDelta(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
