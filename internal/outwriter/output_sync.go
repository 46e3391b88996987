package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/schema"
)

type jsonOutcome struct {
	Name       string `json:"name"`
	Action     string `json:"action"`
	Attempts   int    `json:"attempts"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

type jsonSync struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Outcomes  []jsonOutcome `json:"outcomes"`
}

func toJSONSync(r schema.SyncReport) jsonSync {
	out := jsonSync{Succeeded: r.Succeeded, Failed: r.Failed, Outcomes: []jsonOutcome{}}
	for _, o := range r.Outcomes {
		out.Outcomes = append(out.Outcomes, jsonOutcome{
			Name:       o.Name,
			Action:     syncAction(o),
			Attempts:   o.Attempts,
			DurationMs: o.Duration.Milliseconds(),
			Error:      errString(o.Err),
		})
	}
	return out
}

func syncAction(o schema.SyncOutcome) string {
	if o.Cloned {
		return "clone"
	}
	return "pull"
}

// WriteSyncReport outputs a hub synchronization pass.
func WriteSyncReport(report schema.SyncReport, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, toJSONSync(report))
		}, "Wrote JSON")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSyncTable(w, report)
		}, "Wrote table")
	}
}

func writeSyncTable(w io.Writer, report schema.SyncReport) error {
	rows := make([][]string, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		result := contract.SuccessColor.Sprint("ok")
		if o.Err != nil {
			result = contract.FailureColor.Sprint(o.Err.Error())
		}
		rows = append(rows, []string{
			o.Name,
			syncAction(o),
			strconv.Itoa(o.Attempts),
			o.Duration.Round(time.Millisecond).String(),
			result,
		})
	}
	if err := renderTable(w, []string{"Repository", "Action", "Attempts", "Duration", "Result"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Synced %d of %d repositories\n", report.Succeeded, len(report.Outcomes))
	return err
}
