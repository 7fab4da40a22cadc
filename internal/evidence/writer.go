package evidence

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteLedgerText writes one line per record to w, in the plain log idiom:
// "<timestamp> [<step_id>] <session_id> <kind>: <payload>".
func WriteLedgerText(w io.Writer, records []Record) error {
	for _, rec := range records {
		line := fmt.Sprintf("%s [%s] %s %s: %s\n",
			rec.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			rec.StepID, rec.SessionID, rec.Kind, rec.Payload)
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

// reportField is one entry in the JSON report's field_map.
type reportField struct {
	Start     int    `json:"start"`
	Length    int    `json:"length"`
	Protected bool   `json:"protected"`
	Value     string `json:"value"`
}

// reportStep is one keystroke-timeline entry in the JSON report.
type reportStep struct {
	StepID    string `json:"step_id"`
	Timestamp string `json:"timestamp"`
	Kind      Kind   `json:"kind"`
	Payload   string `json:"payload"`
}

// Report is the end-of-run JSON summary: the session's step timeline
// (keystrokes, waits, snapshots, errors and recorded OIA transitions) and
// an optional field map. It has no separate field for the final OIA state.
type Report struct {
	SessionID string        `json:"session_id"`
	Steps     []reportStep  `json:"steps"`
	Fields    []reportField `json:"fields,omitempty"`
}

// BuildReport projects records for sessionID into a Report. fields is
// optional final field-map detail (pass nil to omit it).
func BuildReport(sessionID string, records []Record, fields []reportField) Report {
	rpt := Report{SessionID: sessionID, Fields: fields}
	for _, rec := range records {
		if rec.SessionID != sessionID {
			continue
		}
		rpt.Steps = append(rpt.Steps, reportStep{
			StepID:    rec.StepID,
			Timestamp: rec.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			Kind:      rec.Kind,
			Payload:   rec.Payload,
		})
	}
	return rpt
}

// WriteReportJSON marshals rpt as indented JSON to w.
func WriteReportJSON(w io.Writer, rpt Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rpt)
}

// WriteStepScreenDump writes one step's plain-text screen contents to
// <dir>/<step_id>.txt, creating dir if necessary.
func WriteStepScreenDump(dir string, stepID string, screenText string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("evidence: failed to create screen dump dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, stepID+".txt")
	return os.WriteFile(path, []byte(screenText), 0o644)
}
