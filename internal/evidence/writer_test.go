package evidence

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleRecords() []Record {
	return []Record{
		newRecord("sess1", "step-0001", KindKeystroke, "USER01[enter]", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)),
		newRecord("sess1", "step-0002", KindScreenSnapshot, "MAIN MENU", time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC)),
	}
}

func TestWriteLedgerTextIncludesEveryRecord(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLedgerText(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteLedgerText() error = %v", err)
	}
	out := buf.String()
	if !bytes.Contains(buf.Bytes(), []byte("step-0001")) || !bytes.Contains(buf.Bytes(), []byte("step-0002")) {
		t.Fatalf("ledger text missing step IDs: %s", out)
	}
	if !bytes.Contains(buf.Bytes(), []byte("USER01[enter]")) {
		t.Fatalf("ledger text missing keystroke payload: %s", out)
	}
}

func TestBuildReportFiltersBySession(t *testing.T) {
	records := append(sampleRecords(), newRecord("sess2", "step-0003", KindKeystroke, "OTHER", time.Now()))
	rpt := BuildReport("sess1", records, nil)
	if len(rpt.Steps) != 2 {
		t.Fatalf("len(rpt.Steps) = %d, want 2 (filtered to sess1)", len(rpt.Steps))
	}
	for _, s := range rpt.Steps {
		if s.StepID == "step-0003" {
			t.Fatal("BuildReport leaked a step from a different session")
		}
	}
}

func TestWriteReportJSONRoundTrips(t *testing.T) {
	rpt := BuildReport("sess1", sampleRecords(), []reportField{{Start: 10, Length: 6, Value: "USER01"}})
	var buf bytes.Buffer
	if err := WriteReportJSON(&buf, rpt); err != nil {
		t.Fatalf("WriteReportJSON() error = %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if decoded.SessionID != "sess1" || len(decoded.Steps) != 2 || len(decoded.Fields) != 1 {
		t.Fatalf("decoded report = %+v, want matching sess1 with 2 steps and 1 field", decoded)
	}
}

func TestWriteStepScreenDumpCreatesFile(t *testing.T) {
	dir := t.TempDir()
	if err := WriteStepScreenDump(dir, "step-0001", "HELLO WORLD"); err != nil {
		t.Fatalf("WriteStepScreenDump() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "step-0001.txt"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "HELLO WORLD" {
		t.Errorf("file contents = %q, want HELLO WORLD", data)
	}
}
