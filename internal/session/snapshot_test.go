package session

import "testing"

func TestScreenSnapshotTextJoinsRows(t *testing.T) {
	s := ScreenSnapshot{Rows: []string{"AAA", "BBB"}}
	if s.Text() != "AAA\nBBB" {
		t.Errorf("Text() = %q, want %q", s.Text(), "AAA\nBBB")
	}
}

func TestScreenSnapshotTextContains(t *testing.T) {
	s := ScreenSnapshot{Rows: []string{"SIGN ON TO AS/400"}}
	if !s.TextContains("AS/400") {
		t.Error("TextContains() = false, want true")
	}
	if s.TextContains("NOPE") {
		t.Error("TextContains() = true, want false")
	}
}

func TestFieldBySelectorByIndex(t *testing.T) {
	s := ScreenSnapshot{Fields: []FieldView{{Start: 5, Value: "A"}, {Start: 20, Value: "B"}}}
	f, ok := s.FieldBySelector(ByIndex(1))
	if !ok || f.Value != "B" {
		t.Fatalf("FieldBySelector(ByIndex(1)) = %+v, %v, want B, true", f, ok)
	}
	if _, ok := s.FieldBySelector(ByIndex(5)); ok {
		t.Error("FieldBySelector(ByIndex(5)) ok = true, want false (out of range)")
	}
}

func TestFieldBySelectorByPosition(t *testing.T) {
	s := ScreenSnapshot{Fields: []FieldView{{Start: 10, Length: 6, Value: "HELLO "}}}
	f, ok := s.FieldBySelector(ByPosition(12))
	if !ok || f.Value != "HELLO " {
		t.Fatalf("FieldBySelector(ByPosition(12)) = %+v, %v, want HELLO , true", f, ok)
	}
	if _, ok := s.FieldBySelector(ByPosition(100)); ok {
		t.Error("FieldBySelector(ByPosition(100)) ok = true, want false")
	}
}
