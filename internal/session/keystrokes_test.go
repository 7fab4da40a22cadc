package session

import "testing"

func TestParseKeystrokesTextAndAID(t *testing.T) {
	segs, err := parseKeystrokes("USER01[enter]")
	if err != nil {
		t.Fatalf("parseKeystrokes() error = %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("len(segs) = %d, want 2", len(segs))
	}
	if segs[0].text != "USER01" {
		t.Errorf("segs[0].text = %q, want USER01", segs[0].text)
	}
	if !segs[1].hasAID {
		t.Errorf("segs[1].hasAID = false, want true")
	}
}

func TestParseKeystrokesRejectsMultipleAIDs(t *testing.T) {
	_, err := parseKeystrokes("A[enter]B[clear]")
	if err == nil {
		t.Fatal("parseKeystrokes() error = nil, want *MultipleAidError")
	}
	if _, ok := err.(*MultipleAidError); !ok {
		t.Fatalf("parseKeystrokes() error type = %T, want *MultipleAidError", err)
	}
}

func TestParseKeystrokesNavMnemonics(t *testing.T) {
	segs, err := parseKeystrokes("USER01[tab]PASS01[backtab]X")
	if err != nil {
		t.Fatalf("parseKeystrokes() error = %v", err)
	}
	var navs []string
	for _, s := range segs {
		if s.nav != "" {
			navs = append(navs, s.nav)
		}
	}
	if len(navs) != 2 || navs[0] != navTab || navs[1] != navBacktab {
		t.Fatalf("navs = %v, want [tab backtab]", navs)
	}
}

func TestParseKeystrokesUnknownMnemonicPassesThroughLiterally(t *testing.T) {
	segs, err := parseKeystrokes("A[bogus]B")
	if err != nil {
		t.Fatalf("parseKeystrokes() error = %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("len(segs) = %d, want 1", len(segs))
	}
	if segs[0].text != "A[bogus]B" {
		t.Errorf("segs[0].text = %q, want A[bogus]B", segs[0].text)
	}
}

func TestParseKeystrokesUnterminatedBracket(t *testing.T) {
	segs, err := parseKeystrokes("A[enter")
	if err != nil {
		t.Fatalf("parseKeystrokes() error = %v", err)
	}
	if len(segs) != 1 || segs[0].text != "A[enter" {
		t.Fatalf("segs = %+v, want single literal segment A[enter", segs)
	}
}

func TestParseKeystrokesCaseInsensitiveMnemonic(t *testing.T) {
	segs, err := parseKeystrokes("[ENTER]")
	if err != nil {
		t.Fatalf("parseKeystrokes() error = %v", err)
	}
	if len(segs) != 1 || !segs[0].hasAID {
		t.Fatalf("segs = %+v, want single AID segment", segs)
	}
}
