package session

import (
	"strings"

	"github.com/stlalpha/tn5250agent/internal/vt"
)

// navMnemonics are bracketed mnemonics that move the cursor between
// fields rather than producing an AID. They are applied immediately as
// SendKeys walks segments.
const (
	navTab    = "tab"
	navBacktab = "backtab"
)

// segment is one piece of a parsed SendKeys input: literal text to write
// into the field under the cursor, optionally followed by a navigation
// mnemonic or (at most once per input) an AID.
type segment struct {
	text string
	nav  string // "" or one of navTab/navBacktab
	aid  vt.AID
	hasAID bool
}

// parseKeystrokes splits a SendKeys input string like
// "USER01[tab]PASS[enter]" into an ordered list of segments. It returns
// *MultipleAidError if more than one bracketed mnemonic resolves to an
// AID — the input is rejected without producing any segments, so the
// caller never partially applies it.
func parseKeystrokes(input string) ([]segment, error) {
	var segments []segment
	var aidSeen bool

	i := 0
	var textBuf strings.Builder
	flushText := func() {
		if textBuf.Len() > 0 {
			segments = append(segments, segment{text: textBuf.String()})
			textBuf.Reset()
		}
	}

	for i < len(input) {
		if input[i] != '[' {
			textBuf.WriteByte(input[i])
			i++
			continue
		}
		start := i
		relEnd := strings.IndexByte(input[i:], ']')
		if relEnd < 0 {
			// Unterminated bracket: treat the rest as literal text.
			textBuf.WriteString(input[i:])
			break
		}
		end := i + relEnd // index of ']'
		raw := input[start+1 : end]
		mnemonic := strings.ToLower(raw)
		i = end + 1

		if aid, ok := vt.LookupAID(mnemonic); ok {
			if aidSeen {
				return nil, &MultipleAidError{Input: input}
			}
			aidSeen = true
			flushText()
			segments = append(segments, segment{aid: aid, hasAID: true})
			continue
		}

		switch mnemonic {
		case navTab, navBacktab:
			flushText()
			segments = append(segments, segment{nav: mnemonic})
		default:
			// Unknown mnemonic: pass the bracketed text through
			// literally, matching a terminal that doesn't recognize it.
			textBuf.WriteString(input[start : end+1])
		}
	}
	flushText()
	return segments, nil
}
