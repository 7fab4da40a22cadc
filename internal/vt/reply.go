package vt

// BuildReply assembles the outbound record for aid by scanning the
// current field table: "Read MDT Fields" includes only fields whose MDT
// bit is set, "Read Input Fields" includes every unprotected field, and
// no pending read request (a bare AID with no preceding Read opcode)
// falls back to MDT-set, unprotected fields — the common case for a
// plain Enter off a data-entry screen.
func (v *VT) BuildReply(aid AID) ([]byte, error) {
	v.mu.Lock()
	mode := v.pendingReadMode
	table := v.fields
	cursor := v.planes.Cursor()
	v.mu.Unlock()

	out := []byte{byte(aid), byte(cursor >> 8), byte(cursor)}

	for _, f := range table.FieldsInReadingOrder() {
		switch mode {
		case readModeMDTFields:
			if !f.MDT {
				continue
			}
		case readModeInputFields:
			if f.Protected() {
				continue
			}
		default:
			if f.Protected() || !f.MDT {
				continue
			}
		}

		val, err := table.CopyFieldToString(f)
		if err != nil {
			return nil, err
		}
		enc := v.cdc.NewEncoder()
		encoded, err := enc.EncodeString(val)
		if err != nil {
			return nil, err
		}
		out = append(out, OrderSBA, byte(f.DataStart()>>8), byte(f.DataStart()))
		out = append(out, encoded...)
	}
	return out, nil
}

// TransmitReply builds the reply record for aid and writes it framed with
// IAC EOR through w. It marks SystemWait true (the host is now "thinking")
// and clears the pending read mode, matching a real terminal's state
// after sending a response.
func (v *VT) TransmitReply(w FrameWriter, aid AID) error {
	v.setState(StateReplying)
	defer v.setState(StateIdle)

	payload, err := v.BuildReply(aid)
	if err != nil {
		return err
	}
	if err := w.WriteEOR(payload); err != nil {
		return err
	}

	v.mu.Lock()
	v.pendingReadMode = readModeNone
	v.mu.Unlock()

	v.oia.SetSystemWait(true)
	v.emit(Event{Kind: EventReplySent})
	return nil
}
