package negotiate

import "testing"

func TestDeviceTypeForSize(t *testing.T) {
	cases := []struct {
		size ScreenSize
		dbcs bool
		want string
	}{
		{ScreenSize{24, 80}, false, "IBM-3179-2"},
		{ScreenSize{27, 132}, false, "IBM-5555-C01"},
		{ScreenSize{24, 80}, true, "IBM-5555-B01"},
	}
	for _, c := range cases {
		if got := deviceTypeForSize(c.size, c.dbcs); got != c.want {
			t.Errorf("deviceTypeForSize(%+v, %v) = %q, want %q", c.size, c.dbcs, got, c.want)
		}
	}
}

func TestParseDevname(t *testing.T) {
	payload := []byte{newEnvironVAR}
	payload = append(payload, []byte("DEVNAME")...)
	payload = append(payload, newEnvironVALUE)
	payload = append(payload, []byte("DISPLAY1")...)

	name, ok := parseDevname(payload)
	if !ok {
		t.Fatal("parseDevname: expected ok=true")
	}
	if name != "DISPLAY1" {
		t.Errorf("parseDevname: got %q, want DISPLAY1", name)
	}
}

func TestParseDevnameMissing(t *testing.T) {
	payload := []byte{newEnvironUSERVAR}
	payload = append(payload, []byte("USER")...)
	payload = append(payload, newEnvironVALUE)
	payload = append(payload, []byte("QSECOFR")...)

	if _, ok := parseDevname(payload); ok {
		t.Fatal("parseDevname: expected ok=false when no DEVNAME present")
	}
}

func TestDeviceNameAttemptAdvancesThroughAlternates(t *testing.T) {
	n := &Negotiator{
		cfg: Config{
			DeviceName:           "DISPLAY1",
			AlternateDeviceNames: []string{"DISPLAY2", "DISPLAY3"},
		},
		done: make(chan struct{}),
	}
	if got := n.currentDeviceNameAttempt(); got != "DISPLAY1" {
		t.Fatalf("attempt 0 = %q, want DISPLAY1", got)
	}
	n.deviceNameAttempt++
	if got := n.currentDeviceNameAttempt(); got != "DISPLAY2" {
		t.Fatalf("attempt 1 = %q, want DISPLAY2", got)
	}
	n.deviceNameAttempt++
	if got := n.currentDeviceNameAttempt(); got != "DISPLAY3" {
		t.Fatalf("attempt 2 = %q, want DISPLAY3", got)
	}
	n.deviceNameAttempt++
	if got := n.currentDeviceNameAttempt(); got != "" {
		t.Fatalf("attempt 3 = %q, want empty (exhausted)", got)
	}
}

func TestRequiredActiveTracksAllThreeOptions(t *testing.T) {
	n := &Negotiator{options: map[byte]*optionState{
		0:           {localActive: true, remoteActive: true},
		optEOR:      {localActive: true, remoteActive: true},
		optTermType: {localActive: false, remoteActive: true},
	}}
	if n.requiredActive() {
		t.Fatal("requiredActive: expected false while TERMINAL_TYPE is not locally active")
	}
	n.options[optTermType].localActive = true
	if !n.requiredActive() {
		t.Fatal("requiredActive: expected true once all three options are mutually active")
	}
}
