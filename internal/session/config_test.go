package session

import (
	"testing"

	"github.com/stlalpha/tn5250agent/internal/transport"
)

func TestDefaultConfigIsValidOnceHostSet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "as400.example.com"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsMissingHost(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for empty host")
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "host"
	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for out-of-range port")
	}
}

func TestValidateRejectsLowercaseDeviceName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "host"
	cfg.DeviceName = "display1"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for lowercase device name")
	}
}

func TestValidateRejectsUnsupportedScreenSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "host"
	cfg.ScreenSize = ScreenSize{Rows: 25, Cols: 80}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for unsupported screen size")
	}
}

func TestValidateRejectsZeroMaxSessions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "host"
	cfg.MaxSessions = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for zero max_sessions")
	}
}

func TestDialConfigProjectsSSLType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "host"
	cfg.SSLType = SSLImplicit
	dc := cfg.dialConfig()
	if dc.Host != "host" || dc.Port != 23 {
		t.Fatalf("dialConfig() = %+v, want Host=host Port=23", dc)
	}
	if dc.SSL != transport.SSLImplicit {
		t.Fatalf("dialConfig().SSL = %v, want SSLImplicit", dc.SSL)
	}
}

func TestNegotiateConfigDefaultsTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "host"
	cfg.ConnectTimeoutMs = 0
	nc := cfg.negotiateConfig()
	if nc.Timeout <= 0 {
		t.Fatalf("negotiateConfig().Timeout = %v, want positive default", nc.Timeout)
	}
}
