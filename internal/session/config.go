package session

import (
	"crypto/tls"
	"time"

	"github.com/stlalpha/tn5250agent/internal/negotiate"
	"github.com/stlalpha/tn5250agent/internal/transport"
)

// QueuePolicy selects the Pool's acquisition order.
type QueuePolicy int

const (
	QueueFIFO QueuePolicy = iota
	QueueLIFO
)

// SSLType is the session's ssl_type enum.
type SSLType int

const (
	SSLNone SSLType = iota
	SSLImplicit
	SSLStartTLS
)

// ScreenSize identifies one of the two presentation-space families this
// module supports.
type ScreenSize struct {
	Rows, Cols int
}

var (
	Screen24x80  = ScreenSize{Rows: 24, Cols: 80}
	Screen27x132 = ScreenSize{Rows: 27, Cols: 132}
)

// Config is the full session configuration snapshot, built field-by-field
// and validated once, then captured immutably at Connect time.
type Config struct {
	Host       string
	Port       int
	DeviceName string
	AlternateDeviceNames []string
	User                 string
	ScreenSize           ScreenSize
	Ccsid                int
	SSLType              SSLType
	TLSConfig            *tls.Config
	ProxyHost            string
	ProxyPort            int
	QueuePolicy          QueuePolicy
	KeypadEnabled        bool // accepted, ignored by the core
	ConnectTimeoutMs     int
	ReadTimeoutMs        int
	MaxSessions          int
}

// DefaultConfig returns a Config with sensible defaults applied; callers
// override the fields they need before calling Validate.
func DefaultConfig() Config {
	return Config{
		Port:             23,
		ScreenSize:       Screen24x80,
		Ccsid:            37,
		SSLType:          SSLNone,
		QueuePolicy:      QueueFIFO,
		ConnectTimeoutMs: 10_000,
		ReadTimeoutMs:    30_000,
		MaxSessions:      1,
	}
}

// Validate checks the constrained fields, returning *InvalidConfigError
// for the first violation found.
func (c Config) Validate() error {
	if c.Host == "" {
		return &InvalidConfigError{Field: "host", Reason: "must not be empty"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &InvalidConfigError{Field: "port", Reason: "must be in [1,65535]"}
	}
	if c.DeviceName != "" {
		if len(c.DeviceName) > 10 {
			return &InvalidConfigError{Field: "device_name", Reason: "must be 1-10 characters"}
		}
		for _, r := range c.DeviceName {
			if r < 'A' || r > 'Z' {
				if !(r >= '0' && r <= '9') {
					return &InvalidConfigError{Field: "device_name", Reason: "must be uppercase A-Z/0-9"}
				}
			}
		}
	}
	if c.ScreenSize != Screen24x80 && c.ScreenSize != Screen27x132 {
		return &InvalidConfigError{Field: "screen_size", Reason: "must be 24x80 or 27x132"}
	}
	if c.MaxSessions <= 0 {
		return &InvalidConfigError{Field: "max_sessions", Reason: "must be positive"}
	}
	return nil
}

// dialConfig projects the subset transport.Dial needs.
func (c Config) dialConfig() transport.DialConfig {
	var ssl transport.SSLType
	switch c.SSLType {
	case SSLImplicit:
		ssl = transport.SSLImplicit
	case SSLStartTLS:
		ssl = transport.SSLStartTLS
	default:
		ssl = transport.SSLNone
	}
	return transport.DialConfig{
		Host:             c.Host,
		Port:             c.Port,
		SSL:              ssl,
		TLSConfig:        c.TLSConfig,
		ConnectTimeoutMs: c.ConnectTimeoutMs,
	}
}

// negotiateConfig projects the subset the telnet negotiator needs.
func (c Config) negotiateConfig() negotiate.Config {
	timeout := time.Duration(c.ConnectTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return negotiate.Config{
		DeviceName:           c.DeviceName,
		AlternateDeviceNames: c.AlternateDeviceNames,
		User:                 c.User,
		ScreenSize:           negotiate.ScreenSize{Rows: c.ScreenSize.Rows, Cols: c.ScreenSize.Cols},
		DBCS:                 c.Ccsid == 930,
		Timeout:              timeout,
	}
}
