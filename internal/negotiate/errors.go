package negotiate

import "fmt"

// TelnetNegotiationFailedError is returned when BINARY, EOR, and
// TERMINAL_TYPE do not all reach the active state (locally and remotely)
// before the negotiation deadline.
type TelnetNegotiationFailedError struct {
	Pending []string // option names that never reached "active"
}

func (e *TelnetNegotiationFailedError) Error() string {
	return fmt.Sprintf("negotiate: telnet negotiation failed, pending options: %v", e.Pending)
}

// DeviceNameRejectedError is returned when the host rejects every device
// name offered (the requested name plus any configured alternates).
type DeviceNameRejectedError struct {
	Tried []string
}

func (e *DeviceNameRejectedError) Error() string {
	return fmt.Sprintf("negotiate: device name rejected, tried: %v", e.Tried)
}
