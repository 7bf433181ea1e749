package serialcap

import (
	"fmt"

	"go.bug.st/serial"
)

// DefaultBaudRate is used when no rate is given. The device is USB CDC, so
// the rate is nominal, but some host drivers still insist on one.
const DefaultBaudRate = 115200

// PortOptions describes the serial connection used when opening the capture
// port. Framing is always 8N1; a CDC ACM device ignores line coding.
type PortOptions struct {
	BaudRate int `json:"baud_rate"`
}

// Normalise validates the options and applies defaults for any unset values.
func (o PortOptions) Normalise() (PortOptions, error) {
	if o.BaudRate < 0 {
		return o, fmt.Errorf("invalid baud rate %d", o.BaudRate)
	}
	if o.BaudRate == 0 {
		o.BaudRate = DefaultBaudRate
	}
	return o, nil
}

// SerialMode converts the port options into the serial.Mode structure required by
// go.bug.st/serial when opening a port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalise()
	if err != nil {
		return nil, err
	}
	return &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}, nil
}
