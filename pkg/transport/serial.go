// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// DefaultBaudRate is the monitor's UART speed.
const DefaultBaudRate = 115200

// OpenSerial opens a serial port at 8N1.
func OpenSerial(portName string, baudRate int) (*Stream, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return NewStream(port), nil
}

// ListSerialPorts returns the serial ports present on the host.
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
