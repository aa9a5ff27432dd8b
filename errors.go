package canopen

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFrameLength is returned when raw frame buffer is not exactly 16 bytes
	ErrInvalidFrameLength = errors.New("invalid raw frame length")
	// ErrUnknownFunctionCode is returned by strict function code resolution for unmapped function code numbers
	ErrUnknownFunctionCode = errors.New("unknown function code")
	// ErrUnknownNMTCommand is returned when NMT master control frame has command outside of known command set
	ErrUnknownNMTCommand = errors.New("unknown NMT command")
	// ErrUnknownSDOCommand is returned when SDO frame command specifier has no mapping for its direction
	ErrUnknownSDOCommand = errors.New("unknown SDO command specifier")
)

// InvalidFrameLengthError carries length of rejected raw frame buffer.
type InvalidFrameLengthError struct {
	Length int
}

func (e *InvalidFrameLengthError) Error() string {
	return fmt.Sprintf("%v: got %d bytes, expected %d", ErrInvalidFrameLength, e.Length, RawFrameSize)
}

func (e *InvalidFrameLengthError) Unwrap() error {
	return ErrInvalidFrameLength
}

// UnknownFunctionCodeError carries 4 bit function code number that could not be resolved.
type UnknownFunctionCodeError struct {
	Code uint8
}

func (e *UnknownFunctionCodeError) Error() string {
	return fmt.Sprintf("%v: 0x%x", ErrUnknownFunctionCode, e.Code)
}

func (e *UnknownFunctionCodeError) Unwrap() error {
	return ErrUnknownFunctionCode
}

// UnknownNMTCommandError carries NMT command byte that could not be resolved.
type UnknownNMTCommandError struct {
	Command uint8
}

func (e *UnknownNMTCommandError) Error() string {
	return fmt.Sprintf("%v: 0x%02x", ErrUnknownNMTCommand, e.Command)
}

func (e *UnknownNMTCommandError) Unwrap() error {
	return ErrUnknownNMTCommand
}

// UnknownSDOCommandError carries masked command specifier and direction of SDO frame that could not be resolved.
type UnknownSDOCommandError struct {
	Direction        SDODirection
	CommandSpecifier uint8
}

func (e *UnknownSDOCommandError) Error() string {
	return fmt.Sprintf("%v: %v 0x%02x", ErrUnknownSDOCommand, e.Direction, e.CommandSpecifier)
}

func (e *UnknownSDOCommandError) Unwrap() error {
	return ErrUnknownSDOCommand
}
