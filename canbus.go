package canopen

import (
	"encoding/binary"
)

// RawFrameSize is size of Linux SocketCAN `struct can_frame` record in bytes.
const RawFrameSize = 16

const (
	// IDFlagEFF is bit 31 in CAN ID and means EFF extended frame format (0 = standard 11 bit, 1 = extended 29 bit)
	IDFlagEFF = uint32(1 << 31)
	// IDFlagRTR is bit 30 in CAN ID and means RTR remote transmission request (1 = rtr frame)
	IDFlagRTR = uint32(1 << 30)
	// IDFlagERR is bit 29 in CAN ID and means ERR error message flag (0 = data frame, 1 = error message)
	IDFlagERR = uint32(1 << 29)

	// IDMaskStandard is bitmask to get 11 bit standard frame address
	IDMaskStandard = uint32(0x000007FF)
	// IDMaskExtended is bitmask to get 29 bit extended frame address
	IDMaskExtended = uint32(0x1FFFFFFF)
	// IDMaskError is bitmask to get error class bits from error frame ID
	IDMaskError = uint32(0x1FFFFFFF)
)

// RawFrame is CAN frame as it is received from bus in Linux SocketCAN can_frame layout.
//
// Can frame structure: https://github.com/linux-can/can-utils/blob/affdc1b79973c7497bb8607603c24734e11a91aa/include/linux/can.h#L107
//
//	0..3  can_id (little-endian, with EFF/RTR/ERR flags in bits 31/30/29)
//	4     can_dlc, payload length 0-8
//	5..7  padding
//	8..15 payload
//
// Only first Length bytes of Data are meaningful but all 8 are kept as decoders of some services read fixed positions.
type RawFrame struct {
	ID     uint32  `json:"id"`
	Length uint8   `json:"length"`
	Data   [8]byte `json:"data"`
}

// ParseRawFrame decodes fixed fields from 16 byte can_frame record. Other lengths are rejected, buffer is never
// truncated or padded.
func ParseRawFrame(b []byte) (RawFrame, error) {
	if len(b) != RawFrameSize {
		return RawFrame{}, &InvalidFrameLengthError{Length: len(b)}
	}
	f := RawFrame{
		ID:     binary.LittleEndian.Uint32(b[0:4]),
		Length: b[4],
	}
	copy(f.Data[:], b[8:16])
	return f, nil
}

// MarshalBinary encodes frame back into 16 byte can_frame record. Padding bytes are written as zeros.
func (f RawFrame) MarshalBinary() ([]byte, error) {
	b := make([]byte, RawFrameSize)
	binary.LittleEndian.PutUint32(b[0:4], f.ID)
	b[4] = f.Length
	copy(b[8:], f.Data[:])
	return b, nil
}

// Payload returns first Length bytes of Data. Lengths over 8 are clamped to 8.
func (f RawFrame) Payload() []byte {
	n := f.Length
	if n > 8 {
		n = 8
	}
	return f.Data[:n]
}

// IsExtended checks if identifier has extended frame format flag set.
func IsExtended(id uint32) bool {
	return id&IDFlagEFF == IDFlagEFF
}

// IsRemoteRequest checks if identifier has remote transmission request flag set.
func IsRemoteRequest(id uint32) bool {
	return id&IDFlagRTR == IDFlagRTR
}

// IsErrorFrame checks if identifier has error message flag set.
func IsErrorFrame(id uint32) bool {
	return id&IDFlagERR == IDFlagERR
}

// BusAddress returns generic CAN address of identifier: 29 bits for extended and 11 bits for standard frames.
// This is not CANopen node id, see NodeID for that.
func BusAddress(id uint32) uint32 {
	if IsExtended(id) {
		return id & IDMaskExtended
	}
	return id & IDMaskStandard
}

func (f RawFrame) IsExtended() bool {
	return IsExtended(f.ID)
}

func (f RawFrame) IsRemoteRequest() bool {
	return IsRemoteRequest(f.ID)
}

func (f RawFrame) IsErrorFrame() bool {
	return IsErrorFrame(f.ID)
}

func (f RawFrame) BusAddress() uint32 {
	return BusAddress(f.ID)
}
