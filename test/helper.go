package test_test

import (
	"encoding/binary"
	"time"
)

// UTCTime creates instance of time in UTC timezone this helps avoid problems running tests with different timezone computers
func UTCTime(sec int64) time.Time {
	return time.Unix(sec, 0).In(time.UTC)
}

// CANFrame creates 16 byte Linux SocketCAN can_frame record with given identifier (including flag bits) and payload.
// Length byte is set to payload length.
func CANFrame(id uint32, data ...byte) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:4], id)
	b[4] = uint8(len(data))
	copy(b[8:], data)
	return b
}
