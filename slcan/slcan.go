package slcan

import (
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/aldas/go-canopen-client"
	"strconv"
	"strings"
)

const hextable = "0123456789ABCDEF"

var bitrateCommands = map[int]string{
	10_000:    "S0",
	20_000:    "S1",
	50_000:    "S2",
	100_000:   "S3",
	125_000:   "S4",
	250_000:   "S5",
	500_000:   "S6",
	800_000:   "S7",
	1_000_000: "S8",
}

// BitrateCommand returns SLCAN setup command for given bus bitrate (bits per second).
func BitrateCommand(bitrate int) (string, error) {
	cmd, ok := bitrateCommands[bitrate]
	if !ok {
		return "", fmt.Errorf("unsupported slcan bitrate: %d", bitrate)
	}
	return cmd, nil
}

// ParseFrame parses single SLCAN frame line into raw frame. Line may end with `\r` and can have optional 4 character
// timestamp after data. Examples:
//
//	t60282300100001020304  - standard data frame, id 0x602, 8 bytes
//	T1ABCDEFF20102         - extended data frame, id 0x1ABCDEFF, 2 bytes
//	r7050                  - standard remote request frame, id 0x705
//
// Lines that are not frames (command acknowledgements, empty lines) result skip=true.
func ParseFrame(line []byte) (canopen.RawFrame, bool, error) {
	s := strings.TrimRight(string(line), "\r\n")
	if s == "" {
		return canopen.RawFrame{}, true, nil
	}

	idLen := 3
	flags := uint32(0)
	switch s[0] {
	case 't':
	case 'r':
		flags = canopen.IDFlagRTR
	case 'T':
		idLen = 8
		flags = canopen.IDFlagEFF
	case 'R':
		idLen = 8
		flags = canopen.IDFlagEFF | canopen.IDFlagRTR
	default: // skippable - acknowledgements (z, Z), version responses etc
		return canopen.RawFrame{}, true, nil
	}
	if len(s) < 1+idLen+1 {
		return canopen.RawFrame{}, false, errors.New("slcan frame is too short")
	}

	id, err := strconv.ParseUint(s[1:1+idLen], 16, 32)
	if err != nil {
		return canopen.RawFrame{}, false, fmt.Errorf("slcan frame invalid identifier, err: %w", err)
	}
	mask := canopen.IDMaskStandard
	if idLen == 8 {
		mask = canopen.IDMaskExtended
	}
	if uint32(id)&^mask != 0 {
		return canopen.RawFrame{}, false, fmt.Errorf("slcan frame identifier out of range: 0x%x", id)
	}

	length := s[1+idLen] - '0'
	if length > 8 {
		return canopen.RawFrame{}, false, fmt.Errorf("slcan frame invalid length: %c", s[1+idLen])
	}

	f := canopen.RawFrame{
		ID:     uint32(id) | flags,
		Length: length,
	}
	if flags&canopen.IDFlagRTR != 0 {
		return f, false, nil
	}

	hexData := s[2+idLen:]
	dataLen := int(length) * 2
	if len(hexData) != dataLen && len(hexData) != dataLen+4 { // +4 is optional timestamp
		return canopen.RawFrame{}, false, errors.New("slcan frame data does not match length")
	}
	if _, err := hex.Decode(f.Data[:], []byte(hexData[:dataLen])); err != nil {
		return canopen.RawFrame{}, false, fmt.Errorf("slcan frame failure to convert hex into bytes, err: %w", err)
	}
	return f, false, nil
}

// MarshalFrame converts raw frame to SLCAN transmit command including trailing `\r`.
func MarshalFrame(f canopen.RawFrame) []byte {
	idLen := 3
	cmd := byte('t')
	if f.IsExtended() {
		idLen = 8
		cmd = 'T'
	}
	if f.IsRemoteRequest() {
		cmd -= 't' - 'r' // t->r, T->R
	}
	length := f.Length
	if length > 8 {
		length = 8
	}

	b := make([]byte, 0, 1+idLen+1+16+1)
	b = append(b, cmd)
	id := f.BusAddress()
	for i := idLen - 1; i >= 0; i-- {
		b = append(b, hextable[(id>>(uint(i)*4))&0x0f])
	}
	b = append(b, '0'+length)
	if !f.IsRemoteRequest() {
		for _, v := range f.Data[:length] {
			b = append(b, hextable[v>>4], hextable[v&0x0f])
		}
	}
	return append(b, '\r')
}
