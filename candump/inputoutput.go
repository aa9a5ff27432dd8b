package candump

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/aldas/go-canopen-client"
	"strconv"
	"strings"
	"time"
)

// Line is single frame in candump log format.
type Line struct {
	Time      time.Time
	Interface string
	Frame     canopen.RawFrame
}

// Marshal converts frame to candump log line (without line end). Example:
//
//	(1436509052.249713) can0 602#2300100001020304
func Marshal(v Line) ([]byte, error) {
	buf := new(bytes.Buffer)
	sec := v.Time.Unix()
	usec := v.Time.Nanosecond() / 1000
	if _, err := fmt.Fprintf(buf, "(%d.%06d) %s ", sec, usec, v.Interface); err != nil {
		return nil, fmt.Errorf("candump marshal failure, err: %w", err)
	}

	f := v.Frame
	switch {
	case f.IsErrorFrame():
		fmt.Fprintf(buf, "%08X", f.ID&(canopen.IDFlagERR|canopen.IDMaskError))
	case f.IsExtended():
		fmt.Fprintf(buf, "%08X", f.BusAddress())
	default:
		fmt.Fprintf(buf, "%03X", f.BusAddress())
	}
	buf.WriteByte('#')
	if f.IsRemoteRequest() && !f.IsErrorFrame() {
		buf.WriteByte('R')
		if f.Length > 0 {
			buf.WriteString(strconv.Itoa(int(f.Length)))
		}
		return buf.Bytes(), nil
	}
	buf.WriteString(strings.ToUpper(hex.EncodeToString(f.Payload())))
	return buf.Bytes(), nil
}

// Unmarshal parses candump log line. Example:
//
//	(1436509052.249713) can0 602#2300100001020304
//	(1436509052.249713) can0 705#R
//	(1436509052.249713) can0 1ABCDEFF#0102
func Unmarshal(raw string) (Line, error) {
	parts := strings.Fields(raw)
	if len(parts) != 3 {
		return Line{}, errors.New("candump input has different amount of components than expected")
	}

	t, err := parseTimestamp(parts[0])
	if err != nil {
		return Line{}, err
	}

	idPart, dataPart, ok := strings.Cut(parts[2], "#")
	if !ok {
		return Line{}, errors.New("candump input frame is missing '#' separator")
	}
	if strings.HasPrefix(dataPart, "#") {
		return Line{}, errors.New("candump input CAN FD frames are not supported")
	}

	id, err := strconv.ParseUint(idPart, 16, 32)
	if err != nil {
		return Line{}, fmt.Errorf("candump input invalid identifier, err: %w", err)
	}
	frame := canopen.RawFrame{ID: uint32(id)}
	switch len(idPart) {
	case 3:
		if frame.ID&^canopen.IDMaskStandard != 0 {
			return Line{}, fmt.Errorf("candump input identifier out of range: %v", idPart)
		}
	case 8:
		// error frames are logged with error flag and without extended frame flag
		if frame.ID&canopen.IDFlagERR == 0 {
			frame.ID |= canopen.IDFlagEFF
		}
	default:
		return Line{}, fmt.Errorf("candump input invalid identifier length: %v", idPart)
	}

	if strings.HasPrefix(dataPart, "R") {
		frame.ID |= canopen.IDFlagRTR
		if len(dataPart) > 1 {
			l, err := strconv.ParseUint(dataPart[1:], 10, 8)
			if err != nil || l > 8 {
				return Line{}, fmt.Errorf("candump input invalid remote request length: %v", dataPart[1:])
			}
			frame.Length = uint8(l)
		}
		return Line{Time: t, Interface: parts[1], Frame: frame}, nil
	}

	data, err := hex.DecodeString(strings.ReplaceAll(dataPart, ".", ""))
	if err != nil {
		return Line{}, fmt.Errorf("candump input failure to convert hex into bytes, err: %w", err)
	}
	if len(data) > 8 {
		return Line{}, errors.New("candump input has more than 8 data bytes")
	}
	frame.Length = uint8(len(data))
	copy(frame.Data[:], data)

	return Line{Time: t, Interface: parts[1], Frame: frame}, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if len(raw) < 3 || raw[0] != '(' || raw[len(raw)-1] != ')' {
		return time.Time{}, errors.New("candump input invalid timestamp format")
	}
	secPart, usecPart, ok := strings.Cut(raw[1:len(raw)-1], ".")
	if !ok {
		return time.Time{}, errors.New("candump input invalid timestamp format")
	}
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("candump input invalid timestamp seconds, err: %w", err)
	}
	usec, err := strconv.ParseInt(usecPart, 10, 64)
	if err != nil || len(usecPart) != 6 {
		return time.Time{}, errors.New("candump input invalid timestamp microseconds")
	}
	return time.Unix(sec, usec*1000).UTC(), nil
}
