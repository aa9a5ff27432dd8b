package canopen

import (
	"encoding/binary"
	"fmt"
	"github.com/aldas/go-canopen-client/internal/utils"
	"strings"
)

// SDODirection is direction of SDO frame. Command specifier values are interpreted differently for each direction.
type SDODirection uint8

const (
	// SDODirectionRx is client to server direction (request, COB-ID 0x600 + node)
	SDODirectionRx SDODirection = iota
	// SDODirectionTx is server to client direction (response, COB-ID 0x580 + node)
	SDODirectionTx
)

func (d SDODirection) String() string {
	if d == SDODirectionTx {
		return "tx"
	}
	return "rx"
}

// SDOCommand is SDO command decoded from command specifier bits of payload byte 0.
type SDOCommand uint8

const (
	SDOCommandDownloadInitiate SDOCommand = iota + 1
	SDOCommandDownloadSegment
	SDOCommandUploadInitiate
	SDOCommandUploadSegment
	SDOCommandAbortTransfer
	SDOCommandBlockDownload
)

func (c SDOCommand) String() string {
	switch c {
	case SDOCommandDownloadInitiate:
		return "download-initiate"
	case SDOCommandDownloadSegment:
		return "download-segment"
	case SDOCommandUploadInitiate:
		return "upload-initiate"
	case SDOCommandUploadSegment:
		return "upload-segment"
	case SDOCommandAbortTransfer:
		return "abort-transfer"
	case SDOCommandBlockDownload:
		return "block-download"
	}
	return "?"
}

// Description returns long name of command as used in CiA 301.
func (c SDOCommand) Description() string {
	switch c {
	case SDOCommandDownloadInitiate:
		return "Initiate Domain Download"
	case SDOCommandDownloadSegment:
		return "Download Domain Segment"
	case SDOCommandUploadInitiate:
		return "Initiate Domain Upload"
	case SDOCommandUploadSegment:
		return "Upload Domain Segment"
	case SDOCommandAbortTransfer:
		return "Abort Domain Transfer"
	case SDOCommandBlockDownload:
		return "Block Download"
	}
	return "?"
}

func (c SDOCommand) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// IsInitiate checks if command is download or upload initiate.
func (c SDOCommand) IsInitiate() bool {
	return c == SDOCommandDownloadInitiate || c == SDOCommandUploadInitiate
}

// IsSegment checks if command is download or upload segment.
func (c SDOCommand) IsSegment() bool {
	return c == SDOCommandDownloadSegment || c == SDOCommandUploadSegment
}

const (
	sdoCommandMask = uint8(0xE0)

	// initiate frames: bits 3-2 unused byte count, bit 1 expedited, bit 0 size indicated
	sdoExpeditedFlag     = uint8(0x02)
	sdoSizeIndicatedFlag = uint8(0x01)
	sdoUnusedMask        = uint8(0x0C)
	sdoUnusedShift       = 2

	// segment frames: bit 4 toggle, bits 3-1 unused byte count, bit 0 last segment
	sdoSegmentToggleFlag  = uint8(0x10)
	sdoSegmentUnusedMask  = uint8(0x0E)
	sdoSegmentUnusedShift = 1
	sdoSegmentLastFlag    = uint8(0x01)
)

// ResolveSDOCommand maps masked command specifier to command. Mapping is different for Rx and Tx directions:
//
//	| Command           | Rx   | Tx   |
//	| download-initiate | 0x20 | 0x60 |
//	| download-segment  | 0x00 | 0x20 |
//	| upload-initiate   | 0x40 | 0x40 |
//	| upload-segment    | 0x60 | 0x00 |
//	| abort-transfer    | 0x80 | 0x80 |
//	| block-download    | 0xC0 | 0xA0 |
func ResolveSDOCommand(direction SDODirection, cs uint8) (SDOCommand, bool) {
	if direction == SDODirectionTx {
		switch cs {
		case 0x60:
			return SDOCommandDownloadInitiate, true
		case 0x20:
			return SDOCommandDownloadSegment, true
		case 0x40:
			return SDOCommandUploadInitiate, true
		case 0x00:
			return SDOCommandUploadSegment, true
		case 0x80:
			return SDOCommandAbortTransfer, true
		case 0xA0:
			return SDOCommandBlockDownload, true
		}
		return 0, false
	}
	switch cs {
	case 0x20:
		return SDOCommandDownloadInitiate, true
	case 0x00:
		return SDOCommandDownloadSegment, true
	case 0x40:
		return SDOCommandUploadInitiate, true
	case 0x60:
		return SDOCommandUploadSegment, true
	case 0x80:
		return SDOCommandAbortTransfer, true
	case 0xC0:
		return SDOCommandBlockDownload, true
	}
	return 0, false
}

// CommandSpecifier returns masked command specifier value of command for given direction.
func (c SDOCommand) CommandSpecifier(direction SDODirection) (uint8, bool) {
	for cs := 0; cs <= 0xE0; cs += 0x20 {
		if candidate, ok := ResolveSDOCommand(direction, uint8(cs)); ok && candidate == c {
			return uint8(cs), true
		}
	}
	return 0, false
}

// SDOSegment holds fields of download/upload segment frames.
type SDOSegment struct {
	Toggle bool `json:"toggle"`
	// Last is set when no more segments are to be transferred
	Last bool `json:"last"`
	// Size is number of valid data bytes (7 - unused count). Only meaningful for segments carrying data.
	Size uint8 `json:"size"`
	// Data is segment data, only set for segments carrying data (client download segment, server upload segment)
	Data []byte `json:"data,omitempty"`
}

// SDO holds fields decoded from SDO frame payload.
//
//	byte 0:    command specifier (bits 7-5) and command dependent flags
//	bytes 1-2: index (little-endian)
//	byte 3:    sub-index
//	bytes 4-7: expedited data, indicated size or abort code
type SDO struct {
	// CommandSpecifier is payload byte 0 masked with 0xE0
	CommandSpecifier uint8      `json:"commandSpecifier"`
	Command          SDOCommand `json:"command"`

	Expedited     bool `json:"expedited"`
	SizeIndicated bool `json:"sizeIndicated"`
	// UnusedCount is number of bytes in expedited data bytes 4-7 that do NOT contain data.
	UnusedCount uint8 `json:"unusedCount"`
	// ExpeditedSize is number of valid expedited data bytes (4 - UnusedCount), in range 1-4
	ExpeditedSize uint8 `json:"expeditedSize"`

	Index    uint16 `json:"index"`
	SubIndex uint8  `json:"subIndex"`

	// ExpeditedData is set only for expedited initiate frames
	ExpeditedData []byte `json:"expeditedData,omitempty"`
	// SegmentedSize is payload byte 2 of non-expedited initiate frame
	SegmentedSize uint8 `json:"segmentedSize,omitempty"`
	// IndicatedSize is total transfer size (bytes 4-7) of non-expedited initiate frame with size indicated flag set
	IndicatedSize uint32 `json:"indicatedSize,omitempty"`

	Segment *SDOSegment `json:"segment,omitempty"`

	// AbortCode is set only for abort transfer frames
	AbortCode uint32 `json:"abortCode,omitempty"`
}

// DecodeSDO decodes SDO payload for given direction. Command specifier values not mapped for direction result
// UnknownSDOCommandError.
//
// Decoding reads fixed payload positions regardless of frame declared length.
func DecodeSDO(direction SDODirection, data [8]byte) (SDO, error) {
	cs := data[0] & sdoCommandMask
	cmd, ok := ResolveSDOCommand(direction, cs)
	if !ok {
		return SDO{}, &UnknownSDOCommandError{Direction: direction, CommandSpecifier: cs}
	}

	s := SDO{
		CommandSpecifier: cs,
		Command:          cmd,
		Index:            binary.LittleEndian.Uint16(data[1:3]),
		SubIndex:         data[3],
	}

	switch {
	case cmd.IsInitiate():
		s.Expedited = data[0]&sdoExpeditedFlag != 0
		s.SizeIndicated = data[0]&sdoSizeIndicatedFlag != 0
		s.UnusedCount = (data[0] & sdoUnusedMask) >> sdoUnusedShift
		if s.Expedited {
			// the bits indicate the number of bytes NOT(!) used
			s.ExpeditedSize = 4 - s.UnusedCount
			s.ExpeditedData = append([]byte{}, data[4:4+s.ExpeditedSize]...)
		} else {
			s.SegmentedSize = data[2]
			if s.SizeIndicated {
				s.IndicatedSize = binary.LittleEndian.Uint32(data[4:8])
			}
		}
	case cmd.IsSegment():
		seg := &SDOSegment{
			Toggle: data[0]&sdoSegmentToggleFlag != 0,
			Last:   data[0]&sdoSegmentLastFlag != 0,
		}
		if isDataSegment(direction, cmd) {
			seg.Size = 7 - (data[0]&sdoSegmentUnusedMask)>>sdoSegmentUnusedShift
			seg.Data = append([]byte{}, data[1:1+seg.Size]...)
		}
		s.Segment = seg
	case cmd == SDOCommandAbortTransfer:
		s.AbortCode = binary.LittleEndian.Uint32(data[4:8])
	}
	return s, nil
}

// isDataSegment checks if segment frame carries data. Client sends data in download segments and server sends data
// in upload segments, other segment frames are acknowledgements/requests with toggle bit only.
func isDataSegment(direction SDODirection, cmd SDOCommand) bool {
	return (direction == SDODirectionRx && cmd == SDOCommandDownloadSegment) ||
		(direction == SDODirectionTx && cmd == SDOCommandUploadSegment)
}

// AbortMessage returns diagnostic text for abort code. Abort codes not in table return false.
func (s SDO) AbortMessage() (string, bool) {
	if s.Command != SDOCommandAbortTransfer {
		return "", false
	}
	return SDOAbortMessage(s.AbortCode)
}

func (s SDO) render(direction SDODirection) string {
	sb := strings.Builder{}
	sb.WriteString("SDO ")
	sb.WriteString(strings.ToUpper(direction.String()))
	sb.WriteByte(' ')
	sb.WriteString(s.Command.Description())
	sb.WriteByte(' ')

	switch {
	case s.Command.IsInitiate():
		if s.Expedited {
			sb.WriteString("EXPEDITED ")
			if s.SizeIndicated {
				fmt.Fprintf(&sb, "SIZE:%d ", s.ExpeditedSize)
			}
		} else if s.SizeIndicated {
			fmt.Fprintf(&sb, "SEGMENTED SIZE:%d ", s.IndicatedSize)
		}
		fmt.Fprintf(&sb, "INDEX:0x%04x SUBINDEX:%d", s.Index, s.SubIndex)
		if s.Expedited {
			fmt.Fprintf(&sb, " DATA:%v", utils.JoinHex(s.ExpeditedData, "."))
		}
	case s.Segment != nil:
		toggle := 0
		if s.Segment.Toggle {
			toggle = 1
		}
		fmt.Fprintf(&sb, "T:%d", toggle)
		if s.Segment.Data != nil {
			fmt.Fprintf(&sb, " SIZE:%d DATA:%v", s.Segment.Size, utils.JoinHex(s.Segment.Data, "."))
		}
		if s.Segment.Last {
			sb.WriteString(" LAST")
		}
	case s.Command == SDOCommandAbortTransfer:
		fmt.Fprintf(&sb, "INDEX:0x%04x SUBINDEX:%d ABORT:0x%08x", s.Index, s.SubIndex, s.AbortCode)
		if msg, ok := s.AbortMessage(); ok {
			fmt.Fprintf(&sb, " %q", msg)
		}
	default:
		sb.WriteString("?")
	}
	return sb.String()
}

// SDORx is SDO frame sent by client to server.
type SDORx struct {
	SDO
}

func (SDORx) Kind() SubFrameKind { return SubFrameSDORx }

func (s SDORx) String() string {
	return "[" + s.render(SDODirectionRx) + "]"
}

// SDOTx is SDO frame sent by server to client.
type SDOTx struct {
	SDO
}

func (SDOTx) Kind() SubFrameKind { return SubFrameSDOTx }

func (s SDOTx) String() string {
	return "[" + s.render(SDODirectionTx) + "]"
}
