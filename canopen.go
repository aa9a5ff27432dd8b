package canopen

import (
	"encoding/json"
	"fmt"
	"github.com/aldas/go-canopen-client/internal/utils"
	"strings"
)

// Frame is CAN frame decoded by CANopen conventions. Function code and node id are not stored but always derived from
// raw frame identifier.
type Frame struct {
	Raw RawFrame
	// SubFrame is payload decoded according to function code. Always set for decoded frames, extended frames and
	// function codes without structured payload have Unknown or PDO sub frame.
	SubFrame SubFrame
}

// DecoderConfig configures Decoder behaviour.
type DecoderConfig struct {
	// StrictFunctionCodes instructs Decoder to return UnknownFunctionCodeError for standard frames with function code
	// number that has no mapping. By default such frames are decoded with FunctionCodeUnknown and Unknown sub frame as
	// unrecognized traffic is expected on live bus.
	StrictFunctionCodes bool
}

// Decoder decodes raw 16 byte can_frame records into CANopen frames. Decoder holds no state besides its config and is
// safe for concurrent use.
type Decoder struct {
	config DecoderConfig
}

// NewDecoder creates new instance of CANopen frame decoder with default config
func NewDecoder() *Decoder {
	return &Decoder{}
}

// NewDecoderWithConfig creates new instance of CANopen frame decoder with given config
func NewDecoderWithConfig(config DecoderConfig) *Decoder {
	return &Decoder{config: config}
}

var defaultDecoder = NewDecoder()

// Decode decodes 16 byte can_frame record into CANopen frame using default decoder.
func Decode(b []byte) (Frame, error) {
	return defaultDecoder.Decode(b)
}

// Decode decodes 16 byte can_frame record into CANopen frame.
//
// Buffers with length other than 16 bytes result InvalidFrameLengthError and zero Frame. Sub frame decoding errors
// (UnknownNMTCommandError, UnknownSDOCommandError) are returned together with frame that has Unknown sub frame so
// caller is able to report raw frame contents before skipping it.
func (d *Decoder) Decode(b []byte) (Frame, error) {
	raw, err := ParseRawFrame(b)
	if err != nil {
		return Frame{}, err
	}
	return d.DecodeRawFrame(raw)
}

// DecodeRawFrame decodes payload of already parsed raw frame.
func (d *Decoder) DecodeRawFrame(raw RawFrame) (Frame, error) {
	f := Frame{Raw: raw}
	if raw.IsExtended() {
		f.SubFrame = Unknown{Data: clonePayload(raw)}
		return f, nil
	}

	number := FunctionCodeNumber(raw.ID)
	fc := ResolveFunctionCode(number)
	if fc == FunctionCodeUnknown && d.config.StrictFunctionCodes {
		f.SubFrame = Unknown{Data: clonePayload(raw)}
		return f, &UnknownFunctionCodeError{Code: number}
	}

	sub, err := decodeSubFrame(fc, raw)
	if err != nil {
		f.SubFrame = Unknown{Data: clonePayload(raw)}
		return f, err
	}
	f.SubFrame = sub
	return f, nil
}

func decodeSubFrame(fc FunctionCode, raw RawFrame) (SubFrame, error) {
	switch fc {
	case FunctionCodeNMTMasterControl:
		nmt, err := DecodeNMTMasterControl(raw.Data)
		if err != nil {
			return nil, err
		}
		return nmt, nil
	case FunctionCodeNMTNodeGuard:
		// node guarding request is RTR frame without payload
		if raw.IsRemoteRequest() || raw.Length == 0 {
			return Unknown{Data: clonePayload(raw)}, nil
		}
		return DecodeNMTNodeGuard(raw.Data), nil
	case FunctionCodeSDORx:
		sdo, err := DecodeSDO(SDODirectionRx, raw.Data)
		if err != nil {
			return nil, err
		}
		return SDORx{SDO: sdo}, nil
	case FunctionCodeSDOTx:
		sdo, err := DecodeSDO(SDODirectionTx, raw.Data)
		if err != nil {
			return nil, err
		}
		return SDOTx{SDO: sdo}, nil
	case FunctionCodePDO1Tx, FunctionCodePDO1Rx,
		FunctionCodePDO2Tx, FunctionCodePDO2Rx,
		FunctionCodePDO3Tx, FunctionCodePDO3Rx,
		FunctionCodePDO4Tx, FunctionCodePDO4Rx:
		return PDO{Data: clonePayload(raw)}, nil
	case FunctionCodeSyncEmergency, FunctionCodeTimestamp, FunctionCodeUnknown:
		return Unknown{Data: clonePayload(raw)}, nil
	}
	return Unknown{Data: clonePayload(raw)}, nil
}

func clonePayload(raw RawFrame) []byte {
	return append([]byte{}, raw.Payload()...)
}

// FunctionCode returns function code of frame. Extended frames have no function code.
func (f Frame) FunctionCode() (FunctionCode, bool) {
	if f.Raw.IsExtended() {
		return FunctionCodeUnknown, false
	}
	return ResolveFunctionCode(FunctionCodeNumber(f.Raw.ID)), true
}

// NodeID returns 7 bit CANopen node id of frame. Extended frames have no CANopen node id.
func (f Frame) NodeID() (uint8, bool) {
	if f.Raw.IsExtended() {
		return 0, false
	}
	return NodeID(f.Raw.ID), true
}

// Is checks if frame is standard frame with given function code.
func (f Frame) Is(fc FunctionCode) bool {
	code, ok := f.FunctionCode()
	return ok && code == fc
}

func (f Frame) IsExtended() bool {
	return f.Raw.IsExtended()
}

func (f Frame) IsStandard() bool {
	return !f.Raw.IsExtended()
}

func (f Frame) IsRemoteRequest() bool {
	return f.Raw.IsRemoteRequest()
}

func (f Frame) IsErrorFrame() bool {
	return f.Raw.IsErrorFrame()
}

func (f Frame) IsUnknown() bool {
	return f.Is(FunctionCodeUnknown)
}

func (f Frame) IsNMTMasterControl() bool {
	return f.Is(FunctionCodeNMTMasterControl)
}

// IsSyncOrEmergency checks if frame has function code shared by SYNC and EMCY objects.
func (f Frame) IsSyncOrEmergency() bool {
	return f.Is(FunctionCodeSyncEmergency)
}

func (f Frame) IsTimestamp() bool {
	return f.Is(FunctionCodeTimestamp)
}

// IsPDO checks if frame is any of transmit or receive PDO frames.
func (f Frame) IsPDO() bool {
	code, ok := f.FunctionCode()
	return ok && code.IsPDO()
}

func (f Frame) IsSDOTx() bool {
	return f.Is(FunctionCodeSDOTx)
}

func (f Frame) IsSDORx() bool {
	return f.Is(FunctionCodeSDORx)
}

func (f Frame) IsNMTNodeGuard() bool {
	return f.Is(FunctionCodeNMTNodeGuard)
}

// String renders frame for diagnostics. Example:
//
//	<CanOpenFrame: FC:0xc:sdo_rx ID:0x2 D:8:23.00.10.00.01.02.03.04 => [SDO RX Initiate Domain Download ...]>
func (f Frame) String() string {
	sb := strings.Builder{}
	if f.Raw.IsExtended() {
		fmt.Fprintf(&sb, "<CanOpenFrame: EXTENDED ID:0x%x ", f.Raw.BusAddress())
	} else {
		fc, _ := f.FunctionCode()
		nodeID, _ := f.NodeID()
		fmt.Fprintf(&sb, "<CanOpenFrame: FC:0x%x:%v ID:0x%x ", FunctionCodeNumber(f.Raw.ID), fc, nodeID)
	}
	if f.Raw.IsRemoteRequest() {
		sb.WriteString("RTR ")
	}
	if f.Raw.IsErrorFrame() {
		sb.WriteString("ERR ")
	}
	fmt.Fprintf(&sb, "D:%d:%v", f.Raw.Length, utils.JoinHex(f.Raw.Payload(), "."))
	if f.SubFrame != nil {
		sb.WriteString(" => ")
		sb.WriteString(f.SubFrame.String())
	}
	sb.WriteString(">")
	return sb.String()
}

type frameJSON struct {
	ID           uint32        `json:"id"`
	Extended     bool          `json:"extended"`
	RTR          bool          `json:"rtr"`
	Error        bool          `json:"err"`
	FunctionCode *FunctionCode `json:"functionCode,omitempty"`
	NodeID       *uint8        `json:"nodeId,omitempty"`
	Length       uint8         `json:"length"`
	Data         string        `json:"data"`
	Kind         SubFrameKind  `json:"kind"`
	SubFrame     SubFrame      `json:"subFrame,omitempty"`
}

// MarshalJSON renders frame with derived function code and node id.
func (f Frame) MarshalJSON() ([]byte, error) {
	v := frameJSON{
		ID:       f.Raw.BusAddress(),
		Extended: f.Raw.IsExtended(),
		RTR:      f.Raw.IsRemoteRequest(),
		Error:    f.Raw.IsErrorFrame(),
		Length:   f.Raw.Length,
		Data:     utils.JoinHex(f.Raw.Payload(), ""),
		SubFrame: f.SubFrame,
	}
	if fc, ok := f.FunctionCode(); ok {
		v.FunctionCode = &fc
	}
	if nodeID, ok := f.NodeID(); ok {
		v.NodeID = &nodeID
	}
	if f.SubFrame != nil {
		v.Kind = f.SubFrame.Kind()
	}
	return json.Marshal(v)
}
