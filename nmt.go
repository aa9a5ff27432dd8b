package canopen

import "fmt"

// NMTCommand is NMT master control command specifier (payload byte 0).
type NMTCommand uint8

const (
	NMTStart               NMTCommand = 0x01
	NMTStop                NMTCommand = 0x02
	NMTEnterPreOperational NMTCommand = 0x80
	NMTResetApplication    NMTCommand = 0x81
	NMTResetCommunication  NMTCommand = 0x82
)

// NMTNodeAll is NMT master control target node meaning all nodes.
const NMTNodeAll = uint8(0)

func (c NMTCommand) String() string {
	switch c {
	case NMTStart:
		return "start"
	case NMTStop:
		return "stop"
	case NMTEnterPreOperational:
		return "preop"
	case NMTResetApplication:
		return "reset_app"
	case NMTResetCommunication:
		return "reset_com"
	}
	return fmt.Sprintf("0x%02x", uint8(c))
}

// IsValid checks if command belongs to known NMT command set.
func (c NMTCommand) IsValid() bool {
	switch c {
	case NMTStart, NMTStop, NMTEnterPreOperational, NMTResetApplication, NMTResetCommunication:
		return true
	}
	return false
}

// NMTState is node state reported in NMT error control (node guarding / heartbeat) frame.
type NMTState uint8

const (
	NMTStateBootup         NMTState = 0x00
	NMTStateDisconnected   NMTState = 0x01
	NMTStateConnected      NMTState = 0x02
	NMTStatePreparing      NMTState = 0x03
	NMTStateStopped        NMTState = 0x04
	NMTStateOperational    NMTState = 0x05
	NMTStatePreOperational NMTState = 0x7F
)

func (s NMTState) String() string {
	switch s {
	case NMTStateBootup:
		return "bootup"
	case NMTStateDisconnected:
		return "disconnected"
	case NMTStateConnected:
		return "connected"
	case NMTStatePreparing:
		return "preparing"
	case NMTStateStopped:
		return "stopped"
	case NMTStateOperational:
		return "operational"
	case NMTStatePreOperational:
		return "preoperational"
	}
	return "unknown"
}

// NMTMasterControl is decoded payload of NMT master control frame (COB-ID 0x000).
type NMTMasterControl struct {
	Command NMTCommand `json:"command"`
	// TargetNode is addressed node id, 0 means all nodes.
	TargetNode uint8 `json:"targetNode"`
}

// DecodeNMTMasterControl decodes NMT master control payload. Commands outside of known set result
// UnknownNMTCommandError.
func DecodeNMTMasterControl(data [8]byte) (NMTMasterControl, error) {
	cmd := NMTCommand(data[0])
	if !cmd.IsValid() {
		return NMTMasterControl{}, &UnknownNMTCommandError{Command: data[0]}
	}
	return NMTMasterControl{
		Command:    cmd,
		TargetNode: data[1],
	}, nil
}

func (NMTMasterControl) Kind() SubFrameKind { return SubFrameNMTMasterControl }

func (n NMTMasterControl) String() string {
	return fmt.Sprintf("[NMT MC %v NODE: 0x%x]", n.Command, n.TargetNode)
}

// NMTNodeGuard is decoded payload of NMT error control frame (node guarding response or heartbeat).
//
//	byte 0: bit 7 toggle (node guarding only, 0 for heartbeat), bits 6-0 node state
type NMTNodeGuard struct {
	State  NMTState `json:"state"`
	Toggle bool     `json:"toggle"`
}

// DecodeNMTNodeGuard decodes NMT error control payload. Unknown states are kept as is.
func DecodeNMTNodeGuard(data [8]byte) NMTNodeGuard {
	return NMTNodeGuard{
		State:  NMTState(data[0] & 0x7F),
		Toggle: data[0]&0x80 != 0,
	}
}

func (NMTNodeGuard) Kind() SubFrameKind { return SubFrameNMTNodeGuard }

func (n NMTNodeGuard) String() string {
	if n.Toggle {
		return fmt.Sprintf("[NMT NG %v T:1]", n.State)
	}
	return fmt.Sprintf("[NMT NG %v]", n.State)
}

func (c NMTCommand) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (s NMTState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
