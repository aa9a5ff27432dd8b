package canopen

import (
	"fmt"
	"github.com/aldas/go-canopen-client/internal/utils"
)

// SubFrameKind identifies variant of SubFrame.
type SubFrameKind uint8

const (
	SubFrameUnknown SubFrameKind = iota
	SubFrameNMTMasterControl
	SubFrameNMTNodeGuard
	SubFrameSDORx
	SubFrameSDOTx
	SubFramePDO
)

func (k SubFrameKind) String() string {
	switch k {
	case SubFrameNMTMasterControl:
		return "nmt_mc"
	case SubFrameNMTNodeGuard:
		return "nmt_ng"
	case SubFrameSDORx:
		return "sdo_rx"
	case SubFrameSDOTx:
		return "sdo_tx"
	case SubFramePDO:
		return "pdo"
	}
	return "unknown"
}

func (k SubFrameKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// SubFrame is payload of CANopen frame decoded according to frame function code. Implementations are value types
// and are not modified after decoding:
//   - Unknown
//   - PDO
//   - NMTMasterControl
//   - NMTNodeGuard
//   - SDORx
//   - SDOTx
type SubFrame interface {
	Kind() SubFrameKind
	String() string
}

// Unknown is payload of frame that has no structured decoder (extended frames, SYNC/EMCY, timestamp, unknown
// function codes).
type Unknown struct {
	Data []byte `json:"data"`
}

func (Unknown) Kind() SubFrameKind { return SubFrameUnknown }

func (Unknown) String() string {
	return "UNKNOWN"
}

// PDO is Process Data Object payload. Meaning of PDO bytes is application defined so these are kept opaque.
type PDO struct {
	Data []byte `json:"data"`
}

func (PDO) Kind() SubFrameKind { return SubFramePDO }

func (p PDO) String() string {
	return fmt.Sprintf("[PDO %v]", utils.JoinHex(p.Data, "."))
}
