package canopen

// FunctionCode is CANopen communication object role encoded in 4 highest bits of 11 bit standard identifier.
// Function code is defined only for standard frames.
type FunctionCode uint8

const (
	// FunctionCodeUnknown is used for function code numbers that have no known role.
	FunctionCodeUnknown FunctionCode = iota
	FunctionCodeNMTMasterControl
	// FunctionCodeSyncEmergency is shared by SYNC and EMCY objects (function code number 0x1). These can not be told
	// apart from identifier alone, see Roles.
	FunctionCodeSyncEmergency
	FunctionCodeTimestamp
	FunctionCodePDO1Tx
	FunctionCodePDO1Rx
	FunctionCodePDO2Tx
	FunctionCodePDO2Rx
	FunctionCodePDO3Tx
	FunctionCodePDO3Rx
	FunctionCodePDO4Tx
	FunctionCodePDO4Rx
	// FunctionCodeSDOTx is SDO server to client (response) channel, COB-ID 0x580 + node
	FunctionCodeSDOTx
	// FunctionCodeSDORx is SDO client to server (request) channel, COB-ID 0x600 + node
	FunctionCodeSDORx
	// FunctionCodeNMTNodeGuard is NMT error control (node guarding / heartbeat), COB-ID 0x700 + node
	FunctionCodeNMTNodeGuard
)

const (
	functionCodeMask  = uint32(0x780)
	functionCodeShift = 7
	nodeIDMask        = uint32(0x7F)
)

// functionCodesByNumber maps 4 bit function code number to role. Numbers 0xd and 0xf are not assigned.
var functionCodesByNumber = [16]FunctionCode{
	0x0: FunctionCodeNMTMasterControl,
	0x1: FunctionCodeSyncEmergency,
	0x2: FunctionCodeTimestamp,
	0x3: FunctionCodePDO1Tx,
	0x4: FunctionCodePDO1Rx,
	0x5: FunctionCodePDO2Tx,
	0x6: FunctionCodePDO2Rx,
	0x7: FunctionCodePDO3Tx,
	0x8: FunctionCodePDO3Rx,
	0x9: FunctionCodePDO4Tx,
	0xa: FunctionCodePDO4Rx,
	0xb: FunctionCodeSDOTx,
	0xc: FunctionCodeSDORx,
	0xd: FunctionCodeUnknown,
	0xe: FunctionCodeNMTNodeGuard,
	0xf: FunctionCodeUnknown,
}

var functionCodeNames = [...]string{
	FunctionCodeUnknown:          "unknown",
	FunctionCodeNMTMasterControl: "nmt_mc",
	FunctionCodeSyncEmergency:    "sync_emcy",
	FunctionCodeTimestamp:        "timestamp",
	FunctionCodePDO1Tx:           "pdo_1_tx",
	FunctionCodePDO1Rx:           "pdo_1_rx",
	FunctionCodePDO2Tx:           "pdo_2_tx",
	FunctionCodePDO2Rx:           "pdo_2_rx",
	FunctionCodePDO3Tx:           "pdo_3_tx",
	FunctionCodePDO3Rx:           "pdo_3_rx",
	FunctionCodePDO4Tx:           "pdo_4_tx",
	FunctionCodePDO4Rx:           "pdo_4_rx",
	FunctionCodeSDOTx:            "sdo_tx",
	FunctionCodeSDORx:            "sdo_rx",
	FunctionCodeNMTNodeGuard:     "nmt_ng",
}

// FunctionCodes lists all function codes that have numeric mapping.
var FunctionCodes = []FunctionCode{
	FunctionCodeNMTMasterControl,
	FunctionCodeSyncEmergency,
	FunctionCodeTimestamp,
	FunctionCodePDO1Tx,
	FunctionCodePDO1Rx,
	FunctionCodePDO2Tx,
	FunctionCodePDO2Rx,
	FunctionCodePDO3Tx,
	FunctionCodePDO3Rx,
	FunctionCodePDO4Tx,
	FunctionCodePDO4Rx,
	FunctionCodeSDOTx,
	FunctionCodeSDORx,
	FunctionCodeNMTNodeGuard,
}

// FunctionCodeNumber extracts 4 bit function code number (bits 7-10) from standard identifier.
func FunctionCodeNumber(id uint32) uint8 {
	return uint8((id & functionCodeMask) >> functionCodeShift)
}

// NodeID extracts 7 bit CANopen node id from standard identifier. Differs from BusAddress which returns whole 11 bit
// standard address including function code bits.
func NodeID(id uint32) uint8 {
	return uint8(id & nodeIDMask)
}

// ResolveFunctionCode maps function code number to role. Numbers without mapping resolve to FunctionCodeUnknown.
func ResolveFunctionCode(number uint8) FunctionCode {
	if int(number) >= len(functionCodesByNumber) {
		return FunctionCodeUnknown
	}
	return functionCodesByNumber[number]
}

// ResolveFunctionCodeStrict maps function code number to role and returns UnknownFunctionCodeError for numbers
// without mapping.
func ResolveFunctionCodeStrict(number uint8) (FunctionCode, error) {
	fc := ResolveFunctionCode(number)
	if fc == FunctionCodeUnknown {
		return FunctionCodeUnknown, &UnknownFunctionCodeError{Code: number}
	}
	return fc, nil
}

// Value returns function code number for role. FunctionCodeUnknown and invalid values have no number.
func (fc FunctionCode) Value() (uint8, bool) {
	if fc == FunctionCodeUnknown {
		return 0, false
	}
	for number, candidate := range functionCodesByNumber {
		if candidate == fc {
			return uint8(number), true
		}
	}
	return 0, false
}

func (fc FunctionCode) String() string {
	if int(fc) >= len(functionCodeNames) {
		return functionCodeNames[FunctionCodeUnknown]
	}
	return functionCodeNames[fc]
}

// Roles returns protocol roles function code could stand for. FunctionCodeSyncEmergency returns both `sync` and
// `emergency` as telling them apart is left to caller.
func (fc FunctionCode) Roles() []string {
	if fc == FunctionCodeSyncEmergency {
		return []string{"sync", "emergency"}
	}
	return []string{fc.String()}
}

// IsPDO checks if function code is any of transmit or receive PDO channels.
func (fc FunctionCode) IsPDO() bool {
	return fc >= FunctionCodePDO1Tx && fc <= FunctionCodePDO4Rx
}

// ParseFunctionCode finds function code by its name. Used for filters given as text.
func ParseFunctionCode(name string) (FunctionCode, bool) {
	for i, n := range functionCodeNames {
		if n == name {
			return FunctionCode(i), true
		}
	}
	return FunctionCodeUnknown, false
}

// MarshalText renders function code as its name.
func (fc FunctionCode) MarshalText() ([]byte, error) {
	return []byte(fc.String()), nil
}
