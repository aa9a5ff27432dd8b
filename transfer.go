package canopen

import (
	"github.com/aldas/go-canopen-client/internal/syncutil"
	"time"
)

// DefaultTransferTimeout is time after which SDO transfer without new segments is considered abandoned.
const DefaultTransferTimeout = 1 * time.Second

// TransferKind is direction of object data in SDO transfer.
type TransferKind uint8

const (
	TransferUnknown TransferKind = iota
	// TransferDownload is client writing object to server
	TransferDownload
	// TransferUpload is client reading object from server
	TransferUpload
)

func (k TransferKind) String() string {
	switch k {
	case TransferDownload:
		return "download"
	case TransferUpload:
		return "upload"
	}
	return "unknown"
}

func (k TransferKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Transfer is SDO object transfer assembled from one (expedited) or multiple (segmented) SDO frames.
type Transfer struct {
	// Time is time of last frame of transfer
	Time     time.Time    `json:"time"`
	Node     uint8        `json:"node"`
	Kind     TransferKind `json:"kind"`
	Index    uint16       `json:"index"`
	SubIndex uint8        `json:"subIndex"`

	Expedited bool   `json:"expedited"`
	Data      []byte `json:"data"`

	Aborted   bool   `json:"aborted"`
	AbortCode uint32 `json:"abortCode,omitempty"`
}

type transferKey struct {
	node uint8
	kind TransferKind
}

type sdoTransfer struct {
	index    uint16
	subIndex uint8

	sizeIndicated bool
	size          uint32

	// toggle is expected toggle bit of next data segment. First segment has toggle bit cleared.
	toggle                bool
	lastReceivedFrameTime time.Time
	data                  []byte
}

// TransferAssembler assembles SDO transfers from sequence of decoded frames. Segmented transfers are tracked per
// node and transfer kind.
type TransferAssembler struct {
	timeout    time.Duration
	inTransfer map[transferKey]*sdoTransfer

	lock syncutil.Mutex
}

// NewTransferAssembler creates new instance of SDO transfer assembler. Zero timeout uses DefaultTransferTimeout.
func NewTransferAssembler(timeout time.Duration) *TransferAssembler {
	if timeout <= 0 {
		timeout = DefaultTransferTimeout
	}
	return &TransferAssembler{
		timeout:    timeout,
		inTransfer: make(map[transferKey]*sdoTransfer),
	}
}

// InTransfer returns count of segmented transfers currently being assembled.
func (a *TransferAssembler) InTransfer() int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return len(a.inTransfer)
}

// Assemble processes frame and returns transfer when frame completes it. Frames other than SDO frames are ignored.
func (a *TransferAssembler) Assemble(frame Frame, now time.Time) (Transfer, bool) {
	node, ok := frame.NodeID()
	if !ok {
		return Transfer{}, false
	}
	var direction SDODirection
	var sdo SDO
	switch sub := frame.SubFrame.(type) {
	case SDORx:
		direction = SDODirectionRx
		sdo = sub.SDO
	case SDOTx:
		direction = SDODirectionTx
		sdo = sub.SDO
	default:
		return Transfer{}, false
	}

	a.lock.Lock()
	defer a.lock.Unlock()

	a.removeStale(now)

	switch sdo.Command {
	case SDOCommandDownloadInitiate:
		if direction == SDODirectionRx { // server response to download initiate carries no data
			return a.initiate(transferKey{node: node, kind: TransferDownload}, sdo, now)
		}
	case SDOCommandUploadInitiate:
		if direction == SDODirectionTx { // client upload initiate is request without data
			return a.initiate(transferKey{node: node, kind: TransferUpload}, sdo, now)
		}
	case SDOCommandDownloadSegment, SDOCommandUploadSegment:
		if sdo.Segment == nil || sdo.Segment.Data == nil {
			return Transfer{}, false // acknowledgement or segment request
		}
		kind := TransferDownload
		if sdo.Command == SDOCommandUploadSegment {
			kind = TransferUpload
		}
		return a.appendSegment(transferKey{node: node, kind: kind}, sdo.Segment, now)
	case SDOCommandAbortTransfer:
		return a.abort(node, sdo, now), true
	}
	return Transfer{}, false
}

func (a *TransferAssembler) initiate(key transferKey, sdo SDO, now time.Time) (Transfer, bool) {
	delete(a.inTransfer, key)
	if sdo.Expedited {
		return Transfer{
			Time:      now,
			Node:      key.node,
			Kind:      key.kind,
			Index:     sdo.Index,
			SubIndex:  sdo.SubIndex,
			Expedited: true,
			Data:      append([]byte{}, sdo.ExpeditedData...),
		}, true
	}
	a.inTransfer[key] = &sdoTransfer{
		index:                 sdo.Index,
		subIndex:              sdo.SubIndex,
		sizeIndicated:         sdo.SizeIndicated,
		size:                  sdo.IndicatedSize,
		lastReceivedFrameTime: now,
		data:                  make([]byte, 0, 7),
	}
	return Transfer{}, false
}

func (a *TransferAssembler) appendSegment(key transferKey, seg *SDOSegment, now time.Time) (Transfer, bool) {
	t, ok := a.inTransfer[key]
	if !ok {
		return Transfer{}, false // we started listening in the middle of transfer
	}
	if seg.Toggle != t.toggle { // toggle bit not alternated, transfer is broken
		delete(a.inTransfer, key)
		return Transfer{}, false
	}
	t.toggle = !t.toggle
	t.lastReceivedFrameTime = now
	t.data = append(t.data, seg.Data...)
	if !seg.Last {
		return Transfer{}, false
	}
	delete(a.inTransfer, key)

	data := t.data
	if t.sizeIndicated && uint32(len(data)) > t.size {
		data = data[:t.size]
	}
	return Transfer{
		Time:     now,
		Node:     key.node,
		Kind:     key.kind,
		Index:    t.index,
		SubIndex: t.subIndex,
		Data:     data,
	}, true
}

func (a *TransferAssembler) abort(node uint8, sdo SDO, now time.Time) Transfer {
	kind := TransferUnknown
	for _, k := range []TransferKind{TransferDownload, TransferUpload} {
		key := transferKey{node: node, kind: k}
		if t, ok := a.inTransfer[key]; ok && t.index == sdo.Index && t.subIndex == sdo.SubIndex {
			kind = k
			delete(a.inTransfer, key)
		}
	}
	return Transfer{
		Time:      now,
		Node:      node,
		Kind:      kind,
		Index:     sdo.Index,
		SubIndex:  sdo.SubIndex,
		Aborted:   true,
		AbortCode: sdo.AbortCode,
	}
}

func (a *TransferAssembler) removeStale(now time.Time) {
	threshold := now.Add(-a.timeout)
	for key, t := range a.inTransfer {
		if t.lastReceivedFrameTime.Before(threshold) {
			delete(a.inTransfer, key)
		}
	}
}
