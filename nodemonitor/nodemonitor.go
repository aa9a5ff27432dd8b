package nodemonitor

import (
	"encoding/binary"
	"fmt"
	"github.com/aldas/go-canopen-client"
	"github.com/aldas/go-canopen-client/internal/syncutil"
	"sort"
	"strings"
	"time"
)

const (
	// IndexDeviceName is object dictionary index of manufacturer device name (VISIBLE_STRING)
	IndexDeviceName = uint16(0x1008)
	// IndexSoftwareVersion is object dictionary index of manufacturer software version (VISIBLE_STRING)
	IndexSoftwareVersion = uint16(0x100A)
	// IndexIdentity is object dictionary index of identity object (vendor id, product code, revision, serial number)
	IndexIdentity = uint16(0x1018)
)

// Identity holds identity object (0x1018) and manufacturer strings of node.
type Identity struct {
	VendorID       uint32 `json:"vendorId"`
	ProductCode    uint32 `json:"productCode"`
	RevisionNumber uint32 `json:"revisionNumber"`
	SerialNumber   uint32 `json:"serialNumber"`

	DeviceName      string `json:"deviceName,omitempty"`
	SoftwareVersion string `json:"softwareVersion,omitempty"`
}

// Node is CANopen node seen on bus.
type Node struct {
	ID uint8 `json:"id"`

	// State is last state reported by node heartbeat or node guard response
	State      canopen.NMTState `json:"state"`
	ValidState bool             `json:"validState"`

	// LastCommand is last NMT command sent by master to this node (directly or to all nodes)
	LastCommand      canopen.NMTCommand `json:"lastCommand,omitempty"`
	ValidLastCommand bool               `json:"validLastCommand"`

	// BootCount is number of boot-up messages seen from node
	BootCount int `json:"bootCount"`

	Identity      Identity `json:"identity"`
	ValidIdentity bool     `json:"validIdentity"`

	FirstSeen     time.Time `json:"firstSeen"`
	LastSeen      time.Time `json:"lastSeen"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
}

// IsAlive checks if node has sent heartbeat within given timeout.
func (n Node) IsAlive(now time.Time, timeout time.Duration) bool {
	if n.LastHeartbeat.IsZero() {
		return false
	}
	return now.Sub(n.LastHeartbeat) <= timeout
}

type Nodes []Node

// Monitor tracks CANopen nodes on bus from decoded frames: node presence, NMT states and identity. Monitor only
// listens to bus traffic, identity is learned from SDO uploads made by other clients (for example network master).
type Monitor struct {
	mutex syncutil.Mutex

	nodes [128]*Node
}

// NewMonitor creates new instance of node monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Process updates node states from decoded frame received at given time. Returns true when new node was discovered or
// node NMT state changed.
func (m *Monitor) Process(frame canopen.Frame, now time.Time) (bool, error) {
	fc, ok := frame.FunctionCode()
	if !ok || frame.IsErrorFrame() {
		return false, nil // extended frames are not CANopen traffic
	}
	nodeID, _ := frame.NodeID()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	switch sub := frame.SubFrame.(type) {
	case canopen.NMTMasterControl:
		m.processMasterControl(sub)
		return false, nil
	case canopen.NMTNodeGuard:
		return m.processNodeGuard(nodeID, sub, now), nil
	}

	// frames that are sent by node itself prove its presence. requests to node (SDO rx, node guard RTR) do not.
	switch {
	case fc == canopen.FunctionCodeSDOTx,
		fc == canopen.FunctionCodeSyncEmergency && nodeID != 0, // emergency, SYNC is sent with node id 0
		isTransmitPDO(fc):
		if nodeID == 0 {
			return false, nil
		}
		_, isNew := m.touch(nodeID, now)
		return isNew, nil
	}
	return false, nil
}

func isTransmitPDO(fc canopen.FunctionCode) bool {
	switch fc {
	case canopen.FunctionCodePDO1Tx, canopen.FunctionCodePDO2Tx, canopen.FunctionCodePDO3Tx, canopen.FunctionCodePDO4Tx:
		return true
	}
	return false
}

func (m *Monitor) touch(nodeID uint8, now time.Time) (*Node, bool) {
	node := m.nodes[nodeID]
	isNew := false
	if node == nil {
		node = &Node{ID: nodeID, FirstSeen: now}
		m.nodes[nodeID] = node
		isNew = true
	}
	node.LastSeen = now
	return node, isNew
}

func (m *Monitor) processNodeGuard(nodeID uint8, ng canopen.NMTNodeGuard, now time.Time) bool {
	if nodeID == 0 {
		return false
	}
	node, isChanged := m.touch(nodeID, now)
	node.LastHeartbeat = now
	if ng.State == canopen.NMTStateBootup {
		// node rebooted so identity could have changed with firmware update etc
		node.ValidIdentity = false
		node.BootCount++
		isChanged = true
	}
	if !node.ValidState || node.State != ng.State {
		isChanged = true
	}
	node.State = ng.State
	node.ValidState = true
	return isChanged
}

func (m *Monitor) processMasterControl(mc canopen.NMTMasterControl) {
	if mc.TargetNode != canopen.NMTNodeAll {
		if mc.TargetNode > 127 {
			return
		}
		node := m.nodes[mc.TargetNode]
		if node == nil {
			return
		}
		node.LastCommand = mc.Command
		node.ValidLastCommand = true
		return
	}
	for _, node := range m.nodes {
		if node == nil {
			continue
		}
		node.LastCommand = mc.Command
		node.ValidLastCommand = true
	}
}

// ProcessTransfer updates node identity from completed SDO upload of identity objects.
func (m *Monitor) ProcessTransfer(t canopen.Transfer) error {
	if t.Aborted || t.Kind != canopen.TransferUpload || t.Node == 0 || t.Node > 127 {
		return nil
	}
	if t.Index != IndexIdentity && t.Index != IndexDeviceName && t.Index != IndexSoftwareVersion {
		return nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	node, _ := m.touch(t.Node, t.Time)
	identity := &node.Identity
	switch t.Index {
	case IndexDeviceName:
		identity.DeviceName = visibleString(t.Data)
		return nil
	case IndexSoftwareVersion:
		identity.SoftwareVersion = visibleString(t.Data)
		return nil
	}

	if len(t.Data) != 4 {
		return fmt.Errorf("identity object 0x1018 sub %d has invalid length: %d", t.SubIndex, len(t.Data))
	}
	v := binary.LittleEndian.Uint32(t.Data)
	switch t.SubIndex {
	case 1:
		identity.VendorID = v
		node.ValidIdentity = true
	case 2:
		identity.ProductCode = v
	case 3:
		identity.RevisionNumber = v
	case 4:
		identity.SerialNumber = v
	}
	return nil
}

func visibleString(b []byte) string {
	return strings.TrimRight(string(b), "\x00 ")
}

// Nodes returns all nodes seen on bus ordered by node id
func (m *Monitor) Nodes() Nodes {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	result := make(Nodes, 0)
	for _, node := range m.nodes {
		if node == nil {
			continue
		}
		result = append(result, *node)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// NodesByID returns nodes seen on bus mapped by node id
func (m *Monitor) NodesByID() map[uint8]Node {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	result := make(map[uint8]Node)
	for _, node := range m.nodes {
		if node == nil {
			continue
		}
		result[node.ID] = *node
	}
	return result
}
