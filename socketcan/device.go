package socketcan

import (
	"context"
	"errors"
	"fmt"
	"github.com/aldas/go-canopen-client"
	"github.com/aldas/go-canopen-client/internal/utils"
	"time"
)

var errReadTimeout = errors.New("read timeout")
var errWriteTimeout = errors.New("write timeout")

// ErrNoDataReceived is returned when bus has been silent for longer than configured receive data timeout.
var ErrNoDataReceived = errors.New("no data received from bus within timeout")

const (
	// DefaultReceiveDataTimeout is used when DeviceConfig.ReceiveDataTimeout is not set
	DefaultReceiveDataTimeout = 5 * time.Second

	readBlockTimeout = 50 * time.Millisecond
)

type frameConn interface {
	SetReadTimeout(timeout time.Duration) error
	ReadFrame() ([]byte, error)
	SendFrame(raw canopen.RawFrame) error
	Close() error
}

// DeviceConfig configures SocketCAN frame source.
type DeviceConfig struct {
	// InterfaceName is SocketCAN interface name. For example: can0
	InterfaceName string

	// ReceiveDataTimeout is to limit amount of time reads can result no data. to timeout the connection when there is no
	// interaction in bus. This is different from for example serial device readTimeout which limits how much time Read
	// call blocks but we want to Reads block small amount of time to be able to check if context was cancelled during read
	// but at the same time we want to be able to detect when there are no coming from bus for excessive amount of time.
	// Negative value disables the check.
	ReceiveDataTimeout time.Duration

	// SkipErrorFrames instructs device to not return frames with ERR flag set.
	SkipErrorFrames bool

	DebugLogRawFrameBytes bool
}

// Device is frame source reading can_frame records from Linux SocketCAN interface.
type Device struct {
	conn   frameConn
	config DeviceConfig

	dial    func(ifName string) (frameConn, error)
	timeNow func() time.Time
}

// NewDevice creates new instance of SocketCAN frame source. Connection is opened by Initialize.
func NewDevice(config DeviceConfig) *Device {
	if config.ReceiveDataTimeout == 0 {
		config.ReceiveDataTimeout = DefaultReceiveDataTimeout
	}
	return &Device{
		config:  config,
		dial:    dialConnection,
		timeNow: time.Now,
	}
}

func (d *Device) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

func (d *Device) Initialize() error {
	conn, err := d.dial(d.config.InterfaceName)
	if err != nil {
		return err
	}
	d.conn = conn
	return nil
}

// WriteRawFrame transmits frame to bus.
func (d *Device) WriteRawFrame(ctx context.Context, frame canopen.RawFrame) error {
	if d.conn == nil {
		return errors.New("socketcan device is not initialized")
	}
	if d.config.DebugLogRawFrameBytes {
		fmt.Printf("# DEBUG Writing SocketCAN frame: %+v\n", frame)
	}
	return d.conn.SendFrame(frame)
}

// ReadCapture blocks until frame is read from bus, context is cancelled or bus has been silent for longer than
// receive data timeout.
func (d *Device) ReadCapture(ctx context.Context) (canopen.Capture, error) {
	if d.conn == nil {
		return canopen.Capture{}, errors.New("socketcan device is not initialized")
	}
	start := d.timeNow()
	for {
		select {
		case <-ctx.Done():
			return canopen.Capture{}, ctx.Err()
		default:
		}

		// short block time per iteration so context cancellation is noticed
		if err := d.conn.SetReadTimeout(readBlockTimeout); err != nil {
			return canopen.Capture{}, err
		}
		frame, err := d.conn.ReadFrame()

		now := d.timeNow()
		if err != nil {
			if errors.Is(err, errReadTimeout) {
				if d.config.ReceiveDataTimeout > 0 && now.Sub(start) > d.config.ReceiveDataTimeout {
					return canopen.Capture{}, ErrNoDataReceived
				}
				continue
			}
			return canopen.Capture{}, err
		}
		if d.config.DebugLogRawFrameBytes {
			fmt.Printf("# DEBUG Read SocketCAN frame: %v\n", utils.JoinHex(frame, " "))
		}
		if d.config.SkipErrorFrames && canopen.IsErrorFrame(frameID(frame)) {
			continue
		}

		return canopen.Capture{
			Time: now,
			Data: frame,
		}, nil
	}
}

func frameID(frame []byte) uint32 {
	raw, err := canopen.ParseRawFrame(frame)
	if err != nil {
		return 0
	}
	return raw.ID
}
