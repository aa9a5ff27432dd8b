package slcan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/aldas/go-canopen-client"
	"github.com/aldas/go-canopen-client/internal/utils"
	"io"
	"time"
)

// DefaultBitrate is CAN bus bitrate used when Config.Bitrate is not set
const DefaultBitrate = 500_000

const maxLineLength = 64

// Config configures SLCAN (Lawicel ASCII protocol) serial adapter.
type Config struct {
	// Bitrate is CAN bus bitrate in bits per second.
	Bitrate int
	// ListenOnly opens channel in listen only mode (`L` command) so adapter does not acknowledge frames on bus.
	ListenOnly bool

	DebugLogRawFrameBytes bool
}

// Device is frame source reading frames from SLCAN compatible USB-CAN adapter (CANable, USBtin etc).
type Device struct {
	device  io.ReadWriter
	timeNow func() time.Time

	readBuffer []byte
	readIndex  int

	config Config
}

// NewDevice creates new instance of SLCAN device. Device is usually serial port opened with tarm/serial.
func NewDevice(device io.ReadWriter, config Config) *Device {
	if config.Bitrate == 0 {
		config.Bitrate = DefaultBitrate
	}
	return &Device{
		device:     device,
		timeNow:    time.Now,
		readBuffer: make([]byte, maxLineLength),
		config:     config,
	}
}

func (d *Device) Close() error {
	_, _ = d.device.Write([]byte("C\r"))
	if c, ok := d.device.(io.Closer); ok {
		return c.Close()
	}
	return errors.New("device does not implement Closer interface")
}

// Initialize closes channel (adapter could be left open by previous session), sets bitrate and opens channel.
func (d *Device) Initialize() error {
	bitrate, err := BitrateCommand(d.config.Bitrate)
	if err != nil {
		return err
	}
	open := "O"
	if d.config.ListenOnly {
		open = "L"
	}
	for _, cmd := range []string{"C", bitrate, open} {
		if err := d.writeCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) writeCommand(cmd string) error {
	b := []byte(cmd + "\r")
	if d.config.DebugLogRawFrameBytes {
		fmt.Printf("# DEBUG Writing SLCAN bytes: `%v`\n", utils.FormatSpaces(b))
	}
	_, err := d.device.Write(b)
	return err
}

// WriteRawFrame transmits frame to bus.
func (d *Device) WriteRawFrame(ctx context.Context, frame canopen.RawFrame) error {
	b := MarshalFrame(frame)
	if d.config.DebugLogRawFrameBytes {
		fmt.Printf("# DEBUG Writing SLCAN bytes: `%v`\n", utils.FormatSpaces(b))
	}
	_, err := d.device.Write(b)
	return err
}

// ReadCapture reads frames from adapter until complete data or remote request frame is received.
func (d *Device) ReadCapture(ctx context.Context) (canopen.Capture, error) {
	frame, err := d.ReadRawFrame(ctx)
	if err != nil {
		return canopen.Capture{}, err
	}
	b, err := frame.MarshalBinary()
	if err != nil {
		return canopen.Capture{}, err
	}
	return canopen.Capture{
		Time: d.timeNow(),
		Data: b,
	}, nil
}

// ReadRawFrame reads next frame from adapter. Acknowledgement and garbage lines are skipped.
func (d *Device) ReadRawFrame(ctx context.Context) (canopen.RawFrame, error) {
	// Example: 't60282300100001020304\r'
	buf := make([]byte, maxLineLength)

	for {
		select {
		case <-ctx.Done():
			return canopen.RawFrame{}, ctx.Err()
		default:
		}

		// check if previous read already contains complete line
		if line, ok := d.nextLine(); ok {
			frame, skip, err := d.parseLine(line)
			if skip {
				continue
			}
			return frame, err
		}

		n, err := d.device.Read(buf) // serial port read timeout limits how long this blocks
		if err != nil {
			return canopen.RawFrame{}, err
		}
		if n == 0 {
			continue
		}
		if d.readIndex+n > len(d.readBuffer) {
			// no line end seen for too long. this is garbage from the wire, or we started reading mid-line
			d.readIndex = 0
			continue
		}
		copy(d.readBuffer[d.readIndex:], buf[0:n])
		d.readIndex += n
	}
}

func (d *Device) nextLine() ([]byte, bool) {
	// `\a` (bell) is error response from adapter to previous command
	endIndex := bytes.IndexAny(d.readBuffer[0:d.readIndex], "\r\n\a")
	if endIndex == -1 {
		return nil, false
	}
	line := make([]byte, endIndex)
	copy(line, d.readBuffer[0:endIndex])

	// reset read buffer to whatever we were able to read past current line end
	rest := d.readIndex - (endIndex + 1)
	copy(d.readBuffer, d.readBuffer[endIndex+1:d.readIndex])
	d.readIndex = rest
	return line, true
}

func (d *Device) parseLine(line []byte) (canopen.RawFrame, bool, error) {
	if d.config.DebugLogRawFrameBytes {
		fmt.Printf("# DEBUG Read SLCAN line: %v\n", utils.FormatSpaces(line))
	}
	return ParseFrame(line)
}
