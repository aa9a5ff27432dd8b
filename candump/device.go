package candump

import (
	"bufio"
	"context"
	"github.com/aldas/go-canopen-client"
	"io"
	"strings"
)

// Device is frame source replaying candump log file (`candump -L` output).
type Device struct {
	reader  io.Reader
	scanner *bufio.Scanner
}

func NewDevice(reader io.Reader) *Device {
	return &Device{
		reader:  reader,
		scanner: bufio.NewScanner(reader),
	}
}

func (d *Device) Initialize() error {
	return nil // do nothing
}

// ReadCapture returns next frame from log. Capture time is time from log line. Returns io.EOF at the end of log.
func (d *Device) ReadCapture(ctx context.Context) (canopen.Capture, error) {
	for d.scanner.Scan() {
		select {
		case <-ctx.Done():
			return canopen.Capture{}, ctx.Err()
		default:
		}
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		l, err := Unmarshal(line)
		if err != nil {
			return canopen.Capture{}, err
		}
		b, err := l.Frame.MarshalBinary()
		if err != nil {
			return canopen.Capture{}, err
		}
		return canopen.Capture{Time: l.Time, Data: b}, nil
	}
	if err := d.scanner.Err(); err != nil {
		return canopen.Capture{}, err
	}
	return canopen.Capture{}, io.EOF
}

func (d *Device) Close() error {
	closer, ok := d.reader.(io.Closer)
	if ok {
		return closer.Close()
	}
	return nil
}
