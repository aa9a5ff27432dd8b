package canopen

import (
	"context"
	"time"
)

// Capture is single frame as read from bus by frame source.
type Capture struct {
	// Time is when frame was read from bus. Filled by frame source.
	Time time.Time
	// Data is frame in Linux SocketCAN can_frame layout, always RawFrameSize bytes
	Data []byte
}

// CaptureReader is frame source that yields raw can_frame records in arrival order.
type CaptureReader interface {
	ReadCapture(ctx context.Context) (Capture, error)
	Initialize() error
	Close() error
}

// RawFrameWriter is frame sink capable of transmitting frames to bus.
type RawFrameWriter interface {
	WriteRawFrame(ctx context.Context, frame RawFrame) error
}

// CaptureReaderWriter is frame source that is also able to transmit frames.
type CaptureReaderWriter interface {
	CaptureReader
	RawFrameWriter
}
