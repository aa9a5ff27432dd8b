//go:build linux

package socketcan

import (
	"fmt"
	"github.com/aldas/go-canopen-client"
	"golang.org/x/sys/unix"
	"net"
	"syscall"
	"time"
)

const canRaw = 1

// Connection is raw CAN socket bound to single SocketCAN interface.
type Connection struct {
	socketFD int
}

// NewConnection creates raw CAN socket and binds it to given interface (for example `can0`).
func NewConnection(ifName string) (*Connection, error) {
	ifi, err := net.InterfaceByName(ifName)
	if err != nil {
		return nil, fmt.Errorf("bad ifName: %w", err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, canRaw)
	if err != nil {
		return nil, fmt.Errorf("could not create CAN socket: %w", err)
	}

	addr := &unix.SockaddrCAN{Ifindex: ifi.Index}
	if err = unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("could not bind CAN socket: %w", err)
	}

	return &Connection{socketFD: fd}, nil
}

func dialConnection(ifName string) (frameConn, error) {
	return NewConnection(ifName)
}

func isContinuableSocketErr(err error) bool {
	// EWOULDBLOCK - If you set a timeout on the socket with SO_RCVTIMEO or SO_SNDTIMEO - in this case, a receive or
	// send will return with EWOULDBLOCK if the timeout elapses while no input data becomes available or the output
	// buffer remains full

	// EINTR - If a signal occurs during a blocking operation, then the operation will either (a) return partial
	// completion, or (b) return failure, do nothing, and set errno to EINTR.

	return err == syscall.EWOULDBLOCK || err == syscall.EINTR
}

func (c *Connection) SetReadTimeout(timeout time.Duration) error {
	return c.setSocketTimeout(unix.SO_RCVTIMEO, timeout)
}

func (c *Connection) SetSendTimeout(timeout time.Duration) error {
	return c.setSocketTimeout(unix.SO_SNDTIMEO, timeout)
}

func (c *Connection) setSocketTimeout(opt int, timeout time.Duration) error {
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	return unix.SetsockoptTimeval(c.socketFD, unix.SOL_SOCKET, opt, &tv)
}

func (c *Connection) Close() error {
	return unix.Close(c.socketFD)
}

// SendFrame writes frame to bus. Identifier flag bits are sent as they are in RawFrame.ID.
func (c *Connection) SendFrame(raw canopen.RawFrame) error {
	// Can frame structure: https://github.com/linux-can/can-utils/blob/affdc1b79973c7497bb8607603c24734e11a91aa/include/linux/can.h#L107
	canFrame, err := raw.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = unix.Write(c.socketFD, canFrame)
	if isContinuableSocketErr(err) {
		return errWriteTimeout
	}
	return err
}

// ReadFrame reads single can_frame record from socket. Returned slice is always canopen.RawFrameSize bytes.
func (c *Connection) ReadFrame() ([]byte, error) {
	canFrame := make([]byte, canopen.RawFrameSize)
	n, err := unix.Read(c.socketFD, canFrame)
	if err != nil {
		if isContinuableSocketErr(err) {
			return nil, errReadTimeout
		}
		return nil, err
	}
	if n != canopen.RawFrameSize {
		return nil, fmt.Errorf("short read from CAN socket: %d bytes", n)
	}
	return canFrame, nil
}
