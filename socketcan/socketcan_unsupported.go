//go:build !linux

package socketcan

import "errors"

func dialConnection(ifName string) (frameConn, error) {
	return nil, errors.New("socketcan is only supported on linux")
}
