package candump

import (
	"bytes"
	"context"
	test_test "github.com/aldas/go-canopen-client/test"
	"github.com/stretchr/testify/assert"
	"io"
	"testing"
	"time"
)

func TestDevice_ReadCapture(t *testing.T) {
	d := NewDevice(bytes.NewReader(test_test.LoadBytes(t, "sdo_upload.log")))
	assert.NoError(t, d.Initialize())
	defer d.Close()

	var result [][]byte
	var times []time.Time
	for {
		c, err := d.ReadCapture(context.Background())
		if err == io.EOF {
			break
		}
		if !assert.NoError(t, err) {
			return
		}
		result = append(result, c.Data)
		times = append(times, c.Time)
	}

	expect := [][]byte{
		test_test.CANFrame(0x000, 0x01, 0x00),
		test_test.CANFrame(0x705, 0x05),
		test_test.CANFrame(0x601, 0x40, 0x08, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00),
		test_test.CANFrame(0x581, 0x41, 0x08, 0x10, 0x00, 0x0A, 0x00, 0x00, 0x00),
		test_test.CANFrame(0x40000705),
		test_test.CANFrame(0x80000000|0x1ABCDEFF, 0x01, 0x02),
	}
	assert.Equal(t, expect, result)
	assert.Equal(t, time.Unix(1665488842, 100_000).UTC(), times[0])
	assert.Equal(t, time.Unix(1665488842, 4_000_000).UTC(), times[5])
}

func TestDevice_ReadCapture_invalidLine(t *testing.T) {
	d := NewDevice(bytes.NewReader([]byte("(1665488842.000100) can0 000#0100\ngarbage\n")))

	_, err := d.ReadCapture(context.Background())
	assert.NoError(t, err)

	_, err = d.ReadCapture(context.Background())
	assert.EqualError(t, err, "candump input has different amount of components than expected")
}
