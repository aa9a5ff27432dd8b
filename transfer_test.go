package canopen

import (
	test_test "github.com/aldas/go-canopen-client/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func decodeFrames(t *testing.T, frames ...[]byte) []Frame {
	result := make([]Frame, 0, len(frames))
	for _, b := range frames {
		f, err := Decode(b)
		require.NoError(t, err)
		result = append(result, f)
	}
	return result
}

func TestTransferAssembler_Assemble(t *testing.T) {
	var testCases = []struct {
		name   string
		when   [][]byte
		expect []Transfer
	}{
		{
			name: "ok, expedited download",
			when: [][]byte{
				test_test.CANFrame(0x605, 0x2B, 0x17, 0x10, 0x00, 0xE8, 0x03, 0x00, 0x00),
				test_test.CANFrame(0x585, 0x60, 0x17, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00),
			},
			expect: []Transfer{
				{
					Time:      test_test.UTCTime(1),
					Node:      5,
					Kind:      TransferDownload,
					Index:     0x1017,
					Expedited: true,
					Data:      []byte{0xE8, 0x03},
				},
			},
		},
		{
			name: "ok, expedited upload",
			when: [][]byte{
				test_test.CANFrame(0x601, 0x40, 0x18, 0x10, 0x01, 0x00, 0x00, 0x00, 0x00),
				test_test.CANFrame(0x581, 0x43, 0x18, 0x10, 0x01, 0x01, 0x02, 0x03, 0x04),
			},
			expect: []Transfer{
				{
					Time:      test_test.UTCTime(2),
					Node:      1,
					Kind:      TransferUpload,
					Index:     0x1018,
					SubIndex:  1,
					Expedited: true,
					Data:      []byte{0x01, 0x02, 0x03, 0x04},
				},
			},
		},
		{
			name: "ok, segmented upload truncated to indicated size",
			when: [][]byte{
				test_test.CANFrame(0x601, 0x40, 0x08, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00),
				test_test.CANFrame(0x581, 0x41, 0x08, 0x10, 0x00, 0x0A, 0x00, 0x00, 0x00),
				test_test.CANFrame(0x601, 0x60, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00),
				test_test.CANFrame(0x581, 0x00, 'C', 'A', 'N', 'o', 'p', 'e', 'n'),
				test_test.CANFrame(0x601, 0x70, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00),
				test_test.CANFrame(0x581, 0x19, 'X', 'Y', 'Z', 0x00, 0x00, 0x00, 0x00), // toggle, 4 unused, last
			},
			expect: []Transfer{
				{
					Time:     test_test.UTCTime(6),
					Node:     1,
					Kind:     TransferUpload,
					Index:    0x1008,
					SubIndex: 0,
					Data:     []byte("CANopenXYZ"),
				},
			},
		},
		{
			name: "ok, segmented download",
			when: [][]byte{
				test_test.CANFrame(0x602, 0x21, 0x00, 0x20, 0x01, 0x09, 0x00, 0x00, 0x00),
				test_test.CANFrame(0x582, 0x60, 0x00, 0x20, 0x01, 0x00, 0x00, 0x00, 0x00),
				test_test.CANFrame(0x602, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07),
				test_test.CANFrame(0x582, 0x20, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00),
				test_test.CANFrame(0x602, 0x1B, 0x08, 0x09, 0x00, 0x00, 0x00, 0x00, 0x00), // toggle, 5 unused, last
			},
			expect: []Transfer{
				{
					Time:     test_test.UTCTime(5),
					Node:     2,
					Kind:     TransferDownload,
					Index:    0x2000,
					SubIndex: 1,
					Data:     []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09},
				},
			},
		},
		{
			name: "nok, toggle bit not alternated drops transfer",
			when: [][]byte{
				test_test.CANFrame(0x602, 0x20, 0x00, 0x20, 0x01, 0x00, 0x00, 0x00, 0x00),
				test_test.CANFrame(0x602, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07),
				test_test.CANFrame(0x602, 0x01, 0x08, 0x09, 0x00, 0x00, 0x00, 0x00, 0x00),
			},
			expect: nil,
		},
		{
			name: "nok, segments without initiate are ignored",
			when: [][]byte{
				test_test.CANFrame(0x581, 0x01, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07),
			},
			expect: nil,
		},
		{
			name: "ok, abort ends transfer",
			when: [][]byte{
				test_test.CANFrame(0x603, 0x40, 0x00, 0x30, 0x02, 0x00, 0x00, 0x00, 0x00),
				test_test.CANFrame(0x583, 0x41, 0x00, 0x30, 0x02, 0x20, 0x00, 0x00, 0x00),
				test_test.CANFrame(0x603, 0x80, 0x00, 0x30, 0x02, 0x00, 0x00, 0x04, 0x05),
			},
			expect: []Transfer{
				{
					Time:      test_test.UTCTime(3),
					Node:      3,
					Kind:      TransferUpload,
					Index:     0x3000,
					SubIndex:  2,
					Aborted:   true,
					AbortCode: 0x05040000,
				},
			},
		},
		{
			name: "ok, abort without transfer in progress",
			when: [][]byte{
				test_test.CANFrame(0x583, 0x80, 0x00, 0x10, 0x00, 0x00, 0x00, 0x02, 0x06),
			},
			expect: []Transfer{
				{
					Time:      test_test.UTCTime(1),
					Node:      3,
					Kind:      TransferUnknown,
					Index:     0x1000,
					Aborted:   true,
					AbortCode: 0x06020000,
				},
			},
		},
		{
			name: "ok, non SDO frames are ignored",
			when: [][]byte{
				test_test.CANFrame(0x000, 0x01, 0x00),
				test_test.CANFrame(0x185, 0x01, 0x02),
				test_test.CANFrame(0x80000605, 0x23, 0x00, 0x10, 0x00, 0x01, 0x02, 0x03, 0x04),
			},
			expect: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assembler := NewTransferAssembler(0)

			var result []Transfer
			for i, f := range decodeFrames(t, tc.when...) {
				if transfer, ok := assembler.Assemble(f, test_test.UTCTime(int64(i+1))); ok {
					result = append(result, transfer)
				}
			}

			assert.Equal(t, tc.expect, result)
			assert.Equal(t, 0, assembler.InTransfer())
		})
	}
}

func TestTransferAssembler_removesStaleTransfers(t *testing.T) {
	assembler := NewTransferAssembler(500 * time.Millisecond)
	frames := decodeFrames(t,
		test_test.CANFrame(0x602, 0x21, 0x00, 0x20, 0x01, 0x09, 0x00, 0x00, 0x00),
		test_test.CANFrame(0x603, 0x40, 0x00, 0x20, 0x01, 0x00, 0x00, 0x00, 0x00),
	)

	start := test_test.UTCTime(10)
	_, ok := assembler.Assemble(frames[0], start)
	assert.False(t, ok)
	assert.Equal(t, 1, assembler.InTransfer())

	// upload request from client carries no data and does not start transfer, but still triggers cleanup
	_, ok = assembler.Assemble(frames[1], start.Add(1*time.Second))
	assert.False(t, ok)
	assert.Equal(t, 0, assembler.InTransfer())
}

func TestNewTransferAssembler_defaultTimeout(t *testing.T) {
	assembler := NewTransferAssembler(-1)
	assert.Equal(t, DefaultTransferTimeout, assembler.timeout)
}
