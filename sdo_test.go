package canopen

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestDecodeSDO(t *testing.T) {
	var testCases = []struct {
		name        string
		direction   SDODirection
		when        [8]byte
		expect      SDO
		expectError string
	}{
		{
			name:      "ok, rx expedited download initiate 4 bytes",
			direction: SDODirectionRx,
			when:      [8]byte{0x23, 0x00, 0x10, 0x00, 0x01, 0x02, 0x03, 0x04},
			expect: SDO{
				CommandSpecifier: 0x20,
				Command:          SDOCommandDownloadInitiate,
				Expedited:        true,
				SizeIndicated:    true,
				UnusedCount:      0,
				ExpeditedSize:    4,
				Index:            0x1000,
				SubIndex:         0,
				ExpeditedData:    []byte{0x01, 0x02, 0x03, 0x04},
			},
		},
		{
			name:      "ok, rx expedited download initiate 1 byte",
			direction: SDODirectionRx,
			when:      [8]byte{0x2F, 0x17, 0x10, 0x02, 0xAA, 0xBB, 0xCC, 0xDD},
			expect: SDO{
				CommandSpecifier: 0x20,
				Command:          SDOCommandDownloadInitiate,
				Expedited:        true,
				SizeIndicated:    true,
				UnusedCount:      3,
				ExpeditedSize:    1,
				Index:            0x1017,
				SubIndex:         2,
				ExpeditedData:    []byte{0xAA},
			},
		},
		{
			name:      "ok, rx segmented download initiate with size",
			direction: SDODirectionRx,
			when:      [8]byte{0x21, 0x08, 0x10, 0x00, 0x0A, 0x00, 0x00, 0x00},
			expect: SDO{
				CommandSpecifier: 0x20,
				Command:          SDOCommandDownloadInitiate,
				SizeIndicated:    true,
				Index:            0x1008,
				SubIndex:         0,
				SegmentedSize:    0x10,
				IndicatedSize:    10,
			},
		},
		{
			name:      "ok, rx upload initiate request",
			direction: SDODirectionRx,
			when:      [8]byte{0x40, 0x18, 0x10, 0x01, 0x00, 0x00, 0x00, 0x00},
			expect: SDO{
				CommandSpecifier: 0x40,
				Command:          SDOCommandUploadInitiate,
				Index:            0x1018,
				SubIndex:         1,
				SegmentedSize:    0x10,
			},
		},
		{
			name:      "ok, tx expedited upload initiate response 2 bytes",
			direction: SDODirectionTx,
			when:      [8]byte{0x4B, 0x00, 0x20, 0x05, 0x34, 0x12, 0x00, 0x00},
			expect: SDO{
				CommandSpecifier: 0x40,
				Command:          SDOCommandUploadInitiate,
				Expedited:        true,
				SizeIndicated:    true,
				UnusedCount:      2,
				ExpeditedSize:    2,
				Index:            0x2000,
				SubIndex:         5,
				ExpeditedData:    []byte{0x34, 0x12},
			},
		},
		{
			name:      "ok, tx download initiate response",
			direction: SDODirectionTx,
			when:      [8]byte{0x60, 0x00, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00},
			expect: SDO{
				CommandSpecifier: 0x60,
				Command:          SDOCommandDownloadInitiate,
				Index:            0x1000,
				SegmentedSize:    0x10,
			},
		},
		{
			name:      "ok, rx download segment with data, last",
			direction: SDODirectionRx,
			when:      [8]byte{0x1B, 0x41, 0x42, 0x43, 0x00, 0x00, 0x00, 0x00}, // toggle=1, n=5, c=1
			expect: SDO{
				CommandSpecifier: 0x00,
				Command:          SDOCommandDownloadSegment,
				Index:            0x4241,
				SubIndex:         0x43,
				Segment: &SDOSegment{
					Toggle: true,
					Last:   true,
					Size:   2,
					Data:   []byte{0x41, 0x42},
				},
			},
		},
		{
			name:      "ok, tx download segment acknowledgement",
			direction: SDODirectionTx,
			when:      [8]byte{0x30, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			expect: SDO{
				CommandSpecifier: 0x20,
				Command:          SDOCommandDownloadSegment,
				Segment:          &SDOSegment{Toggle: true},
			},
		},
		{
			name:      "ok, tx upload segment with 7 bytes",
			direction: SDODirectionTx,
			when:      [8]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07},
			expect: SDO{
				CommandSpecifier: 0x00,
				Command:          SDOCommandUploadSegment,
				Index:            0x0201,
				SubIndex:         0x03,
				Segment: &SDOSegment{
					Size: 7,
					Data: []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07},
				},
			},
		},
		{
			name:      "ok, rx upload segment request",
			direction: SDODirectionRx,
			when:      [8]byte{0x70},
			expect: SDO{
				CommandSpecifier: 0x60,
				Command:          SDOCommandUploadSegment,
				Segment:          &SDOSegment{Toggle: true},
			},
		},
		{
			name:      "ok, tx abort",
			direction: SDODirectionTx,
			when:      [8]byte{0x80, 0x00, 0x10, 0x00, 0x00, 0x00, 0x02, 0x06},
			expect: SDO{
				CommandSpecifier: 0x80,
				Command:          SDOCommandAbortTransfer,
				Index:            0x1000,
				AbortCode:        0x06020000,
			},
		},
		{
			name:      "ok, rx block download",
			direction: SDODirectionRx,
			when:      [8]byte{0xC6, 0x00, 0x10, 0x00},
			expect: SDO{
				CommandSpecifier: 0xC0,
				Command:          SDOCommandBlockDownload,
				Index:            0x1000,
			},
		},
		{
			name:      "ok, tx block download",
			direction: SDODirectionTx,
			when:      [8]byte{0xA4, 0x00, 0x10, 0x00},
			expect: SDO{
				CommandSpecifier: 0xA0,
				Command:          SDOCommandBlockDownload,
				Index:            0x1000,
			},
		},
		{
			name:        "nok, rx 0xA0 is not mapped",
			direction:   SDODirectionRx,
			when:        [8]byte{0xA0},
			expectError: "unknown SDO command specifier: rx 0xa0",
		},
		{
			name:        "nok, tx 0xC0 is not mapped",
			direction:   SDODirectionTx,
			when:        [8]byte{0xC1},
			expectError: "unknown SDO command specifier: tx 0xc0",
		},
		{
			name:        "nok, 0xE0 is not mapped",
			direction:   SDODirectionTx,
			when:        [8]byte{0xE0},
			expectError: "unknown SDO command specifier: tx 0xe0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := DecodeSDO(tc.direction, tc.when)

			assert.Equal(t, tc.expect, result)
			if tc.expectError != "" {
				assert.EqualError(t, err, tc.expectError)
				assert.True(t, errors.Is(err, ErrUnknownSDOCommand))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUnknownSDOCommandError_carriesValue(t *testing.T) {
	_, err := DecodeSDO(SDODirectionRx, [8]byte{0xE5})

	var target *UnknownSDOCommandError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, uint8(0xE0), target.CommandSpecifier)
	assert.Equal(t, SDODirectionRx, target.Direction)
}

func TestDecodeSDO_expeditedSizeIsAlwaysInRange(t *testing.T) {
	for _, direction := range []SDODirection{SDODirectionRx, SDODirectionTx} {
		for b0 := 0; b0 <= 0xFF; b0++ {
			s, err := DecodeSDO(direction, [8]byte{uint8(b0), 1, 2, 3, 4, 5, 6, 7})
			if err != nil || !s.Expedited {
				continue
			}
			assert.True(t, s.Command.IsInitiate())
			assert.GreaterOrEqual(t, s.ExpeditedSize, uint8(1))
			assert.LessOrEqual(t, s.ExpeditedSize, uint8(4))
			assert.Len(t, s.ExpeditedData, int(s.ExpeditedSize))
		}
	}
}

func TestResolveSDOCommand_directionTables(t *testing.T) {
	var testCases = []struct {
		command SDOCommand
		rx      uint8
		tx      uint8
	}{
		{command: SDOCommandDownloadInitiate, rx: 0x20, tx: 0x60},
		{command: SDOCommandDownloadSegment, rx: 0x00, tx: 0x20},
		{command: SDOCommandUploadInitiate, rx: 0x40, tx: 0x40},
		{command: SDOCommandUploadSegment, rx: 0x60, tx: 0x00},
		{command: SDOCommandAbortTransfer, rx: 0x80, tx: 0x80},
		{command: SDOCommandBlockDownload, rx: 0xC0, tx: 0xA0},
	}
	for _, tc := range testCases {
		t.Run(tc.command.String(), func(t *testing.T) {
			cmd, ok := ResolveSDOCommand(SDODirectionRx, tc.rx)
			assert.True(t, ok)
			assert.Equal(t, tc.command, cmd)

			cmd, ok = ResolveSDOCommand(SDODirectionTx, tc.tx)
			assert.True(t, ok)
			assert.Equal(t, tc.command, cmd)

			cs, ok := tc.command.CommandSpecifier(SDODirectionRx)
			assert.True(t, ok)
			assert.Equal(t, tc.rx, cs)

			cs, ok = tc.command.CommandSpecifier(SDODirectionTx)
			assert.True(t, ok)
			assert.Equal(t, tc.tx, cs)
		})
	}
}

func TestSDO_AbortMessage(t *testing.T) {
	var testCases = []struct {
		name     string
		when     SDO
		expect   string
		expectOK bool
	}{
		{
			name:     "ok, toggle bit",
			when:     SDO{Command: SDOCommandAbortTransfer, AbortCode: 0x05030000},
			expect:   "Toggle bit not alternated",
			expectOK: true,
		},
		{
			name:     "ok, object does not exist",
			when:     SDO{Command: SDOCommandAbortTransfer, AbortCode: 0x06020000},
			expect:   "Object does not exist in the Object Dictionary",
			expectOK: true,
		},
		{
			name: "ok, code not in table",
			when: SDO{Command: SDOCommandAbortTransfer, AbortCode: 0x12345678},
		},
		{
			name: "ok, not abort frame",
			when: SDO{Command: SDOCommandDownloadInitiate, AbortCode: 0x06020000},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg, ok := tc.when.AbortMessage()
			assert.Equal(t, tc.expect, msg)
			assert.Equal(t, tc.expectOK, ok)
		})
	}
}

func TestSDO_String(t *testing.T) {
	var testCases = []struct {
		name   string
		when   SubFrame
		expect string
	}{
		{
			name: "rx expedited download",
			when: SDORx{SDO{
				Command:       SDOCommandDownloadInitiate,
				Expedited:     true,
				SizeIndicated: true,
				ExpeditedSize: 2,
				Index:         0x6040,
				SubIndex:      0,
				ExpeditedData: []byte{0x0f, 0x00},
			}},
			expect: "[SDO RX Initiate Domain Download EXPEDITED SIZE:2 INDEX:0x6040 SUBINDEX:0 DATA:0f.00]",
		},
		{
			name:   "rx upload request",
			when:   SDORx{SDO{Command: SDOCommandUploadInitiate, Index: 0x1018, SubIndex: 1}},
			expect: "[SDO RX Initiate Domain Upload INDEX:0x1018 SUBINDEX:1]",
		},
		{
			name: "tx segmented upload response",
			when: SDOTx{SDO{
				Command:       SDOCommandUploadInitiate,
				SizeIndicated: true,
				IndicatedSize: 12,
				Index:         0x1008,
			}},
			expect: "[SDO TX Initiate Domain Upload SEGMENTED SIZE:12 INDEX:0x1008 SUBINDEX:0]",
		},
		{
			name: "tx upload segment",
			when: SDOTx{SDO{
				Command: SDOCommandUploadSegment,
				Segment: &SDOSegment{Toggle: true, Last: true, Size: 2, Data: []byte{0x41, 0x42}},
			}},
			expect: "[SDO TX Upload Domain Segment T:1 SIZE:2 DATA:41.42 LAST]",
		},
		{
			name:   "tx abort",
			when:   SDOTx{SDO{Command: SDOCommandAbortTransfer, Index: 0x1000, AbortCode: 0x06020000}},
			expect: `[SDO TX Abort Domain Transfer INDEX:0x1000 SUBINDEX:0 ABORT:0x06020000 "Object does not exist in the Object Dictionary"]`,
		},
		{
			name:   "rx abort unlisted code",
			when:   SDORx{SDO{Command: SDOCommandAbortTransfer, Index: 0x2000, SubIndex: 1, AbortCode: 0x01}},
			expect: `[SDO RX Abort Domain Transfer INDEX:0x2000 SUBINDEX:1 ABORT:0x00000001]`,
		},
		{
			name:   "rx block download",
			when:   SDORx{SDO{Command: SDOCommandBlockDownload}},
			expect: `[SDO RX Block Download ?]`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, tc.when.String())
		})
	}
}
