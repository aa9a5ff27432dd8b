package canopen

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestDecodeNMTMasterControl(t *testing.T) {
	var testCases = []struct {
		name        string
		when        [8]byte
		expect      NMTMasterControl
		expectError string
	}{
		{
			name:   "ok, start all nodes",
			when:   [8]byte{0x01, 0x00},
			expect: NMTMasterControl{Command: NMTStart, TargetNode: NMTNodeAll},
		},
		{
			name:   "ok, stop node",
			when:   [8]byte{0x02, 0x7F},
			expect: NMTMasterControl{Command: NMTStop, TargetNode: 0x7F},
		},
		{
			name:   "ok, enter pre-operational",
			when:   [8]byte{0x80, 0x01},
			expect: NMTMasterControl{Command: NMTEnterPreOperational, TargetNode: 1},
		},
		{
			name:   "ok, reset application",
			when:   [8]byte{0x81, 0x05},
			expect: NMTMasterControl{Command: NMTResetApplication, TargetNode: 5},
		},
		{
			name:   "ok, reset communication",
			when:   [8]byte{0x82, 0x05},
			expect: NMTMasterControl{Command: NMTResetCommunication, TargetNode: 5},
		},
		{
			name:        "nok, unknown command",
			when:        [8]byte{0x03, 0x05},
			expectError: "unknown NMT command: 0x03",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := DecodeNMTMasterControl(tc.when)

			assert.Equal(t, tc.expect, result)
			if tc.expectError != "" {
				assert.EqualError(t, err, tc.expectError)
				assert.True(t, errors.Is(err, ErrUnknownNMTCommand))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUnknownNMTCommandError_carriesValue(t *testing.T) {
	_, err := DecodeNMTMasterControl([8]byte{0xFE})

	var target *UnknownNMTCommandError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, uint8(0xFE), target.Command)
}

func TestNMTMasterControl_String(t *testing.T) {
	n := NMTMasterControl{Command: NMTResetApplication, TargetNode: 0x15}
	assert.Equal(t, "[NMT MC reset_app NODE: 0x15]", n.String())
	assert.Equal(t, SubFrameNMTMasterControl, n.Kind())
}

func TestDecodeNMTNodeGuard(t *testing.T) {
	var testCases = []struct {
		name         string
		when         [8]byte
		expect       NMTNodeGuard
		expectString string
	}{
		{
			name:         "ok, bootup",
			when:         [8]byte{0x00},
			expect:       NMTNodeGuard{State: NMTStateBootup},
			expectString: "[NMT NG bootup]",
		},
		{
			name:         "ok, operational heartbeat",
			when:         [8]byte{0x05},
			expect:       NMTNodeGuard{State: NMTStateOperational},
			expectString: "[NMT NG operational]",
		},
		{
			name:         "ok, pre-operational with toggle",
			when:         [8]byte{0xFF},
			expect:       NMTNodeGuard{State: NMTStatePreOperational, Toggle: true},
			expectString: "[NMT NG preoperational T:1]",
		},
		{
			name:         "ok, unknown state is kept",
			when:         [8]byte{0x10},
			expect:       NMTNodeGuard{State: NMTState(0x10)},
			expectString: "[NMT NG unknown]",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := DecodeNMTNodeGuard(tc.when)

			assert.Equal(t, tc.expect, result)
			assert.Equal(t, tc.expectString, result.String())
		})
	}
}

func TestNMTCommand_String(t *testing.T) {
	assert.Equal(t, "preop", NMTEnterPreOperational.String())
	assert.Equal(t, "0x33", NMTCommand(0x33).String())
}
