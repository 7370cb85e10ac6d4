package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseSignal(t *testing.T) {
	tests := []struct {
		payload string
		id      string
		status  bool
		ok      bool
	}{
		{"op-1:on", "op-1", true, true},
		{"op-1:OFF", "op-1", false, true},
		{"op-1:true", "op-1", true, true},
		{"node:eu:1:false", "node:eu:1", false, true},
		{":on", "", true, true},
		{"op-1", "", false, false},
		{"op-1:maybe", "", false, false},
		{"", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			id, status, ok := ParseSignal(tt.payload)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestFormatSignal_RoundTrip(t *testing.T) {
	for _, status := range []bool{true, false} {
		id, got, ok := ParseSignal(FormatSignal("ops:lead", status))
		assert.True(t, ok)
		assert.Equal(t, "ops:lead", id)
		assert.Equal(t, status, got)
	}
}

func TestParseStopSignal(t *testing.T) {
	tests := []struct {
		payload string
		want    StopSignal
		ok      bool
	}{
		{"node-1:7:op-1:on", StopSignal{Origin: "node-1", Seq: 7, Active: true, OperatorID: "op-1"}, true},
		{"node-1:8:ops:lead:off", StopSignal{Origin: "node-1", Seq: 8, OperatorID: "ops:lead"}, true},
		{"op-1:on", StopSignal{Active: true, OperatorID: "op-1"}, true},
		{"ops:lead:off", StopSignal{OperatorID: "ops:lead"}, true},
		{"node-1:0:op-1:on", StopSignal{Active: true, OperatorID: "node-1:0:op-1"}, true},
		{":3:op-1:on", StopSignal{Active: true, OperatorID: ":3:op-1"}, true},
		{"node-1:7:op-1", StopSignal{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got, ok := ParseStopSignal(tt.payload)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatStopSignal_RoundTrip(t *testing.T) {
	for _, sig := range []StopSignal{
		{Origin: "6f1c", Seq: 42, Active: true, OperatorID: "ops:lead"},
		{Active: false, OperatorID: "op-1"},
	} {
		got, ok := ParseStopSignal(FormatStopSignal(sig))
		assert.True(t, ok)
		assert.Equal(t, sig, got)
	}
}

func TestSleepCtx(t *testing.T) {
	assert.True(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepCtx(ctx, time.Hour))
}
