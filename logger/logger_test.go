package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Level
		wantErr bool
	}{
		{name: "debug", input: "debug", want: DebugLevel},
		{name: "empty defaults to info", input: "", want: InfoLevel},
		{name: "upper case warn", input: "WARN", want: WarnLevel},
		{name: "warning alias", input: "warning", want: WarnLevel},
		{name: "error", input: " error ", want: ErrorLevel},
		{name: "fatal", input: "fatal", want: FatalLevel},
		{name: "unknown", input: "verbose", want: InfoLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlogLogger_JSONOutput(t *testing.T) {
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	l := NewSlogWriter(&buf, InfoLevel, false)

	l.Debug("protocol: hidden")
	assert.Zero(t, buf.Len())

	l.With("port", "/dev/ttyUSB0").Info("transport: opened", "baud", 1000000)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "transport: opened", rec["msg"])
	assert.Equal(t, "/dev/ttyUSB0", rec["port"])
	assert.InDelta(t, 1000000, rec["baud"], 0)
	assert.Contains(t, rec, "ts")
}

func TestSlogLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogWriter(&buf, ErrorLevel, false)
	child := l.With("id", 1)

	assert.Equal(t, ErrorLevel, l.Level())

	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, child.Level())

	child.Debug("servo: poll")
	assert.NotZero(t, buf.Len())
}

func TestSetLogger(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)

	m := NewMockLogger()
	m.On("Warn", "group: empty session", mock.Anything).Once()

	SetLogger(m)
	SetLogger(nil)
	Warn("group: empty session")

	m.AssertExpectations(t)
}
