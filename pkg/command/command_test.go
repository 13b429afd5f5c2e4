package command

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		transcript string
		want       Command
		wantErr    bool
	}{
		{"start", Start, false},
		{"Start navigation", Start, false},
		{"please START!", Start, false},
		{"stop", Stop, false},
		{"end", Stop, false},
		{"pause for a second", Stop, false},
		{"describe the room", Describe, false},
		{"help", Help, false},
		{"can you help me", Help, false},
		{"start or stop", Start, false},
		{"stop and describe", Stop, false},
		{"my friend is here", None, true},
		{"restart", None, true},
		{"", None, true},
		{"   ", None, true},
	}

	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			got, err := Parse(tt.transcript)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnrecognized)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAlternatives(t *testing.T) {
	cmd, err := ParseAlternatives([]string{"hey there", "what's a friend", "describe it"})
	require.NoError(t, err)
	assert.Equal(t, Describe, cmd)

	_, err = ParseAlternatives(nil)
	assert.ErrorIs(t, err, ErrUnrecognized)
}

func TestCommandText(t *testing.T) {
	assert.Equal(t, "start", Start.String())
	assert.Equal(t, "help", Help.String())
	assert.Equal(t, "command(42)", Command(42).String())

	b, err := json.Marshal(map[string]Command{"command": Describe})
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"describe"}`, string(b))

	var req struct {
		Command Command `json:"command"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"command":"pause"}`), &req))
	assert.Equal(t, Stop, req.Command)

	assert.Error(t, json.Unmarshal([]byte(`{"command":"dance"}`), &req))
}

func TestQueue(t *testing.T) {
	q := NewQueue(2, nil)

	cmd, err := q.Submit("start")
	require.NoError(t, err)
	assert.Equal(t, Start, cmd)

	require.NoError(t, q.Send(Help))
	assert.ErrorIs(t, q.Send(Stop), ErrQueueFull)
	assert.Equal(t, int64(1), q.Dropped())

	assert.Equal(t, Start, <-q.C())
	assert.Equal(t, Help, <-q.C())

	_, err = q.Submit("hello")
	assert.ErrorIs(t, err, ErrUnrecognized)
	assert.ErrorIs(t, q.Send(None), ErrUnrecognized)
	assert.Empty(t, q.C())
}

func TestNewQueueDefaultSize(t *testing.T) {
	q := NewQueue(0, nil)
	assert.Equal(t, DefaultQueueSize, cap(q.ch))
}
