package dawerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"typed error", New(KindTimeout, "deadline"), KindTimeout},
		{"wrapped typed error", fmt.Errorf("outer: %w", New(KindBridgeBusy, "busy")), KindBridgeBusy},
		{"plain error", errors.New("boom"), KindInternal},
		{"nil-ish plain", fmt.Errorf("x"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("socket reset")
	err := Wrap(KindDisconnected, cause, "sending %q", "set_tempo")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindDisconnected, KindOf(err))
	assert.Contains(t, err.Error(), "set_tempo")
}

func TestDetails(t *testing.T) {
	err := New(KindProtocol, "reassembly failed").
		WithDetails(map[string]any{"missing": []int{2, 5}})

	assert.Equal(t, []int{2, 5}, DetailsOf(err)["missing"])
	assert.Nil(t, DetailsOf(errors.New("plain")))
}

func TestIs(t *testing.T) {
	assert.True(t, Is(New(KindNotReady, "cold"), KindNotReady))
	assert.False(t, Is(New(KindNotReady, "cold"), KindTimeout))
	assert.False(t, Is(nil, KindNotReady))
}
