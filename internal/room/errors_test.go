// internal/room/errors_test.go
package room

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jason-s-yu/loteria/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, ""},
		{ErrRoomNotFound, KindRoomNotFound},
		{fmt.Errorf("join: %w", ErrRoomFull), KindRoomFull},
		{translate(fmt.Errorf("room x: %w", store.ErrNotFound)), KindRoomNotFound},
		{fmt.Errorf("claim: %w", ErrInvalidClaim), KindInvalidClaim},
		{fmt.Errorf("draw: %w: %w", ErrStoreUnavailable, store.ErrConflict), KindStoreUnavailable},
		{context.DeadlineExceeded, KindCanceled},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Room is full (max 8 players).", Message(KindRoomFull))
	assert.Equal(t, Message(KindInternal), Message(Kind("Bogus")))
}

func TestPermanent(t *testing.T) {
	assert.True(t, permanent(nil))
	assert.True(t, permanent(errNoChange))
	assert.True(t, permanent(ErrNotHost))
	assert.True(t, permanent(fmt.Errorf("x: %w", store.ErrCodeTaken)))
	assert.False(t, permanent(store.ErrConflict))
	assert.False(t, permanent(errors.New("connection refused")))
}

func TestErrorFor(t *testing.T) {
	assert.ErrorIs(t, ErrorFor(KindRoomFull), ErrRoomFull)
	assert.ErrorIs(t, ErrorFor(KindNotHost), ErrNotHost)
	assert.Equal(t, KindPlayerNotFound, KindOf(ErrorFor(KindPlayerNotFound)))
	assert.Nil(t, ErrorFor(KindInternal))
	assert.Nil(t, ErrorFor(Kind("Bogus")))
}
