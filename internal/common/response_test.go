package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFromError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrForbidden, http.StatusForbidden},
		{ErrNotSender, http.StatusForbidden},
		{ErrNotMember, http.StatusForbidden},
		{ErrBlocked, http.StatusForbidden},
		{ErrNotFound, http.StatusNotFound},
		{ErrConversationNotFound, http.StatusNotFound},
		{ErrMessageNotFound, http.StatusNotFound},
		{ErrUserNotFound, http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{ErrGroupFull, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrExpiredToken, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFromError(tc.err), tc.err.Error())
	}

	// wrapped errors keep their mapping
	wrapped := fmt.Errorf("send failed: %w", ErrBlocked)
	assert.Equal(t, http.StatusForbidden, StatusFromError(wrapped))
}

func TestClientMessage(t *testing.T) {
	// taxonomy errors pass through verbatim
	assert.Equal(t, ErrNotMember.Error(), ClientMessage(ErrNotMember))
	assert.Equal(t, ErrGroupFull.Error(), ClientMessage(ErrGroupFull))

	// anything else collapses to a generic retry hint
	assert.Equal(t, "temporary failure, please retry", ClientMessage(errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")))
}
