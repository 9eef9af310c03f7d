package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DFBlok/market-link-app/internal/services"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&services.Error{Kind: services.KindValidation, Message: "x"}, http.StatusBadRequest},
		{services.ErrEmailExists, http.StatusConflict},
		{&services.Error{Kind: services.KindInvalidStateTransition, Message: "x"}, http.StatusConflict},
		{&services.Error{Kind: services.KindNotFoundOrUnauthorized, Message: "x"}, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", &services.Error{Kind: services.KindNotFoundOrUnauthorized, Message: "x"}), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(services.KindOf(tt.err)), tt.err.Error())
	}
}
