package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/tabledesk/tabledesk/internal/identity"
	"github.com/tabledesk/tabledesk/internal/server/dto"
	"github.com/tabledesk/tabledesk/internal/tables"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    dto.ErrorCode
		message string
	}{
		{"invalid_table", fmt.Errorf("%w: name is required", tables.ErrInvalidTable), http.StatusBadRequest, dto.ErrorCodeValidationFailed, "invalid table: name is required"},
		{"table_not_found", fmt.Errorf("%w: %q", tables.ErrTableNotFound, "x"), http.StatusNotFound, dto.ErrorCodeTableNotFound, `table not found: "x"`},
		{"expired", identity.ErrSessionExpired, http.StatusUnauthorized, dto.ErrorCodeAuthenticationRequired, unauthenticatedMessage},
		{"bad_password", identity.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeAuthenticationRequired, "invalid username or password"},
		{"store", errors.New("connection refused: postgres://app:pw@db"), http.StatusInternalServerError, dto.ErrorCodeInternal, internalMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := APIError(tt.err)
			if got.StatusCode() != tt.status || got.Code() != tt.code || got.Message() != tt.message {
				t.Errorf("APIError = %d %s %q, want %d %s %q", got.StatusCode(), got.Code(), got.Message(), tt.status, tt.code, tt.message)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("APIError does not wrap %v", tt.err)
			}
		})
	}
}
