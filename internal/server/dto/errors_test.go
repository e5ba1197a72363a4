package dto

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAPIError(t *testing.T) {
	t.Run("wrap", func(t *testing.T) {
		cause := errors.New("disk full")
		err := InternalWithError("Internal server error", cause)
		if err.StatusCode() != http.StatusInternalServerError || err.Code() != ErrorCodeInternal {
			t.Errorf("got %d %s", err.StatusCode(), err.Code())
		}
		if err.Message() != "Internal server error" {
			t.Errorf("Message() = %q", err.Message())
		}
		if err.Error() != "Internal server error: disk full" {
			t.Errorf("Error() = %q", err.Error())
		}
		if !errors.Is(err, cause) {
			t.Error("errors.Is did not find the cause")
		}
	})
	t.Run("details", func(t *testing.T) {
		err := MissingField("tableName").WithDetails(map[string]any{"hint": "x"})
		want := map[string]any{"field": "tableName", "hint": "x"}
		if diff := cmp.Diff(want, err.Details()); diff != "" {
			t.Errorf("details (-want +got):\n%s", diff)
		}
		var ews ErrorWithStatus
		if !errors.As(error(err), &ews) || ews.StatusCode() != http.StatusBadRequest {
			t.Error("MissingField is not an ErrorWithStatus 400")
		}
	})
	t.Run("constructors", func(t *testing.T) {
		tests := []struct {
			err    *APIError
			status int
			code   ErrorCode
		}{
			{NotFound("route"), 404, ErrorCodeNotFound},
			{BadRequest("x"), 400, ErrorCodeValidationFailed},
			{InvalidField("mode", "bad"), 400, ErrorCodeValidationFailed},
			{ParseError("x"), 422, ErrorCodeParseError},
			{Conflict("x"), 409, ErrorCodeConflict},
			{Unauthorized("x"), 401, ErrorCodeAuthenticationRequired},
			{Forbidden("x"), 403, ErrorCodeAuthorizationDenied},
			{PayloadTooLarge(10), 413, ErrorCodePayloadTooLarge},
			{RateLimitExceeded(3), 429, ErrorCodeRateLimitExceeded},
			{Internal("x"), 500, ErrorCodeInternal},
		}
		for _, tt := range tests {
			if tt.err.StatusCode() != tt.status || tt.err.Code() != tt.code {
				t.Errorf("%q: got %d %s, want %d %s", tt.err.Message(), tt.err.StatusCode(), tt.err.Code(), tt.status, tt.code)
			}
		}
	})
}

func TestRow_UnmarshalJSON(t *testing.T) {
	var r Row
	if err := json.Unmarshal([]byte(`["ئاراس","یەکەم"]`), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r != (Row{"ئاراس", "یەکەم"}) {
		t.Errorf("Row = %q", r)
	}
	for _, in := range []string{`["a"]`, `["a","b","c"]`, `["a",1]`, `{"name":"a"}`, `"a"`} {
		if err := json.Unmarshal([]byte(in), &r); err == nil {
			t.Errorf("Unmarshal(%s) succeeded", in)
		}
	}
}

func TestMoveRowRequest_Validate(t *testing.T) {
	zero, neg := 0, -1
	row := &Row{"a", "b"}
	tests := []struct {
		name string
		req  MoveRowRequest
		ok   bool
	}{
		{"by_value", MoveRowRequest{SourceTable: "a", TargetTable: "b", Row: row}, true},
		{"by_value_no_row", MoveRowRequest{SourceTable: "a", TargetTable: "b"}, false},
		{"by_position", MoveRowRequest{From: &RowRef{"a", &zero}, To: &RowRef{"b", &zero}}, true},
		{"position_missing_to", MoveRowRequest{From: &RowRef{"a", &zero}}, false},
		{"position_negative", MoveRowRequest{From: &RowRef{"a", &neg}, To: &RowRef{"b", &zero}}, false},
		{"position_no_index", MoveRowRequest{From: &RowRef{"a", nil}, To: &RowRef{"b", &zero}}, false},
		{"mixed", MoveRowRequest{SourceTable: "a", From: &RowRef{"a", &zero}, To: &RowRef{"b", &zero}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestBatchRequest_Validate(t *testing.T) {
	tests := []struct {
		req BatchRequest
		ok  bool
	}{
		{BatchRequest{Action: BatchDelete, TableName: "a", Indices: []int{0}}, true},
		{BatchRequest{Action: BatchMove, TableName: "a", TargetTable: "b", Indices: []int{0}}, true},
		{BatchRequest{Action: BatchMove, TableName: "a", Indices: []int{0}}, false},
		{BatchRequest{Action: "copy", TableName: "a", Indices: []int{0}}, false},
		{BatchRequest{TableName: "a", Indices: []int{0}}, false},
		{BatchRequest{Action: BatchDelete, TableName: "a"}, false},
	}
	for i, tt := range tests {
		if err := tt.req.Validate(); (err == nil) != tt.ok {
			t.Errorf("%d: Validate() = %v, want ok=%v", i, err, tt.ok)
		}
	}
}
