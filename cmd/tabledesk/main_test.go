package main

import "testing"

func TestRedact(t *testing.T) {
	tests := []struct{ in, want string }{
		{"./data", "./data"},
		{"sqlite:///var/lib/tabledesk.db", "sqlite:///var/lib/tabledesk.db"},
		{"mongodb://localhost:27017", "mongodb://localhost:27017"},
		{"mongodb://app:s3cr@t@db:27017/x", "mongodb://app:xxx@db:27017/x"},
		{"postgres://app@db/tables", "postgres://app:xxx@db/tables"},
	}
	for _, tt := range tests {
		if got := redact(tt.in); got != tt.want {
			t.Errorf("redact(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
