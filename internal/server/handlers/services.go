// Defines shared service dependencies for handlers.

package handlers

import (
	"context"

	"github.com/tabledesk/tabledesk/internal/identity"
	"github.com/tabledesk/tabledesk/internal/importer"
	"github.com/tabledesk/tabledesk/internal/tables"
	"github.com/tabledesk/tabledesk/internal/view"
)

// Services holds all service dependencies for handlers.
type Services struct {
	Tables   *tables.Store
	Importer *importer.Pipeline
	View     *view.Engine
	Users    *identity.UserService
	Sessions *identity.SessionService
	// Ping reports whether the document store is reachable. May be nil.
	Ping func(ctx context.Context) error
}

// Config holds configuration values needed by handlers.
type Config struct {
	Version        string
	MaxBodyBytes   int64
	MaxUploadBytes int64
}
