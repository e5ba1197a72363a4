// Provides middleware for standardizing HTTP handlers.

package server

import (
	"bytes"
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/tabledesk/tabledesk/internal/identity"
	"github.com/tabledesk/tabledesk/internal/server/dto"
	"github.com/tabledesk/tabledesk/internal/server/handlers"
	"github.com/tabledesk/tabledesk/internal/server/ratelimit"
	"github.com/tabledesk/tabledesk/internal/server/reqctx"
)

var (
	errNoAuthHeader     = errors.New("missing authorization header")
	errInvalidAuthHdr   = errors.New("invalid authorization header")
	errInsufficientRole = errors.New("insufficient permissions")
)

// addRequestMetadataToContext adds client IP and User-Agent to the context.
func addRequestMetadataToContext(ctx context.Context, r *http.Request) context.Context {
	ctx = reqctx.WithClientIP(ctx, reqctx.GetClientIP(r))
	ctx = reqctx.WithUserAgent(ctx, r.Header.Get("User-Agent"))
	return ctx
}

// checkRateLimit checks rate limit and wraps the response writer if needed.
// Returns the (possibly wrapped) writer and whether the request should proceed.
func checkRateLimit(ctx context.Context, w http.ResponseWriter, tier *ratelimit.Tier, identifier string) (http.ResponseWriter, bool) {
	if tier == nil {
		return w, true
	}
	result := tier.Limiter.Allow(ratelimit.BuildKey(tier.Scope, identifier, tier.Name))
	w = ratelimit.NewResponseWriter(w, result)
	if !result.Allowed {
		writeError(ctx, w, dto.RateLimitExceeded(int(result.RetryAfter.Seconds())))
		return w, false
	}
	return w, true
}

// rateLimitIdentifier returns the key for the tier's scope.
func rateLimitIdentifier(ctx context.Context, tier *ratelimit.Tier, s *identity.Session) string {
	if tier != nil && tier.Scope == ratelimit.ScopeUser && s != nil {
		return s.User.Username
	}
	return reqctx.ClientIP(ctx)
}

// authenticate validates the bearer token and checks the session's role.
// On failure it writes a 401 or 403 response and returns nil.
func authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request, sessions *identity.SessionService, role identity.Role) *identity.Session {
	s, err := validateBearer(ctx, r, sessions)
	switch {
	case errors.Is(err, errNoAuthHeader), errors.Is(err, errInvalidAuthHdr):
		writeError(ctx, w, dto.Unauthorized(err.Error()))
		return nil
	case err != nil:
		// Store failures are a 500, not a 401.
		writeError(ctx, w, handlers.APIError(err))
		return nil
	}
	if !s.User.Role.Allows(role) {
		writeError(ctx, w, dto.Forbidden(errInsufficientRole.Error()).WithDetail("required", string(role)))
		return nil
	}
	return s
}

// validateBearer extracts the token from the Authorization header and
// validates it against the stored session.
func validateBearer(ctx context.Context, r *http.Request, sessions *identity.SessionService) (*identity.Session, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errNoAuthHeader
	}
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return nil, errInvalidAuthHdr
	}
	return sessions.Validate(ctx, token)
}

// readAndDecodeBody reads the request body with size limit and decodes JSON into input.
// Returns false if an error occurred and was written to the response.
func readAndDecodeBody[In any](ctx context.Context, w http.ResponseWriter, r *http.Request, input *In, cfg *handlers.Config) bool {
	if cfg != nil && cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxBodyBytes)
	}

	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(ctx, w, dto.PayloadTooLarge(mbe.Limit))
			return false
		}
		writeError(ctx, w, dto.BadRequest("failed to read request body").Wrap(err))
		return false
	}

	if len(bytes.TrimSpace(body)) > 0 {
		d := json.NewDecoder(bytes.NewReader(body))
		d.DisallowUnknownFields()
		if err := d.Decode(input); err != nil {
			var ews dto.ErrorWithStatus
			if errors.As(err, &ews) {
				writeError(ctx, w, ews)
				return false
			}
			writeError(ctx, w, dto.BadRequest("invalid request body: "+err.Error()).Wrap(err))
			return false
		}
	}
	return true
}

// decodeAndValidate fills input from the body, path and query, then validates it.
func decodeAndValidate[In any, PtrIn interface {
	*In
	dto.Validatable
}](ctx context.Context, w http.ResponseWriter, r *http.Request, cfg *handlers.Config) (PtrIn, bool) {
	input := new(In)
	if !readAndDecodeBody(ctx, w, r, input, cfg) {
		return nil, false
	}
	populatePathParams(r, input)
	populateQueryParams(r, input)
	if err := PtrIn(input).Validate(); err != nil {
		var ews dto.ErrorWithStatus
		if !errors.As(err, &ews) {
			ews = dto.BadRequest(err.Error())
		}
		writeError(ctx, w, ews)
		return nil, false
	}
	return PtrIn(input), true
}

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, *In) (*Out, error)
// where In can be unmarshalled from JSON and Out is a struct.
// Path and query parameters are copied into fields tagged `path:"name"` and
// `query:"name"`. *In must implement dto.Validatable.
//
// Example:
//
//	type ListValuesRequest struct {
//	    Field string `query:"field"`
//	}
//
//	func (h *Handler) Values(ctx context.Context, req *ListValuesRequest) (*Response, error)
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), cfg *handlers.Config, limiters *ratelimit.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := addRequestMetadataToContext(r.Context(), r)

		if tier := limiters.MatchUnauth(r.Method, r.URL.Path); tier != nil {
			var ok bool
			if w, ok = checkRateLimit(ctx, w, tier, reqctx.ClientIP(ctx)); !ok {
				return
			}
		}

		input, ok := decodeAndValidate[In, PtrIn](ctx, w, r, cfg)
		if !ok {
			return
		}
		output, err := fn(ctx, input)
		writeJSONResponse(ctx, w, output, err)
	})
}

// WrapAuth wraps an authenticated handler function to work as an http.Handler.
// The token is validated and the role checked before the body is read.
// The function must have signature: func(context.Context, *identity.Session, *In) (*Out, error)
// *In must implement dto.Validatable.
func WrapAuth[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](
	fn func(context.Context, *identity.Session, PtrIn) (*Out, error),
	role identity.Role,
	svc *handlers.Services,
	cfg *handlers.Config,
	limiters *ratelimit.Config,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := addRequestMetadataToContext(r.Context(), r)

		s := authenticate(ctx, w, r, svc.Sessions, role)
		if s == nil {
			return
		}
		ctx = reqctx.WithSession(ctx, s)

		if tier := limiters.MatchAuth(r.Method, r.URL.Path); tier != nil {
			var ok bool
			if w, ok = checkRateLimit(ctx, w, tier, rateLimitIdentifier(ctx, tier, s)); !ok {
				return
			}
		}

		input, ok := decodeAndValidate[In, PtrIn](ctx, w, r, cfg)
		if !ok {
			return
		}
		output, err := fn(ctx, s, input)
		writeJSONResponse(ctx, w, output, err)
	})
}

// WrapAuthRaw wraps a raw http.HandlerFunc with authentication and role checking.
// Use this for handlers that need to handle requests directly (multipart
// uploads, file downloads). The session is available through reqctx.Session.
func WrapAuthRaw(
	fn http.HandlerFunc,
	role identity.Role,
	svc *handlers.Services,
	cfg *handlers.Config,
	limiters *ratelimit.Config,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := addRequestMetadataToContext(r.Context(), r)

		s := authenticate(ctx, w, r, svc.Sessions, role)
		if s == nil {
			return
		}
		ctx = reqctx.WithSession(ctx, s)

		if tier := limiters.MatchAuth(r.Method, r.URL.Path); tier != nil {
			var ok bool
			if w, ok = checkRateLimit(ctx, w, tier, rateLimitIdentifier(ctx, tier, s)); !ok {
				return
			}
		}

		if cfg != nil && cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		}
		fn(w, r.WithContext(ctx))
	})
}

// populatePathParams extracts path parameters from the request and populates
// struct fields tagged with `path:"paramName"`.
func populatePathParams(r *http.Request, input any) {
	populateTagged(input, "path", r.PathValue)
}

// populateQueryParams extracts query parameters from the request and populates
// struct fields tagged with `query:"paramName"`. Query values only fill
// fields the body left empty.
func populateQueryParams(r *http.Request, input any) {
	query := r.URL.Query()
	populateTagged(input, "query", query.Get)
}

func populateTagged(input any, tagName string, get func(string) string) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return
	}

	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get(tagName)
		if tag == "" {
			continue
		}
		paramValue := get(tag)
		fieldVal := elem.Field(i)
		if paramValue == "" || !fieldVal.IsZero() {
			continue
		}
		switch field.Type.Kind() {
		case reflect.String:
			fieldVal.SetString(paramValue)
		case reflect.Int:
			if intVal, err := strconv.Atoi(paramValue); err == nil {
				fieldVal.SetInt(int64(intVal))
			}
		case reflect.Bool:
			if b, err := strconv.ParseBool(paramValue); err == nil {
				fieldVal.SetBool(b)
			}
		default:
			if fieldVal.CanAddr() {
				if u, ok := fieldVal.Addr().Interface().(encoding.TextUnmarshaler); ok {
					_ = u.UnmarshalText([]byte(paramValue))
				}
			}
		}
	}
}

// writeJSONResponse writes a JSON response or error response.
func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, output *Out, err error) {
	if err != nil {
		writeError(ctx, w, handlers.APIError(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(output); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// writeError logs err and writes it as a JSON error response. Server errors
// are logged at error level with the wrapped cause; the caller only sees the
// message.
func writeError(ctx context.Context, w http.ResponseWriter, err dto.ErrorWithStatus) {
	level := slog.LevelInfo
	if err.StatusCode() >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(ctx, level, "Handler error", "err", err, "statusCode", err.StatusCode(), "code", err.Code())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode())
	response := dto.ErrorResponse{Error: err.Message(), Code: err.Code(), Details: err.Details()}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.ErrorContext(ctx, "Failed to encode error response", "err", err)
	}
}
