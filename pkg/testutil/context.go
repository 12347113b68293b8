package testutil

import (
	"net/http"

	id "custodia/pkg/domain"
	"custodia/pkg/requestcontext"
)

// WithUserID adds an authenticated caller id to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the userID is not a valid UUID, it will not be added to the context.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsedUserID, err := id.ParseUserID(userID); err == nil {
		ctx := requestcontext.WithUserID(req.Context(), parsedUserID)
		return req.WithContext(ctx)
	}
	return req
}

// WithClientMetadata adds client IP, raw User-Agent, and the derived client
// description to the request context, as the client-info middleware would.
func WithClientMetadata(req *http.Request, clientIP, userAgent, clientName string) *http.Request {
	ctx := requestcontext.WithClientMetadata(req.Context(), clientIP, userAgent, clientName)
	return req.WithContext(ctx)
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	return req.WithContext(ctx)
}
