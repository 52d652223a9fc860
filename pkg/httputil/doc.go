// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON responses, query parameter
// parsing, and the middleware stack the API server runs every request
// through.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, report)
//
// Error responses:
//
//	httputil.WriteError(w, http.StatusBadRequest, err)
//	httputil.WriteBadRequest(w, "invalid month token")
//	httputil.WriteNotFoundError(w, "unknown source")
//
// # Request Parsing
//
// Query parameters:
//
//	limit, err := httputil.ParseQueryInt(r, "limit", 20)
//	source := httputil.ParseQueryString(r, "source", "")
//	altOnly, err := httputil.ParseQueryBool(r, "alt", false)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.MetricsMiddleware(metrics),
//		httputil.RecoveryMiddleware(logger),
//		httputil.TimeoutMiddleware(60*time.Second),
//	)
package httputil
