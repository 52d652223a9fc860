// Package api implements the HTTP query surface over the usage engine.
//
// Every route is a read: handlers parse the query shape (scope, time filter,
// grouping, limits), delegate to usage.Service, and serialize the report.
// Query-shape mistakes return 400; source scan or directory failures never
// fail a response, they surface as per-source status flags inside it.
//
// The server applies request-id, logging, metrics, recovery, and timeout
// middleware to every route, and wraps the router in OpenTelemetry HTTP
// instrumentation.
package api
