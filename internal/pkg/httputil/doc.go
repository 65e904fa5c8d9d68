// Package httputil provides the JSON response helpers and HTTP error values
// shared by the status endpoint.
//
// The error values double as the set of request errors that are never
// forwarded to the error monitor.
package httputil
