// Package http implements the JSON API and dashboard of the ads hub.
//
// Handlers stay thin: they decode and validate the request, call a service
// and render the result. Successful responses share one envelope:
//
//	{"status": "success", "data": ..., "count": n}
//
// Failures are rendered by errors.ErrorHandler as RFC 7807 problem details.
package http
