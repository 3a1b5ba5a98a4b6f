// Package responses provides the JSON envelopes of the service endpoints.
// Errors are rendered separately as RFC 7807 problem documents.
package responses
