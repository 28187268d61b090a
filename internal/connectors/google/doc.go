// Package google holds the plumbing shared by Google API connectors:
// service-account credentials, error mapping onto domain errors and a
// request limiter that backs off after HTTP 429.
package google
