// Package client is the HTTP client the shiptrack CLI uses to talk to a
// running server. Error responses are decoded into *APIError, which unwraps
// to the matching services sentinel so callers can classify failures with
// errors.Is exactly as they would in-process.
package client
