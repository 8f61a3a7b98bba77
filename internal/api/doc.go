// Package api handles incoming HTTP requests, request validation and response
// formatting for the administrative surface: the root redirect, token issue,
// event publishing and inspection, and runner status.
package api
