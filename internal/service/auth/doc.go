// Package auth issues and validates the bearer tokens that guard the
// administrative API, and verifies the admin password against its bcrypt hash.
package auth
