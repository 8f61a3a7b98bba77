// Package store defines the database access abstraction and the error values
// shared by the storage implementations in internal/platform.
package store
