// Package postgres provides the PostgreSQL implementation of the event journal
// defined in the internal/events package, together with the connection setup
// and embedded schema migrations it depends on.
package postgres
