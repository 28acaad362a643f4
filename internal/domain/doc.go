// Package domain defines the wire messages, persisted records and storage
// contracts shared across hostlink. It contains plain types and interfaces
// only.
package domain
