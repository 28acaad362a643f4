// Package codec is the serialization capability: every structured value that
// crosses the wire is encoded here with msgpack.
package codec
