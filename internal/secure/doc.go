// Package secure wraps a framed connection with per-peer sealed boxes.
//
// A Channel owns one stream connection. After ExchangeKeys it knows the
// peer's public key; Send seals to that key and ReceiveMessage opens frames
// with the local private key. Open is a mandatory gate: a frame that fails
// authentication is reported as ErrInvalidFrame and never deserialized.
package secure
