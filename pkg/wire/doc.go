// Package wire defines the CBOR encoding used for cluster traffic.
//
// Messages are encoded with canonical key ordering so that identical
// values always produce identical bytes. Structs use integer keys
// (`cbor:"N,keyasint"`) for compactness.
//
// # Raw payloads
//
// Values whose shape is only known to the receiver travel as
// cbor.RawMessage and are decoded in a second step with Unmarshal. Peek
// decodes a subset of keys without touching the rest of the message.
package wire
