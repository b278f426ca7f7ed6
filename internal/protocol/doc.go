// Package protocol owns the host<->peer USB file-delivery wire contract.
//
// Ownership boundary:
// - protocol constants (magic, version)
// - error taxonomy shared by frame and session
// - session state names
//
// Sub-packages:
// - frame: fixed-size record encode/decode
// - session: handshake, catalog announcement and range-serving state machine
package protocol
