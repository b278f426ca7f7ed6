package protocol

import "errors"

var (
	ErrProtocolMismatch = errors.New("protocol: magic or version mismatch")
	ErrMalformedMessage = errors.New("protocol: malformed message")
	ErrShortRead        = errors.New("protocol: short read from file source")
	ErrShortWrite       = errors.New("protocol: short write to transport")
	ErrTransport        = errors.New("protocol: transport failure")
	ErrSource           = errors.New("protocol: file source failure")
)
