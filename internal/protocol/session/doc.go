// Package session owns the host side of one peer session.
//
// Ownership boundary:
// - handshake validation and reply
// - per-entry file descriptor announcement
// - range-serving loop with sequential read-ahead
// - progress snapshots for observers
//
// The session is single-threaded: every transport call blocks until the
// peer acts, one request is outstanding at a time, and files are served
// strictly in catalog order.
package session
