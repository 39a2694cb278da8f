// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrMalformedMessage indicates bytes that could not be decoded into a message.
var ErrMalformedMessage = errors.New("malformed message")

// ErrProtocolViolation indicates a decision outside Accepted/Rejected reached code that must act on it.
var ErrProtocolViolation = errors.New("protocol violation")

// ErrConnectionLost indicates the peer went away before an exchange completed.
var ErrConnectionLost = errors.New("connection lost")
