// Package lumaerr implements the gateway's error taxonomy: Io,
// Protocol, Auth, Translator, TypeConversion, Internal. Every layer that
// needs to decide "does this close the connection" or "how do I encode
// this as a wire error" switches on Kind rather than on error strings.
package lumaerr

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindIo Kind = iota
	KindProtocol
	KindAuth
	KindTranslator
	KindTypeConversion
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindIo:
		return "Io"
	case KindProtocol:
		return "Protocol"
	case KindAuth:
		return "Auth"
	case KindTranslator:
		return "Translator"
	case KindTypeConversion:
		return "TypeConversion"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the taxonomy's concrete type: a Kind plus a message and an
// optional wrapped cause, so callers can still errors.Is/As through it.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

func Io(msg string, cause error) *Error             { return Wrap(KindIo, msg, cause) }
func Protocol(msg string) *Error                    { return New(KindProtocol, msg) }
func Auth(msg string) *Error                        { return New(KindAuth, msg) }
func Translator(msg string) *Error                  { return New(KindTranslator, msg) }
func TypeConversion(msg string) *Error               { return New(KindTypeConversion, msg) }
func Internal(msg string) *Error                    { return New(KindInternal, msg) }

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Error; otherwise it reports KindInternal, the taxonomy's catch-all for
// "invariant violation or unreachable"
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ClosesConnection reports whether an error of this kind terminates the
// connection unconditionally, independent of any protocol-specific rule
// (Io always does; protocol layers apply their own rule
// on top of KindProtocol/KindAuth).
func (k Kind) ClosesConnection() bool {
	return k == KindIo
}
