package providers

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind discriminates provider failure modes; the router maps each to a
// user-facing message without retrying any of them.
type ErrorKind int

const (
	// KindTransport covers network, timeout, and upstream API errors.
	KindTransport ErrorKind = iota
	// KindMalformedReply covers empty or unparseable provider responses.
	KindMalformedReply
	// KindUnsupportedModality is reported when the selected model cannot
	// accept the requested content, e.g. an image on a text-only model.
	KindUnsupportedModality
)

// Error is a failure from one provider family.
type Error struct {
	Family string
	Kind   ErrorKind
	Model  string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnsupportedModality:
		return fmt.Sprintf("%s: model %s does not support this content type", e.Family, e.Model)
	case KindMalformedReply:
		return fmt.Sprintf("%s: model %s returned no usable reply", e.Family, e.Model)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Family, e.Model, e.Err)
		}
		return fmt.Sprintf("%s: %s: provider call failed", e.Family, e.Model)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func transportErr(family, model string, err error) error {
	return &Error{Family: family, Kind: KindTransport, Model: model, Err: err}
}

func malformedErr(family, model string) error {
	return &Error{Family: family, Kind: KindMalformedReply, Model: model}
}

func modalityErr(family, model string) error {
	return &Error{Family: family, Kind: KindUnsupportedModality, Model: model}
}

// IsUnsupportedModality reports whether err is a modality rejection, which
// the front-end surfaces as a plain notice instead of an error reply.
func IsUnsupportedModality(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == KindUnsupportedModality
}
