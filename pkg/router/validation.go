package router

import (
	"fmt"
	"strings"
)

// ValidationReason names the request precondition that failed.
type ValidationReason int

const (
	// ReasonModelNotAllowed: an explicitly requested model is in no
	// family's allow-list.
	ReasonModelNotAllowed ValidationReason = iota
	// ReasonModelUnrouted: a stored conversation's model matches no
	// configured family, so the message cannot be dispatched.
	ReasonModelUnrouted
	// ReasonEmptyPrompt: image generation was asked with no prompt.
	ReasonEmptyPrompt
	// ReasonImageModelUnknown: the requested image model is served by no
	// family.
	ReasonImageModelUnknown
)

// ValidationError is a user-correctable request failure; the front-end
// renders Message() verbatim.
type ValidationError struct {
	Reason  ValidationReason
	Model   string
	Allowed []string
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonModelNotAllowed:
		return fmt.Sprintf("model %q is not in the allow-list", e.Model)
	case ReasonModelUnrouted:
		return fmt.Sprintf("stored model %q matches no provider family", e.Model)
	case ReasonEmptyPrompt:
		return "image prompt is empty"
	case ReasonImageModelUnknown:
		return fmt.Sprintf("image model %q is not supported", e.Model)
	default:
		return "invalid request"
	}
}

// Message is the user-facing rendition of the failure.
func (e *ValidationError) Message() string {
	switch e.Reason {
	case ReasonModelNotAllowed, ReasonModelUnrouted:
		return "Available models: " + strings.Join(e.Allowed, ", ")
	case ReasonEmptyPrompt:
		return "The prompt cannot be empty"
	case ReasonImageModelUnknown:
		return "The selected image generation model is not supported"
	default:
		return "Invalid request"
	}
}
