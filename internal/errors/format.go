package errors

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// FormatForCLI renders err for a terminal: the message, the details in key
// order, the suggestion and the code. The cause is shown when the message
// does not already include it.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}
	be := asBridge(err)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", be.Message)
	for _, k := range slices.Sorted(maps.Keys(be.Details)) {
		fmt.Fprintf(&sb, "  %s: %s\n", k, be.Details[k])
	}
	if be.Cause != nil && !strings.Contains(be.Message, be.Cause.Error()) {
		fmt.Fprintf(&sb, "  Cause: %s\n", be.Cause)
	}
	if be.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", be.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", be.Code)
	return sb.String()
}

type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   Category          `json:"category"`
	Severity   Severity          `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON encodes err as a JSON object. Errors that are not BridgeErrors
// are reported as ERR_501_INTERNAL.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}
	be := asBridge(err)
	je := jsonError{
		Code:       be.Code,
		Message:    be.Message,
		Category:   be.Category,
		Severity:   be.Severity,
		Details:    be.Details,
		Suggestion: be.Suggestion,
		Retryable:  be.Retryable,
	}
	if be.Cause != nil {
		je.Cause = be.Cause.Error()
	}
	return json.Marshal(je)
}

// LogAttr returns err as an "error" attribute. BridgeErrors become a group
// carrying the code and the details, so log queries can filter on them.
func LogAttr(err error) slog.Attr {
	be, ok := As(err)
	if !ok {
		return slog.String("error", err.Error())
	}
	attrs := []any{
		slog.String("code", be.Code),
		slog.String("message", be.Message),
	}
	if be.Retryable {
		attrs = append(attrs, slog.Bool("retryable", true))
	}
	for _, k := range slices.Sorted(maps.Keys(be.Details)) {
		attrs = append(attrs, slog.String(k, be.Details[k]))
	}
	if be.Cause != nil {
		attrs = append(attrs, slog.String("cause", be.Cause.Error()))
	}
	return slog.Group("error", attrs...)
}

func asBridge(err error) *BridgeError {
	if be, ok := As(err); ok {
		return be
	}
	return Wrap(ErrCodeInternal, err)
}
