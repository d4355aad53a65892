package diag

import "strings"

// Indent is the unit of indentation used by every readable rendering.
const Indent = "    "

// Violation is a single concrete validation problem. The message text is
// part of the compiler's user-visible contract: tests compare it verbatim.
type Violation struct {
	Message string `json:"message"`
}

// New builds a one-element violation list.
func New(message string) Violations {
	return Violations{{Message: message}}
}

// Violations is an ordered collection of problems. The zero value is valid
// and means "no problems". Values are treated as immutable: combinators
// return fresh slices instead of mutating their receiver.
type Violations []Violation

// Merge concatenates any number of violation lists, preserving order.
func Merge(lists ...Violations) Violations {
	var total int
	for _, l := range lists {
		total += len(l)
	}
	if total == 0 {
		return nil
	}
	out := make(Violations, 0, total)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Any reports whether at least one violation was collected.
func (v Violations) Any() bool {
	return len(v) > 0
}

// WithContext returns a copy of v with every message prefixed by the given
// context string and a space, e.g. "transforms block is invalid: <msg>".
func (v Violations) WithContext(context string) Violations {
	if len(v) == 0 {
		return nil
	}
	out := make(Violations, len(v))
	for i, violation := range v {
		out[i] = Violation{Message: context + " " + violation.Message}
	}
	return out
}

// Readable renders each violation on its own line at the given indent depth.
func (v Violations) Readable(indents int) string {
	var sb strings.Builder
	prefix := strings.Repeat(Indent, indents)
	for _, violation := range v {
		sb.WriteString(prefix)
		sb.WriteString(violation.Message)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Error implements the error interface, one message per line.
func (v Violations) Error() string {
	msgs := make([]string, len(v))
	for i, violation := range v {
		msgs[i] = violation.Message
	}
	return strings.Join(msgs, "\n")
}

// AsError returns v as an error, or nil when no violations were collected.
// Returning the concrete type directly would make a non-nil error out of an
// empty list.
func (v Violations) AsError() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Renderer is implemented by structured failures that know how to render
// themselves at a given indent depth.
type Renderer interface {
	Readable(indents int) string
}
