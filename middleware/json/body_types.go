package json

// M is shorthand for a map[string]any. It is provided as a convenience for
// defining JSON objects in a more concise manner.
type M map[string]any

// Error represents a JSON wrapped error. Sending an Error with
// Socket.SendValue produces {"error": "your error message"}.
type Error string

// A FieldError can be sent to indicate that a message failed validation. A
// slice of FieldErrors can also be sent to report multiple validation errors.
// Either produces an object like { "error": "Validation error", "fields":
// [ { "field1": "error message" }, { "field2": "error message" } ] }.
type FieldError struct {
	Field string
	Error string
}
