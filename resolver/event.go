package resolver

import "encoding/json"

// Event is a direct Lambda resolver invocation from the GraphQL API.
type Event struct {
	Info      Info            `json:"info"`
	Arguments json.RawMessage `json:"arguments"`
	Identity  *Identity       `json:"identity,omitempty"`
}

// Info names the resolved field.
type Info struct {
	ParentTypeName string `json:"parentTypeName"`
	FieldName      string `json:"fieldName"`
}

// Identity carries the caller's token claims. It is nil for API key callers.
type Identity struct {
	Claims map[string]any `json:"claims"`
}

// Field returns the route key of the event, e.g. "Snippet.Create".
func (e Event) Field() string {
	return e.Info.ParentTypeName + "." + e.Info.FieldName
}

// Email returns the email claim of the caller, or "".
func (e Event) Email() string {
	if e.Identity == nil {
		return ""
	}
	email, _ := e.Identity.Claims["email"].(string)
	return email
}

// Response is the result of one resolved field. Exactly one of Data and
// Error is set.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error is the client-facing error of a failed field.
type Error struct {
	Type    string `json:"errorType"`
	Message string `json:"message"`
}
