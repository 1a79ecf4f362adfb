// Package greetd implements the length-prefixed JSON protocol spoken with
// the session daemon over a UNIX stream socket.
package greetd

// RequestType is the discriminator carried by every request sent to the
// daemon.
type RequestType string

// Recognised daemon request types.
const (
	RequestCreateSession           RequestType = "create_session"
	RequestPostAuthMessageResponse RequestType = "post_auth_message_response"
	RequestStartSession            RequestType = "start_session"
	RequestCancelSession           RequestType = "cancel_session"
)

// Request is a daemon request, flattened across the closed set of variants
// the protocol allows.
type Request struct {
	Type RequestType `json:"type"`

	// create_session
	Username string `json:"username,omitempty"`

	// post_auth_message_response
	Response *string `json:"response,omitempty"`

	// start_session
	Cmd []string `json:"cmd,omitempty"`
	Env []string `json:"env,omitempty"`
}

// CreateSession builds a create_session{username} request.
func CreateSession(username string) Request {
	return Request{Type: RequestCreateSession, Username: username}
}

// PostAuthMessageResponse builds a post_auth_message_response{response?}
// request. Pass nil for info/error acknowledgements.
func PostAuthMessageResponse(response *string) Request {
	return Request{Type: RequestPostAuthMessageResponse, Response: response}
}

// StartSession builds a start_session{cmd, env} request.
func StartSession(cmd, env []string) Request {
	return Request{Type: RequestStartSession, Cmd: cmd, Env: env}
}

// CancelSession builds a cancel_session request.
func CancelSession() Request {
	return Request{Type: RequestCancelSession}
}

// ResponseType is the discriminator carried by every response from the
// daemon.
type ResponseType string

// Recognised daemon response types.
const (
	ResponseSuccess     ResponseType = "success"
	ResponseError       ResponseType = "error"
	ResponseAuthMessage ResponseType = "auth_message"
)

// AuthMessageType classifies an auth_message response.
type AuthMessageType string

// Recognised auth message types.
const (
	AuthMessageVisible AuthMessageType = "visible"
	AuthMessageSecret  AuthMessageType = "secret"
	AuthMessageInfo    AuthMessageType = "info"
	AuthMessageError   AuthMessageType = "error"
)

// Response is a daemon response, flattened across the closed set of
// variants the protocol allows.
type Response struct {
	Type ResponseType `json:"type"`

	// error
	ErrorType   string `json:"error_type,omitempty"`
	Description string `json:"description,omitempty"`

	// auth_message
	AuthMessageType AuthMessageType `json:"auth_message_type,omitempty"`
	AuthMessage     string          `json:"auth_message,omitempty"`
}

// IsPrompt reports whether the response is an auth_message requiring a
// response from the UI (kind visible or secret).
func (r Response) IsPrompt() bool {
	return r.Type == ResponseAuthMessage &&
		(r.AuthMessageType == AuthMessageVisible || r.AuthMessageType == AuthMessageSecret)
}

// IsNotice reports whether the response is an auth_message carrying
// informational or error text with no response required.
func (r Response) IsNotice() bool {
	return r.Type == ResponseAuthMessage &&
		(r.AuthMessageType == AuthMessageInfo || r.AuthMessageType == AuthMessageError)
}
