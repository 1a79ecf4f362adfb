// Package uiproto implements the newline-delimited JSON protocol spoken with
// the UI frontend over stdin/stdout.
package uiproto

// RequestType is the discriminator carried by every UI request.
type RequestType string

// Recognised UI request types.
const (
	RequestHello          RequestType = "hello"
	RequestAuth           RequestType = "auth"
	RequestPromptResponse RequestType = "prompt_response"
	RequestCancel         RequestType = "cancel"
	RequestStart          RequestType = "start"
	RequestPower          RequestType = "power"
	RequestAck            RequestType = "ack"
)

// Request is a UI request, flattened across all variants of the tagged sum
// described by the protocol. Only the fields relevant to Type are populated.
type Request struct {
	Type RequestType `json:"type"`

	// hello
	UIVersion int `json:"ui_version,omitempty"`

	// auth
	Username  string            `json:"username,omitempty"`
	Command   []string          `json:"command,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	ProfileID string            `json:"profile_id,omitempty"`
	Locale    string            `json:"locale,omitempty"`

	// prompt_response
	ID       int64   `json:"id,omitempty"`
	Response *string `json:"response,omitempty"`

	// power
	Action string `json:"action,omitempty"`

	// ack
	Kind string `json:"kind,omitempty"`
}

// ResponseType is the discriminator carried by every backend response.
type ResponseType string

// Recognised backend response types.
const (
	ResponseState   ResponseType = "state"
	ResponsePrompt  ResponseType = "prompt"
	ResponseMessage ResponseType = "message"
	ResponseError   ResponseType = "error"
	ResponseSuccess ResponseType = "success"
)

// Response is a backend response, flattened across all variants of the
// tagged sum sent to the UI.
type Response struct {
	Type ResponseType `json:"type"`

	// state
	Phase string `json:"phase,omitempty"`

	// prompt
	ID      int64  `json:"id,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
	Echo    bool   `json:"echo,omitempty"`

	// error
	Code string `json:"code,omitempty"`

	// message reuses Kind and Message above.
}

// State builds a state{phase} response.
func State(phase string) Response {
	return Response{Type: ResponseState, Phase: phase}
}

// Prompt builds a prompt{id, kind, message, echo} response.
func Prompt(id int64, kind, message string, echo bool) Response {
	return Response{Type: ResponsePrompt, ID: id, Kind: kind, Message: message, Echo: echo}
}

// Message builds a message{kind, message} response.
func Message(kind, message string) Response {
	return Response{Type: ResponseMessage, Kind: kind, Message: message}
}

// Error builds an error{code, message} response.
func Error(code, message string) Response {
	return Response{Type: ResponseError, Code: code, Message: message}
}

// Success builds the terminal success response.
func Success() Response {
	return Response{Type: ResponseSuccess}
}
