package api

import "time"

// RequestMessage is one command from a client.
// Topic: adr/request/{command}
type RequestMessage struct {
	// RequestID uniquely identifies this request for correlation.
	// The response is published to adr/response/{request_id}.
	RequestID string `json:"request_id"`

	// Timestamp is when the request was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Params contains command-specific values.
	// Examples:
	//   {"temp": 0.085} for regulate
	//   {"n": 20} for get-log
	Params map[string]any `json:"params,omitempty"`
}

// ResponseMessage is the core's reply to one request.
// Topic: adr/response/{request_id}
type ResponseMessage struct {
	// RequestID is the ID from the original request.
	RequestID string `json:"request_id"`

	// Timestamp is when the response was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Success indicates whether the request succeeded.
	Success bool `json:"success"`

	// Data contains the response payload (if successful).
	Data map[string]any `json:"data,omitempty"`

	// Error contains error details (if failed).
	Error *ResponseError `json:"error,omitempty"`
}

// ResponseError contains error details for failed requests.
type ResponseError struct {
	// Code is the error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`
}

// Error codes for failed requests.
const (
	// ErrCodeInvalidCommand means the command segment of the request
	// topic names no known command.
	ErrCodeInvalidCommand = "INVALID_COMMAND"

	// ErrCodeInvalidParameters means a required parameter was missing
	// or had the wrong type.
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"

	// ErrCodeRejected means a controller guard refused the operation
	// (mode conflict or disconnected instrument). The operator log
	// carries the detail.
	ErrCodeRejected = "REJECTED"

	// ErrCodeDeviceUnreachable means an instrument call failed while
	// serving the request. The instrument is marked disconnected.
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"

	// ErrCodeInternal means the core failed while serving the request.
	ErrCodeInternal = "INTERNAL_ERROR"
)

// okResponse builds a success reply for a request.
func okResponse(requestID string, data map[string]any) ResponseMessage {
	return ResponseMessage{
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Success:   true,
		Data:      data,
	}
}

// errResponse builds a failure reply for a request.
func errResponse(requestID, code, message string) ResponseMessage {
	return ResponseMessage{
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Success:   false,
		Error: &ResponseError{
			Code:    code,
			Message: message,
		},
	}
}
