package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the body of every failed request. RequestID echoes the
// X-Request-Id header so clients can quote it in support tickets.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
