package dto

// ErrorResponse is the JSON body of every failed HTTP call. Code is one of
// the stable service error codes.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
