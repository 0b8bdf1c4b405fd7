package api

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope of every API body: exactly one of Data or Error is
// set.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// JSON writes data with status.
func JSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, Response{Data: data})
}

// JSONError writes err with its own status. A zero status becomes 500.
func JSONError(w http.ResponseWriter, err *Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	writeEnvelope(w, status, Response{Error: err})
}

// OK writes data with 200.
func OK(w http.ResponseWriter, data any) { JSON(w, http.StatusOK, data) }
