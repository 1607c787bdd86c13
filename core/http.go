package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "write json error: %v", err)
	}
}

// WriteError maps the error's kind to a status code and writes the standard
// {"error": ...} body.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch KindOf(err) {
	case KindNotFound:
		status = http.StatusNotFound
	case KindValidation:
		status = http.StatusBadRequest
	}
	WriteJSON(w, status, map[string]string{"error": err.Error()})
}
