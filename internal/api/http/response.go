package apihttp

import (
	"encoding/json"
	"net/http"
)

// errorBody is the flat error shape every Control API route returns: no
// nested envelope, just the message and the URI that produced it.
type errorBody struct {
	Error string `json:"error"`
	URI   string `json:"uri"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorBody{Error: message, URI: r.URL.RequestURI()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
