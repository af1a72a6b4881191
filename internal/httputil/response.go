package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// WriteJSON serializes v with the given status. An encoding failure is only
// logged: the status line is already on the wire by then, so there is
// nothing left to tell the client.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httputil: encoding response: %v", err)
	}
}

// WriteError writes the {"error": message} envelope every REST and upgrade
// rejection in this service uses.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
