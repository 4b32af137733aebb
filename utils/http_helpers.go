package utils

import (
	"encoding/json"
	"net/http"
)

// WriteJSONResponse writes a JSON body with the given status code
func WriteJSONResponse(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
