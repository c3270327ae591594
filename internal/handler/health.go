package handler

import "net/http"

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageBody{Success: true, Message: "API is running"})
}

// NotFound answers any route that is not registered.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "Not Found - "+r.URL.RequestURI())
}
