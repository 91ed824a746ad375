package api

import (
	"encoding/json"
	"net/http"

	"github.com/vocdoni/secret-ballot/log"
)

// httpWriteJSON answers with data encoded as JSON. The body is encoded
// before any header is sent, so an encoding failure still produces a clean
// error response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(append(jdata, '\n'))
	if err != nil {
		log.Warnw("could not write API response", "error", err.Error())
		return
	}
	log.Debugw("API response", "bytes", n)
}

// httpWriteOK answers with an empty successful response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("could not write API response", "error", err.Error())
	}
}
