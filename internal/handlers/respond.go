package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alextreichler/flowershop/internal/clientstate"
	"github.com/alextreichler/flowershop/internal/i18n"
)

const maxJSONBody = 64 << 10

type errorResponse struct {
	Error      string            `json:"error"`
	Fields     map[string]string `json:"fields,omitempty"`
	RetryAfter int               `json:"retry_after,omitempty"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// respondWithError writes {"error": ...} with the message for key in lang.
func respondWithError(w http.ResponseWriter, status int, lang, key string) {
	respondWithJSON(w, status, errorResponse{Error: i18n.T(key, lang)})
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return err
	}
	if len(body) > maxJSONBody {
		return errors.New("request body too large")
	}
	return json.Unmarshal(body, dst)
}

// pathID parses the {id} wildcard of the matched route.
func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// requestLang is the stored language preference, or the best match for
// Accept-Language when none is stored.
func requestLang(st clientstate.Storage, r *http.Request) string {
	if lang, ok := st.Get(clientstate.LangKey); ok && i18n.IsSupported(lang) {
		return lang
	}
	return i18n.Negotiate(r.Header.Get("Accept-Language"))
}

// saveState flushes the client state cookie; it must run before the body is
// written. On failure it answers 500 and reports false, so the caller must
// not write a success body.
func saveState(st *clientstate.Session, r *http.Request, w http.ResponseWriter, lang string) bool {
	if err := st.Save(r, w); err != nil {
		slog.Error("Failed to save client state", "error", err)
		respondWithError(w, http.StatusInternalServerError, lang, "error.server")
		return false
	}
	return true
}
