package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/emrahtokalak/supportflow/monitor"
	"github.com/emrahtokalak/supportflow/panel"
)

type stateSource interface {
	State() panel.State
}

type connectionSource interface {
	State() monitor.ConnectionState
}

func writeJSON(w http.ResponseWriter, status int, v interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

// StateHandler serves the panel state a renderer needs before it opens the websocket.
func StateHandler(p stateSource, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, p.State(), log)
	}
}

// HealthHandler reports this process as up and includes the last known backend state.
func HealthHandler(m connectionSource, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Status  string                  `json:"status"`
			Backend monitor.ConnectionState `json:"backend"`
		}{Status: "ok", Backend: m.State()}, log)
	}
}
