// v0
// internal/http/handlers.go
package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MayorChristopher/poultry-management-system/internal/auth"
	"github.com/MayorChristopher/poultry-management-system/internal/control"
	"github.com/MayorChristopher/poultry-management-system/internal/logfeed"
	"github.com/MayorChristopher/poultry-management-system/internal/sensor"
	"github.com/MayorChristopher/poultry-management-system/internal/state"
	"github.com/MayorChristopher/poultry-management-system/internal/status"
)

const maxBody = 1 << 16

type api struct {
	deps Deps
	log  *slog.Logger
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *api) signUp(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !a.decode(w, r, &body) {
		return
	}
	user, err := a.deps.Auth.SignUp(r.Context(), body.Email, body.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, a.log, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUserExists):
		writeError(w, a.log, http.StatusConflict, err.Error())
	case err != nil:
		a.log.Error("sign_up_failed", slog.Any("err", err))
		writeError(w, a.log, http.StatusInternalServerError, "sign up failed")
	default:
		writeJSON(w, a.log, http.StatusCreated, user)
	}
}

func (a *api) signIn(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !a.decode(w, r, &body) {
		return
	}
	sess, err := a.deps.Auth.SignIn(r.Context(), body.Email, body.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, a.log, http.StatusUnauthorized, err.Error())
	case err != nil:
		a.log.Error("sign_in_failed", slog.Any("err", err))
		writeError(w, a.log, http.StatusInternalServerError, "sign in failed")
	default:
		writeJSON(w, a.log, http.StatusOK, sess)
	}
}

func (a *api) signOut(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	if err := a.deps.Auth.SignOut(r.Context(), id.Token); err != nil {
		writeError(w, a.log, http.StatusUnauthorized, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) me(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	writeJSON(w, a.log, http.StatusOK, map[string]any{
		"user":    id.User,
		"profile": id.Profile,
	})
}

func (a *api) getState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.log, http.StatusOK, a.deps.State.State())
}

func (a *api) getDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.log, http.StatusOK, a.deps.Dashboard.View())
}

type statusResponse struct {
	Reading  sensor.Reading                 `json:"reading"`
	Overall  status.Band                    `json:"overall"`
	Channels map[sensor.Channel]status.Band `json:"channels"`
	Updated  time.Time                      `json:"lastUpdated"`
}

func (a *api) getStatus(w http.ResponseWriter, _ *http.Request) {
	st := a.deps.State.State()
	reading := st.Reading()
	rep := status.Evaluate(reading)
	writeJSON(w, a.log, http.StatusOK, statusResponse{
		Reading:  reading,
		Overall:  rep.Overall,
		Channels: rep.Channels,
		Updated:  st.LastUpdated,
	})
}

type actionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (a *api) listControls(w http.ResponseWriter, _ *http.Request) {
	actions := make([]actionInfo, 0, len(control.Actions()))
	for _, act := range control.Actions() {
		actions = append(actions, actionInfo{Name: act.String(), Description: act.Description()})
	}
	writeJSON(w, a.log, http.StatusOK, map[string]any{
		"actions": actions,
		"history": a.deps.State.State().ControlActions,
	})
}

type executeRequest struct {
	Action string `json:"action"`
}

type executeResponse struct {
	Record      state.ControlAction `json:"record"`
	Description string              `json:"description"`
	Recognized  bool                `json:"recognized"`
}

func (a *api) executeControl(w http.ResponseWriter, r *http.Request) {
	var body executeRequest
	if !a.decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Action) == "" {
		writeError(w, a.log, http.StatusBadRequest, "action is required")
		return
	}
	rec, err := a.deps.Controls.Execute(r.Context(), body.Action)
	if err != nil {
		writeError(w, a.log, http.StatusServiceUnavailable, err.Error())
		return
	}
	act := control.Parse(body.Action)
	id, _ := IdentityFrom(r.Context())
	a.log.Info("control_requested",
		slog.String("user_id", id.User.ID),
		slog.String("action", body.Action),
		slog.String("id", rec.ID),
	)
	writeJSON(w, a.log, http.StatusAccepted, executeResponse{
		Record:      rec,
		Description: act.Description(),
		Recognized:  act.Known(),
	})
}

type logsResponse struct {
	Entries []logfeed.Entry          `json:"entries"`
	Counts  map[logfeed.Category]int `json:"counts"`
}

func (a *api) listLogs(w http.ResponseWriter, r *http.Request) {
	cat := logfeed.Category(strings.TrimSpace(r.URL.Query().Get("type")))
	if cat == "all" {
		cat = ""
	}
	if cat != "" && !cat.Valid() {
		writeError(w, a.log, http.StatusBadRequest, "unknown log type")
		return
	}
	writeJSON(w, a.log, http.StatusOK, logsResponse{Entries: a.deps.Logs.Entries(cat), Counts: a.deps.Logs.Counts()})
}

func (a *api) refreshLogs(w http.ResponseWriter, _ *http.Request) {
	a.deps.Logs.Refresh()
	writeJSON(w, a.log, http.StatusOK, logsResponse{Entries: a.deps.Logs.Entries(""), Counts: a.deps.Logs.Counts()})
}

func (a *api) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, a.log, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write_response_failed", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, code int, msg string) {
	writeJSON(w, logger, code, map[string]string{"error": msg})
}
