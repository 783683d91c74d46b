package pickup_api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BearBump/PickupBox/internal/services/imminent"
	"github.com/BearBump/PickupBox/internal/services/settings"
	"github.com/BearBump/PickupBox/internal/services/tokens"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

type Settings interface {
	All(ctx context.Context) (map[string]string, error)
	Update(ctx context.Context, key, value string) error
}

type Condition interface {
	Check(ctx context.Context) (bool, imminent.Result, error)
}

type Tokens interface {
	Tokens() []tokens.Token
}

type PickupAPI struct {
	settings  Settings
	condition Condition
	tokens    Tokens
}

func New(settings Settings, condition Condition, toks Tokens) *PickupAPI {
	return &PickupAPI{settings: settings, condition: condition, tokens: toks}
}

type conditionResponse struct {
	Result bool   `json:"result"`
	State  string `json:"state"`
}

type setSettingRequest struct {
	Value *string `json:"value"`
}

// Routes mounts the pickup endpoints on r.
func (a *PickupAPI) Routes(r chi.Router) {
	r.Get("/conditions/pickup-tomorrow", a.pickupTomorrow)
	r.Get("/tokens", a.listTokens)
	r.Get("/settings", a.listSettings)
	r.Put("/settings/{key}", a.putSetting)
}

func (a *PickupAPI) pickupTomorrow(w http.ResponseWriter, r *http.Request) {
	ok, res, err := a.condition.Check(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, conditionResponse{Result: ok, State: res.String()})
}

func (a *PickupAPI) listTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.tokens.Tokens())
}

func (a *PickupAPI) listSettings(w http.ResponseWriter, r *http.Request) {
	all, err := a.settings.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (a *PickupAPI) putSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req setSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode body"))
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, errors.New("value is required"))
		return
	}

	if err := a.settings.Update(r.Context(), key, *req.Value); err != nil {
		if settings.IsRejected(err) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	slog.Info("setting updated", "key", key)
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": *req.Value})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
