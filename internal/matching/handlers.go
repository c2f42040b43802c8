package matching

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/imadgeboyega/kiekky-matching/internal/auth"
	"github.com/imadgeboyega/kiekky-matching/internal/common/utils"
	"github.com/imadgeboyega/kiekky-matching/internal/logging"
)

// retryAfterSeconds is sent with 503 responses caused by persistence failures.
const retryAfterSeconds = "5"

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) GetCompatibility(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	otherID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	result, err := h.engine.CalculateCompatibility(r.Context(), userID, otherID)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, result)
}

func (h *Handler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	params, err := parseFilterParams(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.engine.GetRankedCandidates(r.Context(), userID, params)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, page)
}

// ProfileChanged is called after a user's scoring inputs change. Callers may
// only invalidate their own cached pairs.
func (h *Handler) ProfileChanged(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil || userID <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	if userID != callerID {
		utils.RespondWithError(w, http.StatusForbidden, "Cannot invalidate another user's compatibility")
		return
	}

	h.engine.OnProfileChanged(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}

func respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidFilter):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUserNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPersistence):
		logging.Warn().Err(err).Str("path", r.URL.Path).Msg("persistence failure")
		w.Header().Set("Retry-After", retryAfterSeconds)
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Matching data temporarily unavailable")
	default:
		logging.Error().Err(err).Str("path", r.URL.Path).Msg("matching request failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func parseFilterParams(r *http.Request) (FilterParams, error) {
	q := r.URL.Query()
	p := FilterParams{Category: strings.TrimSpace(q.Get("category"))}

	var err error
	if p.MinAge, err = optionalInt(q.Get("min_age"), "min_age"); err != nil {
		return p, err
	}
	if p.MaxAge, err = optionalInt(q.Get("max_age"), "max_age"); err != nil {
		return p, err
	}
	if v := q.Get("max_distance_km"); v != "" {
		km, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, invalidFilter("max_distance_km must be a number")
		}
		p.MaxDistanceKm = &km
	}
	if v := q.Get("cross_group"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, invalidFilter("cross_group must be a boolean")
		}
		p.CrossGroup = &b
	}
	if v := q.Get("exclude"); v != "" {
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return p, invalidFilter("exclude must be a comma-separated list of ids")
			}
			p.Exclude = append(p.Exclude, id)
		}
	}
	if v := q.Get("limit"); v != "" {
		if p.Limit, err = strconv.Atoi(v); err != nil {
			return p, invalidFilter("limit must be an integer")
		}
	}
	if v := q.Get("offset"); v != "" {
		if p.Offset, err = strconv.Atoi(v); err != nil {
			return p, invalidFilter("offset must be an integer")
		}
	}
	return p, nil
}

func optionalInt(v, name string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, invalidFilter("%s must be an integer", name)
	}
	return &n, nil
}
