package server

import (
	"errors"
	"net/http"

	"github.com/simtrack/simtrack"
	"github.com/simtrack/simtrack/gate"
	"github.com/simtrack/simtrack/provider"
)

type preferencesRequest struct {
	Theme        string   `json:"theme" validate:"omitempty,oneof=light dark system"`
	DefaultPacks []string `json:"defaultPacks" validate:"omitempty,dive,max=50"`
}

// handleGetPreferences returns stored preferences, or defaults when the
// user has never saved any.
func (s *Server) handleGetPreferences(_ http.ResponseWriter, r *http.Request) {
	sess, _ := gate.FromContext(r.Context())

	prefs, err := s.data.GetPreferences(r.Context(), sess.UID)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			simtrack.SetResponse(r, http.StatusOK, &provider.Preferences{UID: sess.UID, Theme: "system"})
			return
		}
		upstreamError(r, err)
		return
	}
	simtrack.SetResponse(r, http.StatusOK, prefs)
}

func (s *Server) handlePutPreferences(_ http.ResponseWriter, r *http.Request) {
	sess, _ := gate.FromContext(r.Context())

	var req preferencesRequest
	if !simtrack.JSON(r, &req) {
		return
	}

	prefs := &provider.Preferences{
		UID:          sess.UID,
		Theme:        req.Theme,
		DefaultPacks: req.DefaultPacks,
	}
	if err := s.data.PutPreferences(r.Context(), prefs); err != nil {
		upstreamError(r, err)
		return
	}
	simtrack.SetResponse(r, http.StatusOK, prefs)
}
