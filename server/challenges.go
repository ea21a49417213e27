package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/simtrack/simtrack"
	"github.com/simtrack/simtrack/gate"
	"github.com/simtrack/simtrack/provider"
)

type ruleInput struct {
	Title  string `json:"title" validate:"required,max=100"`
	Detail string `json:"detail" validate:"omitempty,max=1000"`
}

type challengeRequest struct {
	Name        string      `json:"name" validate:"required,max=100"`
	Description string      `json:"description" validate:"omitempty,max=2000"`
	Packs       []string    `json:"packs" validate:"omitempty,dive,max=50"`
	Rules       []ruleInput `json:"rules" validate:"omitempty,dive"`
}

func (req *challengeRequest) rules() []provider.Rule {
	if len(req.Rules) == 0 {
		return nil
	}
	out := make([]provider.Rule, len(req.Rules))
	for i, rl := range req.Rules {
		out[i] = provider.Rule{Title: rl.Title, Detail: rl.Detail}
	}
	return out
}

func (s *Server) handleListChallenges(_ http.ResponseWriter, r *http.Request) {
	sess, _ := gate.FromContext(r.Context())

	challenges, err := s.data.ListChallenges(r.Context(), sess.UID)
	if err != nil {
		upstreamError(r, err)
		return
	}
	if challenges == nil {
		challenges = []*provider.Challenge{}
	}
	simtrack.SetResponse(r, http.StatusOK, challenges)
}

func (s *Server) handleCreateChallenge(_ http.ResponseWriter, r *http.Request) {
	sess, _ := gate.FromContext(r.Context())

	var req challengeRequest
	if !simtrack.JSON(r, &req) {
		return
	}

	now := time.Now().UTC()
	ch, err := s.data.CreateChallenge(r.Context(), &provider.Challenge{
		ID:          uuid.NewString(),
		OwnerUID:    sess.UID,
		Name:        req.Name,
		Description: req.Description,
		Packs:       req.Packs,
		Rules:       req.rules(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		upstreamError(r, err)
		return
	}
	simtrack.SetResponse(r, http.StatusCreated, ch)
}

// ownedChallenge fetches a challenge and enforces ownership. Records owned
// by someone else surface as not-found so existence never leaks.
func (s *Server) ownedChallenge(r *http.Request) *provider.Challenge {
	sess, _ := gate.FromContext(r.Context())

	ch, err := s.data.GetChallenge(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		upstreamError(r, err)
		return nil
	}
	if ch.OwnerUID != sess.UID {
		simtrack.SetError(r, simtrack.ErrNotFound)
		return nil
	}
	return ch
}

func (s *Server) handleGetChallenge(_ http.ResponseWriter, r *http.Request) {
	if ch := s.ownedChallenge(r); ch != nil {
		simtrack.SetResponse(r, http.StatusOK, ch)
	}
}

func (s *Server) handleUpdateChallenge(_ http.ResponseWriter, r *http.Request) {
	ch := s.ownedChallenge(r)
	if ch == nil {
		return
	}

	var req challengeRequest
	if !simtrack.JSON(r, &req) {
		return
	}

	ch.Name = req.Name
	ch.Description = req.Description
	ch.Packs = req.Packs
	ch.Rules = req.rules()
	ch.UpdatedAt = time.Now().UTC()

	updated, err := s.data.UpdateChallenge(r.Context(), ch)
	if err != nil {
		upstreamError(r, err)
		return
	}
	simtrack.SetResponse(r, http.StatusOK, updated)
}

func (s *Server) handleDeleteChallenge(_ http.ResponseWriter, r *http.Request) {
	ch := s.ownedChallenge(r)
	if ch == nil {
		return
	}

	if err := s.data.DeleteChallenge(r.Context(), ch.ID); err != nil {
		upstreamError(r, err)
		return
	}
	simtrack.SetResponse(r, http.StatusNoContent, nil)
}
