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

type simRequest struct {
	Name       string   `json:"name" validate:"required,max=100"`
	Traits     []string `json:"traits" validate:"omitempty,max=3,dive,max=50"`
	Career     string   `json:"career" validate:"omitempty,max=50"`
	Aspiration string   `json:"aspiration" validate:"omitempty,max=50"`
}

type linkRequest struct {
	ChallengeID string `json:"challengeId" validate:"required"`
}

func (s *Server) handleListSims(_ http.ResponseWriter, r *http.Request) {
	sess, _ := gate.FromContext(r.Context())

	sims, err := s.data.ListSims(r.Context(), sess.UID)
	if err != nil {
		upstreamError(r, err)
		return
	}
	if sims == nil {
		sims = []*provider.Sim{}
	}
	simtrack.SetResponse(r, http.StatusOK, sims)
}

func (s *Server) handleCreateSim(_ http.ResponseWriter, r *http.Request) {
	sess, _ := gate.FromContext(r.Context())

	var req simRequest
	if !simtrack.JSON(r, &req) {
		return
	}

	now := time.Now().UTC()
	sim, err := s.data.CreateSim(r.Context(), &provider.Sim{
		ID:         uuid.NewString(),
		OwnerUID:   sess.UID,
		Name:       req.Name,
		Traits:     req.Traits,
		Career:     req.Career,
		Aspiration: req.Aspiration,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		upstreamError(r, err)
		return
	}
	simtrack.SetResponse(r, http.StatusCreated, sim)
}

// ownedSim fetches a sim and enforces ownership, mirroring ownedChallenge.
func (s *Server) ownedSim(r *http.Request) *provider.Sim {
	sess, _ := gate.FromContext(r.Context())

	sim, err := s.data.GetSim(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		upstreamError(r, err)
		return nil
	}
	if sim.OwnerUID != sess.UID {
		simtrack.SetError(r, simtrack.ErrNotFound)
		return nil
	}
	return sim
}

func (s *Server) handleGetSim(_ http.ResponseWriter, r *http.Request) {
	if sim := s.ownedSim(r); sim != nil {
		simtrack.SetResponse(r, http.StatusOK, sim)
	}
}

func (s *Server) handleUpdateSim(_ http.ResponseWriter, r *http.Request) {
	sim := s.ownedSim(r)
	if sim == nil {
		return
	}

	var req simRequest
	if !simtrack.JSON(r, &req) {
		return
	}

	sim.Name = req.Name
	sim.Traits = req.Traits
	sim.Career = req.Career
	sim.Aspiration = req.Aspiration
	sim.UpdatedAt = time.Now().UTC()

	updated, err := s.data.UpdateSim(r.Context(), sim)
	if err != nil {
		upstreamError(r, err)
		return
	}
	simtrack.SetResponse(r, http.StatusOK, updated)
}

func (s *Server) handleDeleteSim(_ http.ResponseWriter, r *http.Request) {
	sim := s.ownedSim(r)
	if sim == nil {
		return
	}

	if err := s.data.DeleteSim(r.Context(), sim.ID); err != nil {
		upstreamError(r, err)
		return
	}
	simtrack.SetResponse(r, http.StatusNoContent, nil)
}

// handleLinkSim attaches a sim to a challenge. The challenge must exist and
// belong to the same user.
func (s *Server) handleLinkSim(_ http.ResponseWriter, r *http.Request) {
	sim := s.ownedSim(r)
	if sim == nil {
		return
	}

	var req linkRequest
	if !simtrack.JSON(r, &req) {
		return
	}

	sess, _ := gate.FromContext(r.Context())
	ch, err := s.data.GetChallenge(r.Context(), req.ChallengeID)
	if err != nil {
		upstreamError(r, err)
		return
	}
	if ch.OwnerUID != sess.UID {
		simtrack.SetError(r, simtrack.ErrNotFound)
		return
	}

	sim.ChallengeID = ch.ID
	sim.UpdatedAt = time.Now().UTC()

	updated, err := s.data.UpdateSim(r.Context(), sim)
	if err != nil {
		upstreamError(r, err)
		return
	}
	simtrack.SetResponse(r, http.StatusOK, updated)
}

func (s *Server) handleUnlinkSim(_ http.ResponseWriter, r *http.Request) {
	sim := s.ownedSim(r)
	if sim == nil {
		return
	}

	sim.ChallengeID = ""
	sim.UpdatedAt = time.Now().UTC()

	updated, err := s.data.UpdateSim(r.Context(), sim)
	if err != nil {
		upstreamError(r, err)
		return
	}
	simtrack.SetResponse(r, http.StatusOK, updated)
}
