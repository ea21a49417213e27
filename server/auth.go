package server

import (
	"errors"
	"net/http"

	"github.com/nhalm/canonlog"

	"github.com/simtrack/simtrack"
	"github.com/simtrack/simtrack/provider"
)

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	DisplayName string `json:"displayName" validate:"omitempty,max=50"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !simtrack.JSON(r, &req) {
		return
	}

	token, user, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, provider.ErrInvalidCredentials) {
			simtrack.SetError(r, simtrack.ErrInvalidCredentials)
			return
		}
		upstreamError(r, err)
		return
	}

	s.setSessionCookie(w, token, int(s.cfg.SessionTTL.Seconds()))
	simtrack.SetResponse(r, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !simtrack.JSON(r, &req) {
		return
	}

	user, err := s.auth.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, provider.ErrEmailInUse) {
			simtrack.SetError(r, simtrack.NewFieldError("email", "Email already in use"))
			return
		}
		upstreamError(r, err)
		return
	}

	simtrack.SetResponse(r, http.StatusCreated, map[string]any{"user": user})
}

// handleResetPassword always answers with the same generic body whether or
// not an account exists for the address, to prevent account enumeration.
func (s *Server) handleResetPassword(_ http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !simtrack.JSON(r, &req) {
		return
	}

	if err := s.auth.SendPasswordReset(r.Context(), req.Email); err != nil {
		if !errors.Is(err, provider.ErrNotFound) {
			upstreamError(r, err)
			return
		}
		canonlog.InfoAdd(r.Context(), "reset_unknown_email", true)
	}

	simtrack.SetResponse(r, http.StatusOK, map[string]string{
		"message": "If an account exists for that address, a reset email has been sent",
	})
}

func (s *Server) handleValidateCredentials(_ http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !simtrack.JSON(r, &req) {
		return
	}

	if err := s.auth.VerifyCredentials(r.Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, provider.ErrInvalidCredentials) {
			simtrack.SetError(r, simtrack.ErrInvalidCredentials)
			return
		}
		upstreamError(r, err)
		return
	}

	simtrack.SetResponse(r, http.StatusOK, map[string]bool{"valid": true})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(s.cfg.SessionCookieName); err == nil && c.Value != "" {
		// Best effort; the cookie is cleared regardless.
		if err := s.auth.SignOut(r.Context(), c.Value); err != nil {
			canonlog.ErrorAdd(r.Context(), err)
		}
	}

	s.setSessionCookie(w, "", -1)
	simtrack.SetResponse(r, http.StatusOK, map[string]string{"message": "Signed out"})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
