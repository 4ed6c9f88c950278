package main

import (
	"net/http"

	"github.com/liamcoop/fieldinsights/auth"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, "invalid request body", err)
		return
	}

	user, err := s.auth.Signup(r.Context(), req)
	if err != nil {
		fail(w, r, "registration failed", err)
		return
	}

	respondSuccess(w, http.StatusCreated, "User registered successfully", map[string]string{
		"user_id": user.ID,
		"email":   user.Email,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, "invalid request body", err)
		return
	}

	token, user, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(w, r, "login failed", err)
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   token.ExpiresIn,
		User: UserSummary{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		},
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), currentToken(r)); err != nil {
		fail(w, r, "logout failed", err)
		return
	}
	respondSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, err := s.auth.Refresh(r.Context(), currentToken(r))
	if err != nil {
		fail(w, r, "token refresh failed", err)
		return
	}
	respondJSON(w, http.StatusOK, token)
}
