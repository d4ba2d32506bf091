package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"nomadfinance/internal/finance"
	"nomadfinance/internal/identity"
	"nomadfinance/internal/log"
)

type sessionResponse struct {
	State     identity.State         `json:"state"`
	User      *identity.HostIdentity `json:"user,omitempty"`
	Token     string                 `json:"token,omitempty"`
	ExpiresAt *time.Time             `json:"expiresAt,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// handleSession runs the identity gate for the init data the host passed to
// the mini-app. Every gate state is a normal answer; only Authorized carries
// a token.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSession(w, r)
	if !ok {
		return
	}
	h, err := s.resolver.Resolve(req.InitData)
	if err != nil {
		NewResponse().JSON(sessionResponse{State: identity.NoIdentity}).Write(w)
		return
	}
	g := s.sessions.gate(h)
	s.writeGate(w, r, g, g.Init(r.Context()), http.StatusOK)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSession(w, r)
	if !ok {
		return
	}
	g, ok := s.gateFor(w, req)
	if !ok {
		return
	}
	g.Init(r.Context())

	state, err := g.Register(r.Context(), req.Password)
	switch {
	case errors.Is(err, identity.ErrEmptyPassword):
		s.writeGate(w, r, g, state, http.StatusUnprocessableEntity)
	case errors.Is(err, identity.ErrInvalidTransition):
		s.writeGate(w, r, g, state, http.StatusConflict)
	case err != nil:
		s.writeGate(w, r, g, state, http.StatusBadGateway)
	default:
		s.writeGate(w, r, g, state, http.StatusOK)
	}
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSession(w, r)
	if !ok {
		return
	}
	g, ok := s.gateFor(w, req)
	if !ok {
		return
	}
	state, err := g.Retry(r.Context())
	if errors.Is(err, identity.ErrInvalidTransition) {
		s.writeGate(w, r, g, state, http.StatusConflict)
		return
	}
	s.writeGate(w, r, g, state, http.StatusOK)
}

// decodeSession accepts an empty body as empty init data so dev mode can fall
// back to the mock identity.
func (s *Server) decodeSession(w http.ResponseWriter, r *http.Request) (sessionRequest, bool) {
	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		BadRequestError(err.Error()).Write(w)
		return req, false
	}
	return req, true
}

func (s *Server) gateFor(w http.ResponseWriter, req sessionRequest) (*identity.Gate, bool) {
	h, err := s.resolver.Resolve(req.InitData)
	if err != nil {
		NewResponse().
			Status(http.StatusUnauthorized).
			JSON(errorBody{Error: identity.ErrNoIdentity.Error(), State: identity.NoIdentity.String()}).
			Write(w)
		return nil, false
	}
	return s.sessions.gate(h), true
}

func (s *Server) writeGate(w http.ResponseWriter, r *http.Request, g *identity.Gate, state identity.State, status int) {
	resp := sessionResponse{State: state}
	if h, ok := g.Identity(); ok {
		resp.User = &h
	}
	switch state {
	case identity.Failed:
		resp.Error = "account service unavailable"
	case identity.Authorized:
		token, expires, err := s.tokens.Issue(resp.User.Key())
		if err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Session token signing failed", log.FieldError, err)
			InternalServerError("could not create session").Write(w)
			return
		}
		resp.Token = token
		resp.ExpiresAt = &expires
		atomic.AddInt64(&s.metrics.sessionsIssued, 1)
	}
	if status >= http.StatusBadRequest && resp.Error == "" {
		if err := g.Err(); err != nil {
			resp.Error = "account service unavailable"
		} else if status == http.StatusUnprocessableEntity {
			resp.Error = identity.ErrEmptyPassword.Error()
		} else {
			resp.Error = identity.ErrInvalidTransition.Error()
		}
	}
	NewResponse().Status(status).JSON(resp).Write(w)
}

type storeKey struct{}

// requireSession resolves the bearer token to the caller's finance store.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.tokens.FromRequest(r)
		if err != nil {
			UnauthorizedError(err.Error()).Write(w)
			return
		}
		st, err := s.sessions.store(r.Context(), userID)
		if err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Loading user data failed",
				log.FieldUserID, userID, log.FieldError, err)
		}
		ctx := context.WithValue(r.Context(), storeKey{}, st)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func storeFrom(ctx context.Context) *finance.Store {
	st, _ := ctx.Value(storeKey{}).(*finance.Store)
	return st
}
