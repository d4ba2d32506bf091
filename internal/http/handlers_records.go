package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"nomadfinance/internal/core"
	"nomadfinance/internal/finance"
	"nomadfinance/internal/log"
	"nomadfinance/internal/remote"
)

type createdResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(storeFrom(r.Context()).Snapshot()).Write(w)
}

// handleReload fetches the user's collections again and returns the fresh
// snapshot.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	st := storeFrom(r.Context())
	if err := st.Reload(r.Context()); err != nil {
		if errors.Is(err, finance.ErrNoActiveUser) {
			UnauthorizedError(err.Error()).Write(w)
			return
		}
		log.LogError(r.Context(), log.FromContext(r.Context()), "Reload failed", err, log.ComponentFinance, log.OpLoad, nil)
		ErrorResponse(http.StatusBadGateway, "could not load data").Write(w)
		return
	}
	NewResponse().JSON(st.Snapshot()).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	e, err := req.record()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if e.Date.IsZero() {
		e.Date = core.Today(s.now())
	}
	s.create(w, r, remote.CollectionExpenses, func(ctx context.Context, st *finance.Store) (string, error) {
		return st.AddExpense(ctx, e)
	})
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	i, err := req.record()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if i.Date.IsZero() {
		i.Date = core.Today(s.now())
	}
	s.create(w, r, remote.CollectionIncomes, func(ctx context.Context, st *finance.Store) (string, error) {
		return st.AddIncome(ctx, i)
	})
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	a, err := req.record()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	s.create(w, r, remote.CollectionAssets, func(ctx context.Context, st *finance.Store) (string, error) {
		return st.AddAsset(ctx, a)
	})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, remote.CollectionExpenses, (*finance.Store).DeleteExpense)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, remote.CollectionIncomes, (*finance.Store).DeleteIncome)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, remote.CollectionAssets, (*finance.Store).DeleteAsset)
}

// create answers 202 with the provisional ID: the record is visible in the
// snapshot right away and confirmed once the service stores it.
func (s *Server) create(w http.ResponseWriter, r *http.Request, collection string, add func(context.Context, *finance.Store) (string, error)) {
	id, err := add(r.Context(), storeFrom(r.Context()))
	switch {
	case errors.Is(err, finance.ErrNoActiveUser):
		UnauthorizedError(err.Error()).Write(w)
		return
	case err != nil:
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	atomic.AddInt64(&s.metrics.recordsCreated, 1)
	log.FromContext(r.Context()).DebugContext(r.Context(), "Record added",
		log.FieldCollection, collection, log.FieldLocalID, id)
	NewResponse().
		Status(http.StatusAccepted).
		JSON(createdResponse{ID: id, State: "pending"}).
		Write(w)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request, collection string, del func(*finance.Store, context.Context, string) error) {
	id := chi.URLParam(r, "id")
	err := del(storeFrom(r.Context()), r.Context(), id)
	switch {
	case errors.Is(err, finance.ErrNoActiveUser):
		UnauthorizedError(err.Error()).Write(w)
		return
	case errors.Is(err, finance.ErrUnknownRecord):
		NotFoundError(err.Error()).Write(w)
		return
	case err != nil:
		InternalServerError("could not delete record").Write(w)
		return
	}
	atomic.AddInt64(&s.metrics.recordsDeleted, 1)
	log.FromContext(r.Context()).DebugContext(r.Context(), "Record removed",
		log.FieldCollection, collection, log.FieldRecordID, id)
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var p core.SettingsPatch
	if err := decodeJSON(w, r, &p); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if p.IsEmpty() {
		BadRequestError("no settings to update").Write(w)
		return
	}
	settings, err := storeFrom(r.Context()).UpdateSettings(r.Context(), sanitizePatch(p))
	switch {
	case errors.Is(err, finance.ErrNoActiveUser):
		UnauthorizedError(err.Error()).Write(w)
		return
	case err != nil:
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	NewResponse().JSON(settings).Write(w)
}
