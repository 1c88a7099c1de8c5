package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zkceremony/coordinator/store"
)

// getCeremony returns a single ceremony document, grounded on the
// teacher's own GET /processes/{processId} read handler.
func (a *API) getCeremony(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, CeremonyURLParam)
	c, err := a.store.GetCeremony(id)
	if err != nil {
		if err == store.ErrNotFound {
			ErrCeremonyNotFound.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, c)
}

// listCircuits returns every circuit belonging to a ceremony.
func (a *API) listCircuits(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, CeremonyURLParam)
	circuits, err := a.store.ListCircuits(id)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, circuits)
}
