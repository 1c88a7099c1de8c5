package api

import (
	"net/http"

	"github.com/zkceremony/coordinator/ceremony"
	"github.com/zkceremony/coordinator/metrics"
)

// finalizeCircuitBody is the JSON request body for FinalizeCircuitEndpoint.
type finalizeCircuitBody struct {
	CeremonyID string `json:"ceremonyId"`
	CircuitID  string `json:"circuitId"`
	BucketName string `json:"bucketName"`
	Beacon     string `json:"beacon"`
}

// finalizeCircuit implements the finalizeCircuit RPC (spec.md §6): caller
// must be coordinator.
func (a *API) finalizeCircuit(w http.ResponseWriter, r *http.Request) {
	var body finalizeCircuitBody
	if !httpReadJSON(w, r, &body) {
		return
	}
	if body.CeremonyID == "" || body.CircuitID == "" || body.BucketName == "" || body.Beacon == "" {
		ErrMissingInput.Write(w)
		return
	}

	err := a.finalizer.FinalizeCircuit(r.Context(), ceremony.FinalizeCircuitRequest{
		CeremonyID: body.CeremonyID,
		CircuitID:  body.CircuitID,
		BucketName: body.BucketName,
		Beacon:     body.Beacon,
	})
	if err != nil {
		mapCeremonyError(err).Write(w)
		return
	}
	metrics.FinalizationsTotal.WithLabelValues(body.CircuitID).Inc()
	httpWriteOK(w)
}
