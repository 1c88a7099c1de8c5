package api

import (
	"net/http"
	"time"

	"github.com/zkceremony/coordinator/ceremony"
	"github.com/zkceremony/coordinator/metrics"
)

// verifyContributionBody is the JSON request body for VerifyContributionEndpoint.
type verifyContributionBody struct {
	CeremonyID string `json:"ceremonyId"`
	CircuitID  string `json:"circuitId"`
	BucketName string `json:"bucketName"`
}

// verifyContribution implements the verifyContribution RPC (spec.md §6):
// auth: bearer token with role claim participant or coordinator.
func (a *API) verifyContribution(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		ErrUnauthorized.Write(w)
		return
	}

	var body verifyContributionBody
	if !httpReadJSON(w, r, &body) {
		return
	}
	if body.CeremonyID == "" || body.CircuitID == "" || body.BucketName == "" {
		ErrMissingInput.Write(w)
		return
	}

	timer := time.Now()
	err := a.verifier.VerifyContribution(r.Context(), ceremony.VerifyContributionRequest{
		CeremonyID:    body.CeremonyID,
		CircuitID:     body.CircuitID,
		Identifier:    p.UserID,
		BucketName:    body.BucketName,
		IsCoordinator: p.Role == RoleCoordinator,
	})
	metrics.VerificationDuration.WithLabelValues(body.CircuitID).Observe(time.Since(timer).Seconds())
	if err != nil {
		mapCeremonyError(err).Write(w)
		return
	}
	httpWriteOK(w)
}
