package ceremony

import (
	"github.com/zkceremony/coordinator/log"
	"github.com/zkceremony/coordinator/store"
	"github.com/zkceremony/coordinator/types"
)

// Refresher reacts to newly created contribution documents, attaching the
// document reference to the participant's matching partial record and
// advancing the participant's status.
type Refresher struct {
	store *store.Store
}

// NewRefresher builds a Refresher wired to s. Callers must register its
// OnContributionCreate method with s themselves.
func NewRefresher(s *store.Store) *Refresher {
	return &Refresher{store: s}
}

// OnContributionCreate is the trigger entry point, suitable for
// registering with store.Store.OnContributionCreate.
func (r *Refresher) OnContributionCreate(doc *types.Contribution) {
	if err := r.refresh(doc); err != nil {
		log.Errorw("refresher: handling contribution create failed", "error", err, "ceremonyId", doc.CeremonyID, "circuitId", doc.CircuitID, "contributionId", doc.ID)
	}
}

func (r *Refresher) refresh(doc *types.Contribution) error {
	return r.store.Atomic(func(b *store.Batch) error {
		p, err := b.GetParticipant(doc.CeremonyID, doc.ParticipantID)
		if err != nil {
			return notFoundErrorf("refresher: loading participant %s: %w", doc.ParticipantID, err)
		}

		idx, err := p.PendingContributionIndex()
		if err != nil {
			return &PreconditionError{Err: err}
		}
		p.Contributions[idx].Doc = doc.ID

		if p.Status != types.StatusFinalizing {
			circuits, err := r.store.ListCircuits(doc.CeremonyID)
			if err != nil {
				return transientStoreErrorf("refresher: listing circuits: %w", err)
			}
			if p.ContributionProgress+1 > len(circuits) {
				p.Status = types.StatusDone
			} else {
				p.Status = types.StatusContributed
			}
			p.ContributionStep = types.StepCompleted
			// Clear the just-completed attempt's temporary timing data; the
			// permanent record of it lives in the contributions entry
			// updated above.
			p.ContributionStartedAt = 0
			p.VerificationStartedAt = 0
		}

		b.PutParticipant(p)
		return nil
	})
}
