package ceremony

import (
	"github.com/zkceremony/coordinator/log"
	"github.com/zkceremony/coordinator/store"
	"github.com/zkceremony/coordinator/types"
)

// Coordinator reacts to participant document updates, moving contributors
// through each circuit's waiting queue.
type Coordinator struct {
	store *store.Store
}

// NewCoordinator builds a Coordinator wired to s. Callers must register
// its OnParticipantUpdate method with s themselves, mirroring how the
// teacher wires sequencer processors into storage hooks explicitly at
// startup rather than inside the constructor.
func NewCoordinator(s *store.Store) *Coordinator {
	return &Coordinator{store: s}
}

// updateClass is the classification of a participant document update
// derived from its before/after images.
type updateClass int

const (
	classIgnored updateClass = iota
	classReadyForFirst
	classReadyForNext
	classResumingAfterTimeout
	classJustCompletedContribution
	classJustCompletedEverything
)

func classify(before, after *types.Participant) updateClass {
	beforeProgress, afterProgress := 0, 0
	if before != nil {
		beforeProgress = before.ContributionProgress
	}
	if after != nil {
		afterProgress = after.ContributionProgress
	}

	switch {
	case after != nil && after.Status == types.StatusReady && beforeProgress == 0:
		return classReadyForFirst
	case after != nil && after.Status == types.StatusReady && beforeProgress != 0 && afterProgress == beforeProgress+1:
		return classReadyForNext
	case after != nil && after.Status == types.StatusReady && afterProgress == beforeProgress:
		return classResumingAfterTimeout
	case before != nil && after != nil &&
		before.Status == types.StatusContributing && before.ContributionStep == types.StepVerifying &&
		after.Status == types.StatusContributed && after.ContributionStep == types.StepCompleted &&
		afterProgress == beforeProgress:
		return classJustCompletedContribution
	case after != nil && after.Status == types.StatusDone && (before == nil || before.Status != types.StatusDone):
		return classJustCompletedEverything
	default:
		return classIgnored
	}
}

// OnParticipantUpdate is the trigger entry point, suitable for registering
// with store.Store.OnParticipantUpdate.
func (co *Coordinator) OnParticipantUpdate(before, after *types.Participant) {
	if after == nil {
		return
	}
	class := classify(before, after)
	if class == classIgnored {
		return
	}

	var err error
	switch class {
	case classReadyForFirst, classReadyForNext, classResumingAfterTimeout:
		// Circuit progress is 1-indexed (I3); the circuit under
		// coordination is after.progress - 1.
		err = co.coordinateSingleParticipant(after.CeremonyID, after.ContributionProgress-1, after.UserID)
	case classJustCompletedContribution, classJustCompletedEverything:
		err = co.coordinateMultiParticipant(before.CeremonyID, before.ContributionProgress-1, before.UserID)
	}
	if err != nil {
		log.Errorw("coordinator: handling participant update failed", "error", err, "ceremonyId", after.CeremonyID, "userId", after.UserID, "class", int(class))
	}
}

func circuitBySequencePosition(circuits []*types.Circuit, position int) *types.Circuit {
	for _, c := range circuits {
		if c.SequencePosition == position {
			return c
		}
	}
	return nil
}

// coordinateSingleParticipant implements spec.md §4.1's single-participant
// coordination on the circuit at sequencePosition, for participant userID.
func (co *Coordinator) coordinateSingleParticipant(ceremonyID string, sequencePosition int, userID string) error {
	return co.store.Atomic(func(b *store.Batch) error {
		circuits, err := co.store.ListCircuits(ceremonyID)
		if err != nil {
			return transientStoreErrorf("coordinator: listing circuits: %w", err)
		}
		circuit := circuitBySequencePosition(circuits, sequencePosition)
		if circuit == nil {
			return notFoundErrorf("coordinator: no circuit at sequencePosition %d in ceremony %s", sequencePosition, ceremonyID)
		}
		circuit, err = b.GetCircuit(ceremonyID, circuit.ID)
		if err != nil {
			return notFoundErrorf("coordinator: loading circuit %s: %w", circuit.ID, err)
		}
		p, err := b.GetParticipant(ceremonyID, userID)
		if err != nil {
			return notFoundErrorf("coordinator: loading participant %s: %w", userID, err)
		}

		now := b.Now()
		q := &circuit.WaitingQueue
		switch {
		case q.CurrentContributor == "" && len(q.Contributors) == 0:
			// Scenario A.
			q.CurrentContributor = userID
			q.Contributors = append(q.Contributors, userID)
			p.Status = types.StatusContributing
			p.ContributionStep = types.StepDownloading
			p.ContributionStartedAt = now
		case q.CurrentContributor == userID:
			// Scenario A'.
			p.Status = types.StatusContributing
			p.ContributionStep = types.StepDownloading
		default:
			// Scenario B.
			q.Contributors = append(q.Contributors, userID)
			p.Status = types.StatusWaiting
			p.ContributionStartedAt = 0
		}

		b.PutCircuit(circuit)
		b.PutParticipant(p)
		return nil
	})
}

// coordinateMultiParticipant implements spec.md §4.1's multi-participant
// coordination on the circuit at sequencePosition, once userID (the head
// of the queue) has just finished with it.
func (co *Coordinator) coordinateMultiParticipant(ceremonyID string, sequencePosition int, userID string) error {
	return co.store.Atomic(func(b *store.Batch) error {
		circuits, err := co.store.ListCircuits(ceremonyID)
		if err != nil {
			return transientStoreErrorf("coordinator: listing circuits: %w", err)
		}
		circuit := circuitBySequencePosition(circuits, sequencePosition)
		if circuit == nil {
			return notFoundErrorf("coordinator: no circuit at sequencePosition %d in ceremony %s", sequencePosition, ceremonyID)
		}
		circuit, err = b.GetCircuit(ceremonyID, circuit.ID)
		if err != nil {
			return notFoundErrorf("coordinator: loading circuit %s: %w", circuit.ID, err)
		}

		q := &circuit.WaitingQueue
		if len(q.Contributors) == 0 || q.Contributors[0] != userID {
			return preconditionErrorf("coordinator: participant %s is not head of queue for circuit %s", userID, circuit.ID)
		}
		q.Contributors = q.Contributors[1:]

		if len(q.Contributors) > 0 {
			head := q.Contributors[0]
			q.CurrentContributor = head
			hp, err := b.GetParticipant(ceremonyID, head)
			if err != nil {
				return notFoundErrorf("coordinator: loading next contributor %s: %w", head, err)
			}
			hp.Status = types.StatusContributing
			hp.ContributionStep = types.StepDownloading
			hp.ContributionStartedAt = b.Now()
			b.PutParticipant(hp)
		} else {
			q.CurrentContributor = ""
		}

		b.PutCircuit(circuit)
		return nil
	})
}
