package ceremony

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/zkceremony/coordinator/clock"
	"github.com/zkceremony/coordinator/store"
	"github.com/zkceremony/coordinator/types"
)

func newTestStore(t *testing.T) *store.Store {
	return store.New(metadb.NewTest(t), clock.NewFixed(1000))
}

func seedCircuit(c *qt.C, s *store.Store, ceremonyID, circuitID string, position int) {
	c.Assert(s.PutCircuit(&types.Circuit{
		CeremonyID:       ceremonyID,
		ID:               circuitID,
		SequencePosition: position,
		Prefix:           circuitID,
	}), qt.IsNil)
}

// Scenario 1 (solo happy path, queue setup half): a participant reaching
// READY with progress 0 on an empty queue becomes the current contributor.
func TestCoordinatorScenarioA_EmptyQueue(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(t)
	seedCircuit(c, s, "cer1", "circ1", 0)
	co := NewCoordinator(s)

	before := &types.Participant{CeremonyID: "cer1", UserID: "u1", Status: types.StatusWaiting, ContributionProgress: 0}
	after := &types.Participant{CeremonyID: "cer1", UserID: "u1", Status: types.StatusReady, ContributionProgress: 1}
	// The trigger fires once the after image has been stored.
	c.Assert(s.PutParticipant(after), qt.IsNil)
	co.OnParticipantUpdate(before, after)

	circuit, err := s.GetCircuit("cer1", "circ1")
	c.Assert(err, qt.IsNil)
	c.Assert(circuit.WaitingQueue.CurrentContributor, qt.Equals, "u1")
	c.Assert(circuit.WaitingQueue.Contributors, qt.DeepEquals, []string{"u1"})

	p, err := s.GetParticipant("cer1", "u1")
	c.Assert(err, qt.IsNil)
	c.Assert(p.Status, qt.Equals, types.StatusContributing)
	c.Assert(p.ContributionStep, qt.Equals, types.StepDownloading)
	c.Assert(p.ContributionStartedAt, qt.Not(qt.Equals), int64(0))
}

// Scenario 2 (contention): the second READY participant on a busy circuit
// waits behind the first.
func TestCoordinatorScenarioB_SecondParticipantWaits(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(t)
	seedCircuit(c, s, "cer1", "circ1", 0)
	co := NewCoordinator(s)

	aReady := &types.Participant{CeremonyID: "cer1", UserID: "a", Status: types.StatusReady, ContributionProgress: 1}
	c.Assert(s.PutParticipant(aReady), qt.IsNil)
	co.OnParticipantUpdate(
		&types.Participant{CeremonyID: "cer1", UserID: "a", Status: types.StatusWaiting},
		aReady,
	)
	bReady := &types.Participant{CeremonyID: "cer1", UserID: "b", Status: types.StatusReady, ContributionProgress: 1}
	c.Assert(s.PutParticipant(bReady), qt.IsNil)
	co.OnParticipantUpdate(
		&types.Participant{CeremonyID: "cer1", UserID: "b", Status: types.StatusWaiting},
		bReady,
	)

	circuit, err := s.GetCircuit("cer1", "circ1")
	c.Assert(err, qt.IsNil)
	c.Assert(circuit.WaitingQueue.CurrentContributor, qt.Equals, "a")
	c.Assert(circuit.WaitingQueue.Contributors, qt.DeepEquals, []string{"a", "b"})

	pb, err := s.GetParticipant("cer1", "b")
	c.Assert(err, qt.IsNil)
	c.Assert(pb.Status, qt.Equals, types.StatusWaiting)
	c.Assert(pb.ContributionStartedAt, qt.Equals, int64(0))

	// Multi-participant coordination: a finishes, b is promoted.
	co.OnParticipantUpdate(
		&types.Participant{CeremonyID: "cer1", UserID: "a", Status: types.StatusContributing, ContributionStep: types.StepVerifying, ContributionProgress: 1},
		&types.Participant{CeremonyID: "cer1", UserID: "a", Status: types.StatusContributed, ContributionStep: types.StepCompleted, ContributionProgress: 1},
	)

	circuit, err = s.GetCircuit("cer1", "circ1")
	c.Assert(err, qt.IsNil)
	c.Assert(circuit.WaitingQueue.CurrentContributor, qt.Equals, "b")
	c.Assert(circuit.WaitingQueue.Contributors, qt.DeepEquals, []string{"b"})

	pb, err = s.GetParticipant("cer1", "b")
	c.Assert(err, qt.IsNil)
	c.Assert(pb.Status, qt.Equals, types.StatusContributing)
	c.Assert(pb.ContributionStep, qt.Equals, types.StepDownloading)
}

// Scenario 4 (timeout resumption): a participant resuming with unchanged
// progress goes through Scenario A' and keeps its contributionStartedAt.
func TestCoordinatorScenarioAPrime_ResumeAfterTimeout(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(t)
	seedCircuit(c, s, "cer1", "circ1", 1)
	c.Assert(s.PutCircuit(&types.Circuit{
		CeremonyID: "cer1", ID: "circ1", SequencePosition: 1, Prefix: "circ1",
		WaitingQueue: types.WaitingQueue{Contributors: []string{"c"}, CurrentContributor: "c"},
	}), qt.IsNil)
	co := NewCoordinator(s)

	before := &types.Participant{CeremonyID: "cer1", UserID: "c", Status: types.StatusTimedOut, ContributionProgress: 2, ContributionStartedAt: 500}
	after := &types.Participant{CeremonyID: "cer1", UserID: "c", Status: types.StatusReady, ContributionProgress: 2, ContributionStartedAt: 500}
	c.Assert(s.PutParticipant(after), qt.IsNil)
	co.OnParticipantUpdate(before, after)

	p, err := s.GetParticipant("cer1", "c")
	c.Assert(err, qt.IsNil)
	c.Assert(p.Status, qt.Equals, types.StatusContributing)
	c.Assert(p.ContributionStep, qt.Equals, types.StepDownloading)
	c.Assert(p.ContributionStartedAt, qt.Equals, int64(500))
}

// P7: re-invoking the coordinator with the same before/after pair produces
// no net change to the store.
func TestCoordinatorIdempotent(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(t)
	seedCircuit(c, s, "cer1", "circ1", 0)
	co := NewCoordinator(s)

	before := &types.Participant{CeremonyID: "cer1", UserID: "u1", Status: types.StatusWaiting}
	after := &types.Participant{CeremonyID: "cer1", UserID: "u1", Status: types.StatusReady, ContributionProgress: 1}
	c.Assert(s.PutParticipant(after), qt.IsNil)

	co.OnParticipantUpdate(before, after)
	circuit1, err := s.GetCircuit("cer1", "circ1")
	c.Assert(err, qt.IsNil)

	co.OnParticipantUpdate(before, after)
	circuit2, err := s.GetCircuit("cer1", "circ1")
	c.Assert(err, qt.IsNil)

	c.Assert(circuit2.WaitingQueue, qt.DeepEquals, circuit1.WaitingQueue)
}
