package store

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/zkceremony/coordinator/clock"
	"github.com/zkceremony/coordinator/types"
)

func newTestStore(t *testing.T) *Store {
	return New(metadb.NewTest(t), clock.NewFixed(1000))
}

func TestCeremonyRoundTrip(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(t)

	ceremony := &types.Ceremony{ID: "cer1", State: types.CeremonyOpened, Prefix: "test", Title: "Test Ceremony"}
	c.Assert(s.PutCeremony(ceremony), qt.IsNil)

	got, err := s.GetCeremony("cer1")
	c.Assert(err, qt.IsNil)
	c.Assert(got.Title, qt.Equals, "Test Ceremony")

	_, err = s.GetCeremony("missing")
	c.Assert(err, qt.Equals, ErrNotFound)
}

func TestPutParticipantFiresHookWithBeforeAfter(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(t)

	var gotBefore, gotAfter *types.Participant
	s.OnParticipantUpdate(func(before, after *types.Participant) {
		gotBefore, gotAfter = before, after
	})

	p1 := &types.Participant{CeremonyID: "cer1", UserID: "u1", Status: types.StatusWaiting}
	c.Assert(s.PutParticipant(p1), qt.IsNil)
	c.Assert(gotBefore, qt.IsNil)
	c.Assert(gotAfter.Status, qt.Equals, types.StatusWaiting)

	p2 := &types.Participant{CeremonyID: "cer1", UserID: "u1", Status: types.StatusReady}
	c.Assert(s.PutParticipant(p2), qt.IsNil)
	c.Assert(gotBefore.Status, qt.Equals, types.StatusWaiting)
	c.Assert(gotAfter.Status, qt.Equals, types.StatusReady)
}

func TestAtomicRollsBackOnError(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(t)

	hookCalls := 0
	s.OnParticipantUpdate(func(before, after *types.Participant) { hookCalls++ })

	err := s.Atomic(func(b *Batch) error {
		b.PutParticipant(&types.Participant{CeremonyID: "cer1", UserID: "u1", Status: types.StatusReady})
		return errAtomicTest
	})
	c.Assert(err, qt.Equals, errAtomicTest)
	c.Assert(hookCalls, qt.Equals, 0)

	_, err = s.GetParticipant("cer1", "u1")
	c.Assert(err, qt.Equals, ErrNotFound)
}

func TestAtomicCommitsAndFiresHooksInOrder(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(t)

	var contributionCreated *types.Contribution
	s.OnContributionCreate(func(doc *types.Contribution) { contributionCreated = doc })

	c.Assert(s.PutCircuit(&types.Circuit{CeremonyID: "cer1", ID: "c1"}), qt.IsNil)

	err := s.Atomic(func(b *Batch) error {
		circuit, err := b.GetCircuit("cer1", "c1")
		c.Assert(err, qt.IsNil)
		circuit.WaitingQueue.CompletedContributions++
		b.PutCircuit(circuit)

		b.CreateContribution(&types.Contribution{
			CeremonyID: "cer1", CircuitID: "c1", ParticipantID: "u1",
			ZkeyIndex: types.FormatZkeyIndex(1), Valid: true,
		})
		return nil
	})
	c.Assert(err, qt.IsNil)
	c.Assert(contributionCreated, qt.Not(qt.IsNil))
	c.Assert(contributionCreated.ZkeyIndex, qt.Equals, "00001")

	circuit, err := s.GetCircuit("cer1", "c1")
	c.Assert(err, qt.IsNil)
	c.Assert(circuit.WaitingQueue.CompletedContributions, qt.Equals, 1)
}

type testErr string

func (e testErr) Error() string { return string(e) }

var errAtomicTest = testErr("boom")
