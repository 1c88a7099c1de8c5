package ceremony

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/zkceremony/coordinator/types"
)

func TestRefresherAttachesDocAndCompletesContribution(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(t)
	c.Assert(s.PutCircuit(&types.Circuit{CeremonyID: "cer1", ID: "circ1", SequencePosition: 0}), qt.IsNil)
	c.Assert(s.PutParticipant(&types.Participant{
		CeremonyID:           "cer1",
		UserID:               "u1",
		Status:               types.StatusContributing,
		ContributionStep:     types.StepVerifying,
		ContributionProgress: 1,
		Contributions: []types.ParticipantContribution{
			{Hash: "h1", ComputationTime: 10},
		},
	}), qt.IsNil)

	r := NewRefresher(s)
	id, err := s.CreateContribution(&types.Contribution{CeremonyID: "cer1", CircuitID: "circ1", ParticipantID: "u1", ZkeyIndex: "00001", Valid: true})
	c.Assert(err, qt.IsNil)
	r.OnContributionCreate(mustGetContribution(c, s, "cer1", "circ1", id))

	p, err := s.GetParticipant("cer1", "u1")
	c.Assert(err, qt.IsNil)
	c.Assert(p.Contributions[0].Doc, qt.Equals, id)
	c.Assert(p.Status, qt.Equals, types.StatusDone)
	c.Assert(p.ContributionStep, qt.Equals, types.StepCompleted)
}

func TestRefresherContributedWhenMoreCircuitsRemain(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(t)
	c.Assert(s.PutCircuit(&types.Circuit{CeremonyID: "cer1", ID: "circ1", SequencePosition: 0}), qt.IsNil)
	c.Assert(s.PutCircuit(&types.Circuit{CeremonyID: "cer1", ID: "circ2", SequencePosition: 1}), qt.IsNil)
	c.Assert(s.PutParticipant(&types.Participant{
		CeremonyID:           "cer1",
		UserID:               "u1",
		Status:               types.StatusContributing,
		ContributionProgress: 1,
		Contributions: []types.ParticipantContribution{
			{Hash: "h1", ComputationTime: 10},
		},
	}), qt.IsNil)

	r := NewRefresher(s)
	id, err := s.CreateContribution(&types.Contribution{CeremonyID: "cer1", CircuitID: "circ1", ParticipantID: "u1", ZkeyIndex: "00001", Valid: true})
	c.Assert(err, qt.IsNil)
	r.OnContributionCreate(mustGetContribution(c, s, "cer1", "circ1", id))

	p, err := s.GetParticipant("cer1", "u1")
	c.Assert(err, qt.IsNil)
	c.Assert(p.Status, qt.Equals, types.StatusContributed)
}

func TestRefresherLeavesFinalizingParticipantsAlone(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(t)
	c.Assert(s.PutCircuit(&types.Circuit{CeremonyID: "cer1", ID: "circ1", SequencePosition: 0}), qt.IsNil)
	c.Assert(s.PutParticipant(&types.Participant{
		CeremonyID: "cer1",
		UserID:     "coord1",
		Status:     types.StatusFinalizing,
		Contributions: []types.ParticipantContribution{
			{Hash: "h1", ComputationTime: 10},
		},
	}), qt.IsNil)

	r := NewRefresher(s)
	id, err := s.CreateContribution(&types.Contribution{CeremonyID: "cer1", CircuitID: "circ1", ParticipantID: "coord1", ZkeyIndex: types.FinalZkeyToken, Valid: true})
	c.Assert(err, qt.IsNil)
	r.OnContributionCreate(mustGetContribution(c, s, "cer1", "circ1", id))

	p, err := s.GetParticipant("cer1", "coord1")
	c.Assert(err, qt.IsNil)
	c.Assert(p.Status, qt.Equals, types.StatusFinalizing)
	c.Assert(p.Contributions[0].Doc, qt.Equals, id)
}

func mustGetContribution(c *qt.C, s interface {
	GetContribution(ceremonyID, circuitID, id string) (*types.Contribution, error)
}, ceremonyID, circuitID, id string) *types.Contribution {
	doc, err := s.GetContribution(ceremonyID, circuitID, id)
	c.Assert(err, qt.IsNil)
	return doc
}
