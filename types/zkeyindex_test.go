package types

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestFormatZkeyIndexRoundTrip(t *testing.T) {
	c := qt.New(t)

	for _, n := range []int{1, 2, 42, 9999, 100000} {
		s := FormatZkeyIndex(n)
		if n < 100000 {
			c.Assert(len(s), qt.Equals, GenesisIndexLength)
		}
		parsed, err := ParseZkeyIndex(s)
		if n < 100000 {
			c.Assert(err, qt.IsNil)
			c.Assert(parsed, qt.Equals, n)
		}
	}
}

func TestFormatZkeyIndexFirstAfterGenesis(t *testing.T) {
	c := qt.New(t)
	c.Assert(FormatZkeyIndex(1), qt.Equals, "00001")
}

func TestPendingContributionIndex(t *testing.T) {
	c := qt.New(t)

	p := &Participant{Contributions: []ParticipantContribution{
		{Hash: "abc", ComputationTime: 100, Doc: "doc1"},
		{Hash: "def", ComputationTime: 200},
	}}
	idx, err := p.PendingContributionIndex()
	c.Assert(err, qt.IsNil)
	c.Assert(idx, qt.Equals, 1)

	p.Contributions = append(p.Contributions, ParticipantContribution{Hash: "ghi", ComputationTime: 300})
	_, err = p.PendingContributionIndex()
	c.Assert(err, qt.Equals, ErrAmbiguousPendingContribution)

	p.Contributions = []ParticipantContribution{{Hash: "abc", ComputationTime: 100, Doc: "doc1"}}
	_, err = p.PendingContributionIndex()
	c.Assert(err, qt.Equals, ErrNoPendingContribution)
}
