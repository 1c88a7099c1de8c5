package ceremony

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/zkceremony/coordinator/blobstore"
	"github.com/zkceremony/coordinator/config"
	"github.com/zkceremony/coordinator/types"
	"github.com/zkceremony/coordinator/workerpool"
)

func testVerSoftware() config.VerificationSoftwareConfig {
	return config.VerificationSoftwareConfig{Name: "snarkjs", Version: "1.0.0", CommitHash: "abc123"}
}

func testWorkerCfg() config.WorkerConfig {
	return config.WorkerConfig{SettleInterval: 0, TranscriptSettle: 0, ProbeTimeout: 0, CommandPollTimeout: 0}
}

func seedContributingParticipant(c *qt.C, s interface {
	PutParticipant(*types.Participant) error
}, userID string, computationTime int64) {
	c.Assert(s.PutParticipant(&types.Participant{
		CeremonyID:            "cer1",
		UserID:                userID,
		Status:                types.StatusContributing,
		ContributionStep:      types.StepVerifying,
		ContributionProgress:  1,
		ContributionStartedAt: 1000,
		Contributions: []types.ParticipantContribution{
			{Hash: "deadbeef", ComputationTime: computationTime},
		},
	}), qt.IsNil)
}

// Scenario 1: a valid contribution advances counters, records timings, and
// creates a Contribution document with the expected zkeyIndex.
func TestVerifierValidContribution(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(t)
	c.Assert(s.PutCeremony(&types.Ceremony{ID: "cer1", State: types.CeremonyOpened, Prefix: "cer"}), qt.IsNil)
	c.Assert(s.PutCircuit(&types.Circuit{CeremonyID: "cer1", ID: "circ1", Prefix: "circ1", InstanceID: "w1"}), qt.IsNil)
	seedContributingParticipant(c, s, "u1", 42)

	blobs := blobstore.NewMem()
	blobs.Put("bucket", blobstore.ZkeyPath("circ1", "00001"), []byte("zkey"))
	workers := workerpool.NewFake()

	v := NewVerifier(s, blobs, workers, s.Clock(), testVerSoftware(), testWorkerCfg())
	err := v.VerifyContribution(context.Background(), VerifyContributionRequest{
		CeremonyID: "cer1", CircuitID: "circ1", Identifier: "u1", BucketName: "bucket",
	})
	c.Assert(err, qt.IsNil)

	circuit, err := s.GetCircuit("cer1", "circ1")
	c.Assert(err, qt.IsNil)
	c.Assert(circuit.WaitingQueue.CompletedContributions, qt.Equals, 1)
	c.Assert(circuit.AvgTimings.ContributionComputation, qt.Equals, int64(42))

	contributions, err := s.ListContributions("cer1", "circ1")
	c.Assert(err, qt.IsNil)
	c.Assert(contributions, qt.HasLen, 1)
	c.Assert(contributions[0].ZkeyIndex, qt.Equals, "00001")
	c.Assert(contributions[0].Valid, qt.IsTrue)
}

// Scenario 3: invalid worker output deletes the candidate zkey, records an
// invalid contribution, and advances failedContributions but not timings.
func TestVerifierInvalidContribution(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(t)
	c.Assert(s.PutCeremony(&types.Ceremony{ID: "cer1", State: types.CeremonyOpened, Prefix: "cer"}), qt.IsNil)
	c.Assert(s.PutCircuit(&types.Circuit{CeremonyID: "cer1", ID: "circ1", Prefix: "circ1", InstanceID: "w1"}), qt.IsNil)
	seedContributingParticipant(c, s, "u1", 42)

	blobs := blobstore.NewMem()
	blobs.Put("bucket", blobstore.ZkeyPath("circ1", "00001"), []byte("zkey"))
	workers := workerpool.NewFake()
	workers.SetOutput("w1", "ZKey Invalid!")

	v := NewVerifier(s, blobs, workers, s.Clock(), testVerSoftware(), testWorkerCfg())
	err := v.VerifyContribution(context.Background(), VerifyContributionRequest{
		CeremonyID: "cer1", CircuitID: "circ1", Identifier: "u1", BucketName: "bucket",
	})
	c.Assert(err, qt.IsNil)

	circuit, err := s.GetCircuit("cer1", "circ1")
	c.Assert(err, qt.IsNil)
	c.Assert(circuit.WaitingQueue.FailedContributions, qt.Equals, 1)
	c.Assert(circuit.WaitingQueue.CompletedContributions, qt.Equals, 0)
	c.Assert(circuit.AvgTimings.ContributionComputation, qt.Equals, int64(0))

	c.Assert(blobs.Has("bucket", blobstore.ZkeyPath("circ1", "00001")), qt.IsFalse)

	contributions, err := s.ListContributions("cer1", "circ1")
	c.Assert(err, qt.IsNil)
	c.Assert(contributions, qt.HasLen, 1)
	c.Assert(contributions[0].Valid, qt.IsFalse)
}

// Scenario 5 (finalization half): the coordinator verifying with the
// ceremony CLOSED uses the "final" token and does not touch counters.
func TestVerifierFinalizationDoesNotAdvanceCounters(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(t)
	c.Assert(s.PutCeremony(&types.Ceremony{ID: "cer1", State: types.CeremonyClosed, Prefix: "cer"}), qt.IsNil)
	c.Assert(s.PutCircuit(&types.Circuit{
		CeremonyID: "cer1", ID: "circ1", Prefix: "circ1", InstanceID: "w1",
		WaitingQueue: types.WaitingQueue{CompletedContributions: 3},
	}), qt.IsNil)
	c.Assert(s.PutParticipant(&types.Participant{
		CeremonyID: "cer1", UserID: "coord1", Status: types.StatusDone,
		Contributions: []types.ParticipantContribution{{Hash: "h", ComputationTime: 10}},
	}), qt.IsNil)

	blobs := blobstore.NewMem()
	blobs.Put("bucket", blobstore.ZkeyPath("circ1", "final"), []byte("zkey"))
	workers := workerpool.NewFake()

	v := NewVerifier(s, blobs, workers, s.Clock(), testVerSoftware(), testWorkerCfg())
	err := v.VerifyContribution(context.Background(), VerifyContributionRequest{
		CeremonyID: "cer1", CircuitID: "circ1", Identifier: "coord1", BucketName: "bucket", IsCoordinator: true,
	})
	c.Assert(err, qt.IsNil)

	circuit, err := s.GetCircuit("cer1", "circ1")
	c.Assert(err, qt.IsNil)
	c.Assert(circuit.WaitingQueue.CompletedContributions, qt.Equals, 3)

	final, err := s.GetFinalContribution("cer1", "circ1")
	c.Assert(err, qt.IsNil)
	c.Assert(final.Valid, qt.IsTrue)
	c.Assert(final.ZkeyIndex, qt.Equals, types.FinalZkeyToken)
}
