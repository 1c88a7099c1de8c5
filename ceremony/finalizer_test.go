package ceremony

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/dchest/blake512"
	qt "github.com/frankban/quicktest"

	"github.com/zkceremony/coordinator/blobstore"
	"github.com/zkceremony/coordinator/types"
)

// Scenario 5 (finalization second half): finalizeCircuit binds beacon and
// artifact hashes into the final contribution document.
func TestFinalizeCircuit(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(t)
	c.Assert(s.PutCircuit(&types.Circuit{CeremonyID: "cer1", ID: "circ1", Prefix: "circ1"}), qt.IsNil)
	_, err := s.CreateContribution(&types.Contribution{
		CeremonyID: "cer1", CircuitID: "circ1", ParticipantID: "coord1", ZkeyIndex: types.FinalZkeyToken, Valid: true,
	})
	c.Assert(err, qt.IsNil)

	blobs := blobstore.NewMem()
	vkeyData := []byte(`{"vkey":"data"}`)
	contractData := []byte("pragma solidity ^0.8.0;")
	blobs.Put("bucket", blobstore.VerificationKeyPath("circ1"), vkeyData)
	blobs.Put("bucket", blobstore.VerifierContractPath("circ1"), contractData)

	f := NewFinalizer(s, blobs)
	err = f.FinalizeCircuit(context.Background(), FinalizeCircuitRequest{
		CeremonyID: "cer1", CircuitID: "circ1", BucketName: "bucket", Beacon: "beacon-xyz",
	})
	c.Assert(err, qt.IsNil)

	final, err := s.GetFinalContribution("cer1", "circ1")
	c.Assert(err, qt.IsNil)

	vkeyHasher, contractHasher := blake512.New(), blake512.New()
	vkeyHasher.Write(vkeyData)
	contractHasher.Write(contractData)
	c.Assert(final.Files.VerificationKeyHash, qt.Equals, hex.EncodeToString(vkeyHasher.Sum(nil)))
	c.Assert(final.Files.VerifierContractHash, qt.Equals, hex.EncodeToString(contractHasher.Sum(nil)))

	wantBeaconHash := sha256.Sum256([]byte("beacon-xyz"))
	c.Assert(final.Beacon, qt.Not(qt.IsNil))
	c.Assert(final.Beacon.Value, qt.Equals, "beacon-xyz")
	c.Assert(final.Beacon.Hash, qt.Equals, hex.EncodeToString(wantBeaconHash[:]))
}
