package ceremony

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dchest/blake512"

	"github.com/zkceremony/coordinator/blobstore"
	"github.com/zkceremony/coordinator/store"
	"github.com/zkceremony/coordinator/types"
)

// FinalizeCircuitRequest is the input to Finalizer.FinalizeCircuit.
type FinalizeCircuitRequest struct {
	CeremonyID string
	CircuitID  string
	BucketName string
	Beacon     string
}

// Finalizer implements spec.md §4.4: binds the ceremony-closing beacon and
// the hashes of the verification key and verifier contract into a
// circuit's final contribution document.
type Finalizer struct {
	store *store.Store
	blobs blobstore.BlobStore
}

// NewFinalizer builds a Finalizer.
func NewFinalizer(s *store.Store, blobs blobstore.BlobStore) *Finalizer {
	return &Finalizer{store: s, blobs: blobs}
}

// FinalizeCircuit implements the finalizeCircuit RPC. Caller authorization
// (coordinator role) is enforced by the api layer before this is called.
func (f *Finalizer) FinalizeCircuit(ctx context.Context, req FinalizeCircuitRequest) error {
	if req.CeremonyID == "" || req.CircuitID == "" || req.BucketName == "" || req.Beacon == "" {
		return inputErrorf("ceremony: finalizeCircuit requires ceremonyId, circuitId, bucketName, beacon")
	}

	circuit, err := f.store.GetCircuit(req.CeremonyID, req.CircuitID)
	if err != nil {
		return notFoundErrorf("ceremony: loading circuit %s: %w", req.CircuitID, err)
	}
	final, err := f.store.GetFinalContribution(req.CeremonyID, req.CircuitID)
	if err != nil {
		return notFoundErrorf("ceremony: loading final contribution for circuit %s: %w", req.CircuitID, err)
	}

	vkeyPath := blobstore.VerificationKeyPath(circuit.Prefix)
	contractPath := blobstore.VerifierContractPath(circuit.Prefix)

	vkeyHash, vkeyLocal, err := f.downloadAndHash(ctx, req.BucketName, vkeyPath)
	if vkeyLocal != "" {
		defer os.Remove(vkeyLocal)
	}
	if err != nil {
		return &WorkerError{Err: err}
	}

	contractHash, contractLocal, err := f.downloadAndHash(ctx, req.BucketName, contractPath)
	if contractLocal != "" {
		defer os.Remove(contractLocal)
	}
	if err != nil {
		return &WorkerError{Err: err}
	}

	beaconHash := sha256.Sum256([]byte(req.Beacon))

	final.Files.VerificationKeyFilename = filepath.Base(vkeyPath)
	final.Files.VerificationKeyPath = vkeyPath
	final.Files.VerificationKeyHash = vkeyHash
	final.Files.VerifierContractFilename = filepath.Base(contractPath)
	final.Files.VerifierContractPath = contractPath
	final.Files.VerifierContractHash = contractHash
	final.Beacon = &types.Beacon{
		Value: req.Beacon,
		Hash:  hex.EncodeToString(beaconHash[:]),
	}

	return f.store.PutContribution(final)
}

// downloadAndHash downloads bucket/path to a temporary file and returns
// its Blake-512 hash (hex-encoded) alongside the temp file path, which the
// caller is responsible for removing.
func (f *Finalizer) downloadAndHash(ctx context.Context, bucket, path string) (hash, localFile string, err error) {
	tmp, err := os.CreateTemp("", "ceremony-final-*")
	if err != nil {
		return "", "", fmt.Errorf("ceremony: creating temp file for %s: %w", path, err)
	}
	localFile = tmp.Name()
	_ = tmp.Close()

	if err := f.blobs.Download(ctx, bucket, path, localFile); err != nil {
		return "", localFile, fmt.Errorf("ceremony: downloading %s/%s: %w", bucket, path, err)
	}

	data, err := os.ReadFile(localFile)
	if err != nil {
		return "", localFile, fmt.Errorf("ceremony: reading %s: %w", localFile, err)
	}
	h := blake512.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), localFile, nil
}
