// Package blobstore provides the object-storage collaborator (spec.md
// §6): download and delete of path-keyed artifacts (zkeys, transcripts,
// verification keys, verifier contracts) too large to live in the
// document store.
package blobstore

import "context"

// BlobStore is the object-storage collaborator contract.
type BlobStore interface {
	// Download fetches bucket/path into localFile, creating or
	// truncating it.
	Download(ctx context.Context, bucket, path, localFile string) error
	// Delete removes bucket/path. It must not error if the object is
	// already absent.
	Delete(ctx context.Context, bucket, path string) error
}

// Path layout helpers, bit-exact for compatibility with contributors
// (spec.md §6).

// ZkeyPath returns the storage path of a circuit's candidate zkey for the
// given index, or the literal "final" token when finalizing.
func ZkeyPath(circuitPrefix, zkeyIndexOrFinal string) string {
	return circuitPrefix + "_" + zkeyIndexOrFinal + ".zkey"
}

// TranscriptPath returns the storage path of a verification transcript.
// When finalizing, zkeyIndex is ignored and the finalizing filename form
// is used instead.
func TranscriptPath(circuitPrefix, zkeyIndex, identifier string, finalizing bool) string {
	const transcriptsPrefix = "transcripts/"
	if finalizing {
		return transcriptsPrefix + circuitPrefix + "_" + identifier + "_final_verification_transcript.log"
	}
	return transcriptsPrefix + circuitPrefix + "_" + zkeyIndex + "_" + identifier + "_verification_transcript.log"
}

// VerificationKeyPath returns the storage path of a circuit's
// verification key JSON.
func VerificationKeyPath(circuitPrefix string) string {
	return circuitPrefix + "_vkey.json"
}

// VerifierContractPath returns the storage path of a circuit's Solidity
// verifier contract.
func VerifierContractPath(circuitPrefix string) string {
	return circuitPrefix + "_verifier.sol"
}
