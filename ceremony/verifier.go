package ceremony

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zkceremony/coordinator/blobstore"
	"github.com/zkceremony/coordinator/clock"
	"github.com/zkceremony/coordinator/config"
	"github.com/zkceremony/coordinator/log"
	"github.com/zkceremony/coordinator/metrics"
	"github.com/zkceremony/coordinator/store"
	"github.com/zkceremony/coordinator/types"
	"github.com/zkceremony/coordinator/workerpool"
)

// validOutputMarker is the exact substring a worker's combined command
// output must contain for a contribution to be accepted. No other
// interpretation of the output is permitted.
const validOutputMarker = "ZKey Ok!"

// VerifyContributionRequest is the input to Verifier.VerifyContribution.
type VerifyContributionRequest struct {
	CeremonyID  string
	CircuitID   string
	Identifier  string // contributorOrCoordinatorIdentifier
	BucketName  string
	IsCoordinator bool
}

// Verifier implements spec.md §4.2: drives a worker against a candidate
// zkey and records the resulting contribution document.
type Verifier struct {
	store   *store.Store
	blobs   blobstore.BlobStore
	workers workerpool.Pool
	clock   clock.Clock

	verSoftware config.VerificationSoftwareConfig
	workerCfg   config.WorkerConfig
}

// NewVerifier builds a Verifier.
func NewVerifier(s *store.Store, blobs blobstore.BlobStore, workers workerpool.Pool, c clock.Clock, verSoftware config.VerificationSoftwareConfig, workerCfg config.WorkerConfig) *Verifier {
	return &Verifier{store: s, blobs: blobs, workers: workers, clock: c, verSoftware: verSoftware, workerCfg: workerCfg}
}

// VerifyContribution implements the verifyContribution RPC.
func (v *Verifier) VerifyContribution(ctx context.Context, req VerifyContributionRequest) error {
	if req.CeremonyID == "" || req.CircuitID == "" || req.Identifier == "" || req.BucketName == "" {
		return inputErrorf("ceremony: verifyContribution requires ceremonyId, circuitId, identifier, bucketName")
	}
	if err := v.verSoftware.Validate(); err != nil {
		return &InputError{Err: err}
	}

	ceremonyDoc, err := v.store.GetCeremony(req.CeremonyID)
	if err != nil {
		return notFoundErrorf("ceremony: loading ceremony %s: %w", req.CeremonyID, err)
	}
	circuit, err := v.store.GetCircuit(req.CeremonyID, req.CircuitID)
	if err != nil {
		return notFoundErrorf("ceremony: loading circuit %s: %w", req.CircuitID, err)
	}
	participant, err := v.store.GetParticipant(req.CeremonyID, req.Identifier)
	if err != nil {
		return notFoundErrorf("ceremony: loading participant %s: %w", req.Identifier, err)
	}

	isFinalizing := ceremonyDoc.State == types.CeremonyClosed && req.IsCoordinator
	isContributing := participant.Status == types.StatusContributing
	if !isFinalizing && !isContributing {
		return preconditionErrorf("ceremony: participant %s is not eligible to verify on circuit %s", req.Identifier, req.CircuitID)
	}

	zkeyIndexOrFinal := types.FormatZkeyIndex(circuit.WaitingQueue.CompletedContributions + 1)
	if isFinalizing {
		zkeyIndexOrFinal = types.FinalZkeyToken
	}
	zkeyPath := blobstore.ZkeyPath(circuit.Prefix, zkeyIndexOrFinal)
	transcriptPath := blobstore.TranscriptPath(circuit.Prefix, zkeyIndexOrFinal, req.Identifier, isFinalizing)

	handlerStart := v.clock.NowMillis()
	if !isFinalizing {
		participant.VerificationStartedAt = handlerStart
		if err := v.store.PutParticipant(participant); err != nil {
			return transientStoreErrorf("ceremony: recording verificationStartedAt: %w", err)
		}
	}

	output, workerErr := v.runOnWorker(ctx, circuit, req.BucketName, zkeyPath, transcriptPath, circuit.Files)
	valid := workerErr == nil && strings.Contains(output, validOutputMarker)
	if workerErr != nil {
		log.Errorw("verifier: worker execution failed, recording invalid contribution", "error", workerErr, "circuitId", req.CircuitID)
	}

	if valid {
		time.Sleep(v.workerCfg.TranscriptSettle)
	} else {
		if err := v.blobs.Delete(ctx, req.BucketName, zkeyPath); err != nil {
			log.Warnw("verifier: failed to delete invalid candidate zkey", "error", err, "path", zkeyPath)
		}
	}

	return v.store.Atomic(func(b *store.Batch) error {
		c, err := b.GetCircuit(req.CeremonyID, req.CircuitID)
		if err != nil {
			return notFoundErrorf("ceremony: reloading circuit %s: %w", req.CircuitID, err)
		}
		p, err := b.GetParticipant(req.CeremonyID, req.Identifier)
		if err != nil {
			return notFoundErrorf("ceremony: reloading participant %s: %w", req.Identifier, err)
		}

		contribution := &types.Contribution{
			CeremonyID:    req.CeremonyID,
			CircuitID:     req.CircuitID,
			ParticipantID: req.Identifier,
			ZkeyIndex:     zkeyIndexOrFinal,
			Valid:         valid,
			Verification: types.VerificationSoftware{
				Name:       v.verSoftware.Name,
				Version:    v.verSoftware.Version,
				CommitHash: v.verSoftware.CommitHash,
			},
		}

		var contributionComputationTime int64
		if valid {
			idx, err := p.PendingContributionIndex()
			if err != nil {
				return &PreconditionError{Err: fmt.Errorf("ceremony: %w", err)}
			}
			contributionComputationTime = p.Contributions[idx].ComputationTime
			contribution.Files = types.ContributionFiles{
				TranscriptFilename: filepath.Base(transcriptPath),
				TranscriptPath:     transcriptPath,
				TranscriptHash:     "",
				ZkeyFilename:       filepath.Base(zkeyPath),
				ZkeyPath:           zkeyPath,
			}
		}

		if !isFinalizing {
			fullContributionTime := p.VerificationStartedAt - p.ContributionStartedAt
			verifyCloudFunctionTime := b.Now() - handlerStart
			contribution.Timings = types.ContributionTimings{
				ContributionComputation: contributionComputationTime,
				FullContribution:        fullContributionTime,
				VerifyCloudFunction:     verifyCloudFunctionTime,
			}
			if valid {
				c.AvgTimings.Apply(contributionComputationTime, fullContributionTime, verifyCloudFunctionTime)
				c.WaitingQueue.CompletedContributions++
			} else {
				c.WaitingQueue.FailedContributions++
			}
			b.PutCircuit(c)
		}

		b.CreateContribution(contribution)
		metrics.ContributionsTotal.WithLabelValues(req.CircuitID, strconv.FormatBool(valid)).Inc()
		metrics.QueueDepth.WithLabelValues(req.CircuitID).Set(float64(len(c.WaitingQueue.Contributors)))
		return nil
	})
}

// runOnWorker drives circuit.InstanceID through its full lifecycle: start,
// settle, probe, run the verification command script, fetch output, and
// unconditionally stop, per spec.md §4.2 step 4-6.
func (v *Verifier) runOnWorker(ctx context.Context, circuit *types.Circuit, bucket, zkeyPath, transcriptPath string, files types.CircuitFiles) (string, error) {
	instanceID := circuit.InstanceID
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), v.workerCfg.ProbeTimeout)
		defer cancel()
		if err := v.workers.Stop(stopCtx, instanceID); err != nil {
			log.Warnw("verifier: failed to stop worker", "error", err, "instanceId", instanceID)
		}
	}()

	if err := v.workers.Start(ctx, instanceID); err != nil {
		return "", &WorkerError{Err: fmt.Errorf("starting worker %s: %w", instanceID, err)}
	}

	if err := workerpool.WaitUntilRunning(ctx, v.workers, instanceID, v.workerCfg.SettleInterval, v.workerCfg.ProbeTimeout); err != nil {
		log.Warnw("verifier: worker did not report running before deadline, proceeding anyway", "instanceId", instanceID, "error", err)
	}

	commands := buildVerificationCommands(bucket, zkeyPath, transcriptPath, files)
	commandID, err := v.workers.RunCommand(ctx, instanceID, commands)
	if err != nil {
		return "", &WorkerError{Err: fmt.Errorf("running command on %s: %w", instanceID, err)}
	}

	pollCtx, cancel := context.WithTimeout(ctx, v.workerCfg.CommandPollTimeout)
	defer cancel()
	output, err := v.workers.FetchOutput(pollCtx, instanceID, commandID)
	if err != nil {
		return "", &WorkerError{Err: fmt.Errorf("fetching output for %s on %s: %w", commandID, instanceID, err)}
	}
	return output, nil
}

// buildVerificationCommands lays out the shell script a worker runs:
// download the candidate zkey, run the verification tool against the
// genesis zkey and Powers-of-Tau file, upload the transcript, then clean
// up local files, following spec.md §4.2 step 4.
func buildVerificationCommands(bucket, zkeyPath, transcriptPath string, files types.CircuitFiles) []string {
	localZkey := filepath.Base(zkeyPath)
	localTranscript := filepath.Base(transcriptPath)
	return []string{
		fmt.Sprintf("gsutil cp gs://%s/%s %s", bucket, zkeyPath, localZkey),
		fmt.Sprintf("snarkjs zkey verify %s %s %s | tee %s", files.GenesisZkeyFilename, files.PotFilename, localZkey, localTranscript),
		fmt.Sprintf("gsutil cp %s gs://%s/%s", localTranscript, bucket, transcriptPath),
		fmt.Sprintf("rm -f %s %s", localZkey, localTranscript),
	}
}
