// Package types defines the ceremony data model: the persisted documents
// exchanged between the coordinator, the verifier, the refresher, and the
// finalizer, plus the small set of pure helpers (zkey index formatting)
// that must round-trip exactly across all of them.
//
// Field names carry JSON tags that match the wire contract contributors
// depend on (spec.md §6): renaming a tag is a breaking change.
package types

// CeremonyState is the lifecycle state of a Ceremony.
type CeremonyState string

const (
	CeremonyScheduled CeremonyState = "SCHEDULED"
	CeremonyOpened    CeremonyState = "OPENED"
	CeremonyPaused    CeremonyState = "PAUSED"
	CeremonyClosed    CeremonyState = "CLOSED"
	CeremonyFinalized CeremonyState = "FINALIZED"
)

// ParticipantStatus is the lifecycle state of a Participant.
type ParticipantStatus string

const (
	StatusWaiting     ParticipantStatus = "WAITING"
	StatusReady       ParticipantStatus = "READY"
	StatusContributing ParticipantStatus = "CONTRIBUTING"
	StatusContributed ParticipantStatus = "CONTRIBUTED"
	StatusDone        ParticipantStatus = "DONE"
	StatusFinalizing  ParticipantStatus = "FINALIZING"
	StatusTimedOut    ParticipantStatus = "TIMEDOUT"
)

// ContributionStep is the fine-grained step within a CONTRIBUTING status.
type ContributionStep string

const (
	StepDownloading ContributionStep = "DOWNLOADING"
	StepComputing   ContributionStep = "COMPUTING"
	StepUploading   ContributionStep = "UPLOADING"
	StepVerifying   ContributionStep = "VERIFYING"
	StepCompleted   ContributionStep = "COMPLETED"
)

// Ceremony is the top-level ceremony document.
type Ceremony struct {
	ID    string        `json:"id"`
	State CeremonyState `json:"state"`
	Prefix string       `json:"prefix"`
	Title  string       `json:"title"`
}

// AvgTimings holds the rolling-mean timing statistics for a circuit,
// updated only on valid contributions (spec.md §4.2 step 8, §9).
type AvgTimings struct {
	ContributionComputation int64 `json:"contributionComputation"`
	FullContribution        int64 `json:"fullContribution"`
	VerifyCloudFunction     int64 `json:"verifyCloudFunction"`
}

// updateAvg applies the "new = prev>0 ? (prev+sample)/2 : sample" EMA rule
// (spec.md §9) to a single sample and returns the new value.
func updateAvg(prev, sample int64) int64 {
	if prev > 0 {
		return (prev + sample) / 2
	}
	return sample
}

// Apply folds a fresh sample set into the timings using the EMA rule.
func (a *AvgTimings) Apply(contributionComputation, fullContribution, verifyCloudFunction int64) {
	a.ContributionComputation = updateAvg(a.ContributionComputation, contributionComputation)
	a.FullContribution = updateAvg(a.FullContribution, fullContribution)
	a.VerifyCloudFunction = updateAvg(a.VerifyCloudFunction, verifyCloudFunction)
}

// WaitingQueue is the per-circuit ordered list of participants awaiting or
// holding the contribution slot (invariants I1, I2, I4).
type WaitingQueue struct {
	Contributors            []string `json:"contributors"`
	CurrentContributor      string   `json:"currentContributor"`
	CompletedContributions  int      `json:"completedContributions"`
	FailedContributions     int      `json:"failedContributions"`
}

// CircuitFiles names the static artifacts associated with a circuit
// (genesis zkey, Powers-of-Tau file) that the verifier worker downloads.
type CircuitFiles struct {
	GenesisZkeyFilename string `json:"initialZkeyFilename"`
	PotFilename         string `json:"potFilename"`
}

// Circuit is a single circuit within a ceremony.
type Circuit struct {
	CeremonyID       string       `json:"-"`
	ID               string       `json:"id"`
	SequencePosition int          `json:"sequencePosition"`
	Prefix           string       `json:"prefix"`
	WaitingQueue     WaitingQueue `json:"waitingQueue"`
	AvgTimings       AvgTimings   `json:"avgTimings"`
	Files            CircuitFiles `json:"files"`
	InstanceID       string       `json:"instanceId"`
}

// ParticipantContribution is one partial record in Participant.Contributions:
// created client-side with Hash and ComputationTime set, read by the
// Verifier (ComputationTime) and completed by the Refresher (Doc), per
// invariant I6.
type ParticipantContribution struct {
	Hash            string `json:"hash,omitempty"`
	ComputationTime int64  `json:"computationTime,omitempty"`
	Doc             string `json:"doc,omitempty"`
}

// hasPendingDocRef reports whether this is the one partial contribution
// entry the Verifier/Refresher are looking for: it has both a hash and a
// computation time recorded, but no contribution document attached yet.
func (p ParticipantContribution) hasPendingDocRef() bool {
	return p.Hash != "" && p.ComputationTime != 0 && p.Doc == ""
}

// Participant is a single contributor's state within one ceremony.
type Participant struct {
	CeremonyID            string                     `json:"-"`
	UserID                string                     `json:"userId"`
	Status                ParticipantStatus          `json:"status"`
	ContributionStep      ContributionStep           `json:"contributionStep"`
	ContributionProgress  int                        `json:"contributionProgress"`
	Contributions         []ParticipantContribution  `json:"contributions"`
	ContributionStartedAt int64                      `json:"contributionStartedAt"`
	VerificationStartedAt int64                      `json:"verificationStartedAt"`
	LastUpdated           int64                      `json:"lastUpdated"`
}

// PendingContributionIndex returns the index of the single
// ParticipantContribution entry lacking a document reference. It returns
// (-1, err) if zero or more than one such entry exists (spec.md §9,
// "Partial contribution record lookup").
func (p *Participant) PendingContributionIndex() (int, error) {
	found := -1
	for i, c := range p.Contributions {
		if c.hasPendingDocRef() {
			if found != -1 {
				return -1, ErrAmbiguousPendingContribution
			}
			found = i
		}
	}
	if found == -1 {
		return -1, ErrNoPendingContribution
	}
	return found, nil
}

// VerificationSoftware records the verifier build identity attached to
// every contribution document (spec.md §6 environment configuration).
type VerificationSoftware struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	CommitHash string `json:"commitHash"`
}

// ContributionFiles names the storage-relative artifacts belonging to one
// contribution: the candidate zkey and its verification transcript, plus
// (only for the final contribution of a circuit, attached by the
// Finalizer) the verification key and verifier contract.
type ContributionFiles struct {
	TranscriptFilename string `json:"transcriptFilename,omitempty"`
	TranscriptPath     string `json:"transcriptStoragePath,omitempty"`
	TranscriptHash     string `json:"transcriptHash,omitempty"`

	ZkeyFilename string `json:"zkeyFilename,omitempty"`
	ZkeyPath     string `json:"zkeyStoragePath,omitempty"`

	VerificationKeyFilename string `json:"verificationKeyFilename,omitempty"`
	VerificationKeyPath     string `json:"verificationKeyStoragePath,omitempty"`
	VerificationKeyHash     string `json:"verificationKeyHash,omitempty"`

	VerifierContractFilename string `json:"verifierContractFilename,omitempty"`
	VerifierContractPath     string `json:"verifierContractStoragePath,omitempty"`
	VerifierContractHash     string `json:"verifierContractHash,omitempty"`
}

// ContributionTimings holds the per-contribution timing sample recorded
// alongside a Contribution document.
type ContributionTimings struct {
	ContributionComputation int64 `json:"contributionComputation,omitempty"`
	FullContribution        int64 `json:"fullContribution,omitempty"`
	VerifyCloudFunction     int64 `json:"verifyCloudFunction,omitempty"`
}

// Beacon is the ceremony-closing public randomness bound into the final
// contribution of each circuit (spec.md §4.4).
type Beacon struct {
	Value string `json:"value"`
	Hash  string `json:"hash"`
}

// Contribution is one participant's verified (or rejected) transformation
// of a circuit's zkey.
type Contribution struct {
	CeremonyID    string               `json:"-"`
	CircuitID     string               `json:"-"`
	ID            string               `json:"id"`
	ParticipantID string               `json:"participantId"`
	ZkeyIndex     string               `json:"zkeyIndex"`
	Valid         bool                 `json:"valid"`
	Files         ContributionFiles    `json:"files"`
	Verification  VerificationSoftware `json:"verificationSoftware"`
	Timings       ContributionTimings  `json:"timings,omitempty"`
	Beacon        *Beacon              `json:"beacon,omitempty"`
	LastUpdated   int64                `json:"lastUpdated"`
}

// FinalZkeyToken is used in place of a numeric zkeyIndex for the
// ceremony-closing contribution of a circuit (spec.md §3, §4.2 step 2).
const FinalZkeyToken = "final"
