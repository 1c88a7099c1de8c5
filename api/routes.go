package api

const (
	// PingEndpoint is the endpoint for checking the API status.
	PingEndpoint = "/ping"
	// MetricsEndpoint exposes Prometheus metrics.
	MetricsEndpoint = "/metrics"

	// VerifyContributionEndpoint is the RPC endpoint a contributor (or the
	// coordinator, during finalization) calls after uploading a candidate
	// zkey.
	VerifyContributionEndpoint = "/verifyContribution"
	// FinalizeCircuitEndpoint is the RPC endpoint the coordinator calls
	// once per circuit at ceremony close.
	FinalizeCircuitEndpoint = "/finalizeCircuit"

	// CeremonyURLParam names the path parameter of the read-only query
	// surface below. No route below uses CircuitURLParam.
	CeremonyURLParam = "ceremonyId"
	CircuitURLParam  = "circuitId"

	// CeremonyEndpoint returns a single ceremony document.
	CeremonyEndpoint = "/ceremonies/{" + CeremonyURLParam + "}"
	// CircuitsEndpoint lists the circuits belonging to a ceremony.
	CircuitsEndpoint = "/ceremonies/{" + CeremonyURLParam + "}/circuits"
)
