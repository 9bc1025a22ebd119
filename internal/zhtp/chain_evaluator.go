package zhtp

// chain_evaluator.go implements a pure, deterministic merge-arbitration
// decision procedure: Evaluate(local, imported) -> decision. It performs no
// I/O and must stay that way; all context a caller needs comes in through
// the two ChainSummary arguments.
//
// Rule ordering and constants (10/100/5/50/3600 scoring weights,
// 0.33/0.50/0.67 overlap ratios, the 7/2500 bridge floors in bft.go, the
// 365-day age gate) are fixed points of the decision procedure.
//
// Evaluate does not log (it must stay side-effect-free); its caller in
// mesh.go does not log decisions either.

const (
	oneDaySeconds  = int64(24 * 60 * 60)
	ageGateDays    = 365
	sizeRatioLimit = 100.0
)

func absDiffU64(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

func absDiffI64(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

func workDiffRatio(a, b uint64) float64 {
	max, min := a, b
	if b > a {
		max, min = b, a
	}
	if max == 0 {
		return 0
	}
	return float64(max-min) / float64(max)
}

func chainsIdentical(local, imported ChainSummary) bool {
	return local.Height == imported.Height &&
		local.TotalWork == imported.TotalWork &&
		local.TotalTransactions == imported.TotalTransactions &&
		local.TotalIdentities == imported.TotalIdentities &&
		local.TotalUTXOs == imported.TotalUTXOs &&
		local.TotalContracts == imported.TotalContracts &&
		local.GenesisTimestamp == imported.GenesisTimestamp
}

func hasUniqueContent(imported ChainSummary) bool {
	return imported.TotalIdentities > 0 || imported.TotalContracts > 0 ||
		imported.TotalUTXOs > 0 || imported.TotalTransactions > 0
}

func mergeScore(s ChainSummary) float64 {
	return 100*float64(s.ValidatorCount) +
		10*float64(s.TotalIdentities) +
		float64(s.TotalTransactions) +
		float64(s.TotalWork)/100000 +
		float64(s.TotalValidatorStake)/1000
}

func chainScore(s ChainSummary) float64 {
	return 10*float64(s.TotalTransactions) +
		100*float64(s.TotalIdentities) +
		5*float64(s.TotalUTXOs) +
		50*float64(s.TotalContracts) +
		float64(s.LatestTimestamp-s.GenesisTimestamp)/3600
}

// areNetworksCompatible is the cross-genesis compatibility gate: networks
// too far apart in age or size are never considered for reconciliation.
func areNetworksCompatible(local, imported ChainSummary) bool {
	if local.IsGenesisOnly() && imported.IsGenesisOnly() {
		return true
	}
	if local.IsGenesisOnly() || imported.IsGenesisOnly() {
		return true
	}
	if local.ValidatorCount < 3 && imported.ValidatorCount < 3 {
		return true
	}
	ageDiff := absDiffI64(local.GenesisTimestamp, imported.GenesisTimestamp)
	if ageDiff > ageGateDays*oneDaySeconds {
		return false
	}
	larger, smaller := local.TotalIdentities, imported.TotalIdentities
	if smaller > larger {
		larger, smaller = smaller, larger
	}
	if smaller < 1 {
		smaller = 1
	}
	sizeRatio := float64(larger) / float64(smaller)
	if sizeRatio > sizeRatioLimit {
		return false
	}
	return true
}

// validateBFTBridgeRequirements is the BFT bridge-node gate: merging two
// networks above a trivial size requires enough mutually-trusted bridge
// nodes on each side to keep consensus safe post-merge.
func validateBFTBridgeRequirements(local, imported ChainSummary) bool {
	smaller, larger := local, imported
	if imported.NetworkSize < local.NetworkSize {
		smaller, larger = imported, local
	}
	if smaller.NetworkSize <= 5 {
		return true
	}
	combinedSize := smaller.NetworkSize + larger.NetworkSize
	combinedTPS := smaller.ExpectedTPS + larger.ExpectedTPS
	if smaller.NetworkSize <= 50 {
		if smaller.BridgeNodeCount < 1 {
			return false
		}
		return larger.BridgeNodeCount >= bftMin(combinedSize, combinedTPS)
	}
	min := bftMin(combinedSize, combinedTPS)
	return smaller.BridgeNodeCount >= min && larger.BridgeNodeCount >= min
}

// checkValidatorOverlap implements the stake-ratio approximation of
// validator-set overlap used when the two validator-set hashes differ.
func checkValidatorOverlap(local, imported ChainSummary, requiredRatio float64) bool {
	if local.ValidatorSetHash == imported.ValidatorSetHash {
		return true
	}
	max, min := local.TotalValidatorStake, imported.TotalValidatorStake
	if imported.TotalValidatorStake > max {
		max, min = imported.TotalValidatorStake, local.TotalValidatorStake
	}
	if max == 0 {
		return true
	}
	ratio := float64(min) / float64(max)
	return ratio >= requiredRatio
}

// hasSufficientValidatorOverlap gates the bridge-node requirement first,
// then requires a validator-count-scaled minimum overlap ratio between the
// two validator sets.
func hasSufficientValidatorOverlap(local, imported ChainSummary) bool {
	if !validateBFTBridgeRequirements(local, imported) {
		return false
	}
	if local.ValidatorCount == 0 || imported.ValidatorCount == 0 {
		return true
	}
	var ratio float64
	switch {
	case local.ValidatorCount <= 5 || imported.ValidatorCount <= 5:
		ratio = 0.33
	case local.ValidatorCount >= 7 && imported.ValidatorCount >= 7:
		ratio = 0.67
	default:
		ratio = 0.50
	}
	return checkValidatorOverlap(local, imported, ratio)
}

// canMerge decides whether two same-genesis chains are close enough in
// height and work, and share enough validator overlap, to be merged rather
// than one simply superseding the other.
func canMerge(local, imported ChainSummary) bool {
	if local.GenesisHash != imported.GenesisHash {
		return false
	}
	if !hasSufficientValidatorOverlap(local, imported) {
		return false
	}
	if chainsIdentical(local, imported) {
		return false
	}
	if local.Height == imported.Height {
		if local.TotalWork == imported.TotalWork {
			return true
		}
		return workDiffRatio(local.TotalWork, imported.TotalWork) <= 0.1
	}
	return absDiffU64(local.Height, imported.Height) == 1
}

// evaluateGenesisMismatch scores two incompatible-genesis networks and
// decides which one the local node should adopt, falling through a chain of
// deterministic tiebreakers when scores tie.
func evaluateGenesisMismatch(local, imported ChainSummary) ChainDecision {
	if !areNetworksCompatible(local, imported) {
		return DecisionReject
	}
	localScore := mergeScore(local)
	importedScore := mergeScore(imported)
	if importedScore > localScore {
		return DecisionAdoptImported
	}
	if localScore > importedScore {
		return DecisionAdoptLocal
	}
	if local.GenesisTimestamp != imported.GenesisTimestamp {
		if imported.GenesisTimestamp < local.GenesisTimestamp {
			return DecisionAdoptImported
		}
		return DecisionAdoptLocal
	}
	if imported.GenesisHash < local.GenesisHash {
		return DecisionAdoptImported
	}
	return DecisionAdoptLocal
}

// Evaluate is the chain evaluator's sole entry point: a pure, deterministic
// function of two chain summaries that walks a fixed rule order from
// fresh-node absorption through genesis reconciliation, merge candidacy,
// longest-chain, most-work, and scored tiebreakers.
func Evaluate(local, imported ChainSummary) ChainDecision {
	// 1. Fresh-node absorb.
	if local.IsGenesisOnly() && !imported.IsGenesisOnly() {
		return DecisionAdoptImported
	}

	// 2. Cross-network reconciliation.
	if local.GenesisHash != imported.GenesisHash {
		if !local.IsGenesisOnly() && !imported.IsGenesisOnly() {
			return evaluateGenesisMismatch(local, imported)
		}
	}

	// 3. Same-genesis merge candidate.
	if local.GenesisHash == imported.GenesisHash && canMerge(local, imported) {
		return DecisionMerge
	}

	// 4. Longest chain, preserve short.
	if imported.Height > local.Height {
		return DecisionAdoptImported
	}
	if local.Height > imported.Height {
		if hasUniqueContent(imported) {
			return DecisionMergeContentOnly
		}
		return DecisionKeepLocal
	}

	// 5. Equal height, most work.
	if local.TotalWork > imported.TotalWork {
		return DecisionKeepLocal
	}
	if imported.TotalWork > local.TotalWork {
		return DecisionAdoptImported
	}

	// 6. Scored tiebreaker.
	localScore := chainScore(local)
	importedScore := chainScore(imported)
	if importedScore > localScore {
		return DecisionAdoptImported
	}
	if localScore > importedScore {
		return DecisionKeepLocal
	}

	// 7. Final tiebreaker.
	if imported.GenesisTimestamp < local.GenesisTimestamp {
		return DecisionAdoptImported
	}
	return DecisionKeepLocal
}
