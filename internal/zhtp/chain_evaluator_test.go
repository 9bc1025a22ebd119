package zhtp

import "testing"

func genesisOnly() ChainSummary {
	return ChainSummary{Height: 0, GenesisHash: "g1", GenesisTimestamp: 1000}
}

func TestEvaluateFreshNodeAbsorbsImported(t *testing.T) {
	local := genesisOnly()
	imported := ChainSummary{
		Height: 100, GenesisHash: "g2", GenesisTimestamp: 1000,
		TotalTransactions: 500, ValidatorCount: 5, TotalValidatorStake: 1000,
	}
	if got := Evaluate(local, imported); got != DecisionAdoptImported {
		t.Fatalf("expected AdoptImported, got %v", got)
	}
}

func TestEvaluateIdenticalGenesisLongestChainWins(t *testing.T) {
	local := ChainSummary{Height: 10, GenesisHash: "g1", TotalWork: 1000, ValidatorCount: 4, ValidatorSetHash: "v1"}
	imported := ChainSummary{Height: 20, GenesisHash: "g1", TotalWork: 2000, ValidatorCount: 4, ValidatorSetHash: "v1"}
	if got := Evaluate(local, imported); got != DecisionAdoptImported {
		t.Fatalf("expected AdoptImported for longer imported chain, got %v", got)
	}
}

func TestEvaluateShorterChainWithUniqueContentMerges(t *testing.T) {
	local := ChainSummary{Height: 20, GenesisHash: "g1", TotalWork: 2000, ValidatorCount: 4, ValidatorSetHash: "v1"}
	imported := ChainSummary{Height: 10, GenesisHash: "g1", TotalWork: 1000, ValidatorCount: 4, ValidatorSetHash: "v1", TotalIdentities: 3}
	if got := Evaluate(local, imported); got != DecisionMergeContentOnly {
		t.Fatalf("expected MergeContentOnly, got %v", got)
	}
}

func TestEvaluateShorterChainNoUniqueContentKeptLocal(t *testing.T) {
	local := ChainSummary{Height: 20, GenesisHash: "g1", TotalWork: 2000, ValidatorCount: 4, ValidatorSetHash: "v1"}
	imported := ChainSummary{Height: 10, GenesisHash: "g1", TotalWork: 1000, ValidatorCount: 4, ValidatorSetHash: "v1"}
	if got := Evaluate(local, imported); got != DecisionKeepLocal {
		t.Fatalf("expected KeepLocal, got %v", got)
	}
}

func TestEvaluateSameHeightMostWorkWins(t *testing.T) {
	local := ChainSummary{Height: 10, GenesisHash: "g1", TotalWork: 500, ValidatorCount: 4, ValidatorSetHash: "v1"}
	imported := ChainSummary{Height: 10, GenesisHash: "g1", TotalWork: 900, ValidatorCount: 4, ValidatorSetHash: "v1"}
	if got := Evaluate(local, imported); got != DecisionAdoptImported {
		t.Fatalf("expected AdoptImported for more work at equal height, got %v", got)
	}
}

func TestEvaluateAdjacentHeightSameGenesisMerges(t *testing.T) {
	local := ChainSummary{Height: 10, GenesisHash: "g1", TotalWork: 1000, ValidatorCount: 4, ValidatorSetHash: "v1"}
	imported := ChainSummary{Height: 11, GenesisHash: "g1", TotalWork: 1000, ValidatorCount: 4, ValidatorSetHash: "v1"}
	if got := Evaluate(local, imported); got != DecisionMerge {
		t.Fatalf("expected Merge for height-adjacent compatible chains, got %v", got)
	}
}

func TestEvaluateIncompatibleGenesisMismatchRejected(t *testing.T) {
	local := ChainSummary{
		Height: 100, GenesisHash: "g1", GenesisTimestamp: 0,
		TotalIdentities: 10000, ValidatorCount: 10,
	}
	imported := ChainSummary{
		Height: 100, GenesisHash: "g2", GenesisTimestamp: 400 * oneDaySeconds,
		TotalIdentities: 1, ValidatorCount: 10,
	}
	if got := Evaluate(local, imported); got != DecisionReject {
		t.Fatalf("expected Reject for incompatible cross-genesis networks, got %v", got)
	}
}

func TestCheckValidatorOverlapSameHashShortCircuits(t *testing.T) {
	local := ChainSummary{ValidatorSetHash: "same"}
	imported := ChainSummary{ValidatorSetHash: "same"}
	if !checkValidatorOverlap(local, imported, 0.99) {
		t.Fatalf("expected identical validator-set hashes to overlap regardless of ratio")
	}
}

func TestValidateBFTBridgeRequirementsSmallNetworksExempt(t *testing.T) {
	local := ChainSummary{NetworkSize: 3}
	imported := ChainSummary{NetworkSize: 4}
	if !validateBFTBridgeRequirements(local, imported) {
		t.Fatalf("expected trivially small networks to bypass the bridge gate")
	}
}
