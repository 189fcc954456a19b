package core

import "fmt"

// BranchPredictorConfig holds configuration for the branch predictor.
type BranchPredictorConfig struct {
	// BHTSize is the number of entries in the Branch History Table.
	// Must be a power of 2. Default is 1024.
	BHTSize uint32 `toml:"bht_size"`
	// BTBSize is the number of entries in the Branch Target Buffer.
	// Must be a power of 2. Default is 256.
	BTBSize uint32 `toml:"btb_size"`
	// MispredictPenalty is the number of cycles lost when a conditional
	// branch or JALR redirects fetch unexpectedly. Default is 2.
	MispredictPenalty uint64 `toml:"mispredict_penalty"`
}

// DefaultBranchPredictorConfig returns a default configuration.
func DefaultBranchPredictorConfig() BranchPredictorConfig {
	return BranchPredictorConfig{
		BHTSize:           1024,
		BTBSize:           256,
		MispredictPenalty: 2,
	}
}

// Validate checks that both tables are powers of two.
func (c BranchPredictorConfig) Validate() error {
	if c.BHTSize == 0 || c.BHTSize&(c.BHTSize-1) != 0 {
		return fmt.Errorf("bht_size must be a power of two, got %d", c.BHTSize)
	}
	if c.BTBSize == 0 || c.BTBSize&(c.BTBSize-1) != 0 {
		return fmt.Errorf("btb_size must be a power of two, got %d", c.BTBSize)
	}
	return nil
}

// BranchPredictorStats holds statistics for the branch predictor.
type BranchPredictorStats struct {
	// Predictions is the total number of branch predictions made.
	Predictions uint64
	// Correct is the number of correct direction predictions.
	Correct uint64
	// Mispredictions is the number of incorrect direction predictions.
	Mispredictions uint64
	// BTBHits is the number of BTB hits.
	BTBHits uint64
	// BTBMisses is the number of BTB misses.
	BTBMisses uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s BranchPredictorStats) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Predictions) * 100
}

// Prediction represents a branch prediction result.
type Prediction struct {
	// Taken indicates whether the branch is predicted to be taken.
	Taken bool
	// Target is the predicted target address (if known from BTB).
	Target uint32
	// TargetKnown indicates whether the target address is known.
	TargetKnown bool
}

// BranchPredictor implements a 2-bit saturating counter (bimodal) predictor
// with a Branch Target Buffer (BTB).
type BranchPredictor struct {
	// 2-bit counters: 0=Strongly Not Taken .. 3=Strongly Taken
	bht []uint8

	btb      []btbEntry
	btbValid []bool

	bhtSize uint32
	btbSize uint32

	stats BranchPredictorStats
}

type btbEntry struct {
	pc     uint32
	target uint32
}

// NewBranchPredictor creates a new branch predictor with the given
// configuration. Zero sizes take the defaults.
func NewBranchPredictor(config BranchPredictorConfig) *BranchPredictor {
	bhtSize := config.BHTSize
	btbSize := config.BTBSize

	if bhtSize == 0 {
		bhtSize = 1024
	}
	if btbSize == 0 {
		btbSize = 256
	}

	bp := &BranchPredictor{
		bht:      make([]uint8, bhtSize),
		btb:      make([]btbEntry, btbSize),
		btbValid: make([]bool, btbSize),
		bhtSize:  bhtSize,
		btbSize:  btbSize,
	}
	bp.Reset()

	return bp
}

func (bp *BranchPredictor) bhtIndex(pc uint32) uint32 {
	return (pc >> 2) & (bp.bhtSize - 1)
}

func (bp *BranchPredictor) btbIndex(pc uint32) uint32 {
	return (pc >> 2) & (bp.btbSize - 1)
}

// Predict makes a branch prediction for the given PC.
func (bp *BranchPredictor) Predict(pc uint32) Prediction {
	pred := Prediction{Taken: bp.bht[bp.bhtIndex(pc)] >= 2}

	idx := bp.btbIndex(pc)
	if bp.btbValid[idx] && bp.btb[idx].pc == pc {
		pred.Target = bp.btb[idx].target
		pred.TargetKnown = true
		bp.stats.BTBHits++
	} else {
		bp.stats.BTBMisses++
	}

	bp.stats.Predictions++
	return pred
}

// Update trains the predictor with the actual branch outcome.
func (bp *BranchPredictor) Update(pc uint32, taken bool, target uint32) {
	idx := bp.bhtIndex(pc)
	counter := bp.bht[idx]

	if (counter >= 2) == taken {
		bp.stats.Correct++
	} else {
		bp.stats.Mispredictions++
	}

	switch {
	case taken && counter < 3:
		bp.bht[idx] = counter + 1
	case !taken && counter > 0:
		bp.bht[idx] = counter - 1
	}

	if taken {
		b := bp.btbIndex(pc)
		bp.btb[b] = btbEntry{pc: pc, target: target}
		bp.btbValid[b] = true
	}
}

// Stats returns the branch predictor statistics.
func (bp *BranchPredictor) Stats() BranchPredictorStats {
	return bp.stats
}

// Reset clears all predictor state and statistics. Counters start weakly
// taken.
func (bp *BranchPredictor) Reset() {
	for i := range bp.bht {
		bp.bht[i] = 2
	}
	for i := range bp.btbValid {
		bp.btbValid[i] = false
	}
	bp.stats = BranchPredictorStats{}
}
