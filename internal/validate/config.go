package validate

const neutralCoverageConfidence = 0.5

// Config holds the blend weights and review policy.
type Config struct {
	ClassificationWeight float64
	PolicyWeight         float64
	CoverageWeight       float64
	// ReviewThreshold is the blended confidence below which a policy needs
	// human review.
	ReviewThreshold float64
	// ScannedPenalty multiplies the blended confidence of documents whose
	// text quality marks them as scanned. 1 disables it.
	ScannedPenalty float64
}

func DefaultConfig() Config {
	return Config{
		ClassificationWeight: 0.15,
		PolicyWeight:         0.20,
		CoverageWeight:       0.65,
		ReviewThreshold:      0.70,
		ScannedPenalty:       0.85,
	}
}

// normalized rescales weights that do not sum to 1 and fills unset values.
func (c Config) normalized() Config {
	def := DefaultConfig()
	sum := c.ClassificationWeight + c.PolicyWeight + c.CoverageWeight
	if sum <= 0 || c.ClassificationWeight < 0 || c.PolicyWeight < 0 || c.CoverageWeight < 0 {
		c.ClassificationWeight, c.PolicyWeight, c.CoverageWeight = def.ClassificationWeight, def.PolicyWeight, def.CoverageWeight
	} else {
		c.ClassificationWeight /= sum
		c.PolicyWeight /= sum
		c.CoverageWeight /= sum
	}
	if c.ReviewThreshold <= 0 {
		c.ReviewThreshold = def.ReviewThreshold
	}
	if c.ScannedPenalty <= 0 || c.ScannedPenalty > 1 {
		c.ScannedPenalty = def.ScannedPenalty
	}
	return c
}
