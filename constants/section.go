package constants

// SectionType labels the part of a policy a chunk belongs to.
type SectionType string

const (
	SectionDeclarations SectionType = "declarations"
	SectionCoverageForm SectionType = "coverage_form"
	SectionEndorsements SectionType = "endorsements"
	SectionConditions   SectionType = "conditions"
	SectionNone         SectionType = "none"
)

// SectionVocabulary maps header keywords to the section they open.
// Order matters: the first keyword found in a header line wins.
var SectionVocabulary = []struct {
	Keyword string
	Section SectionType
}{
	{"DECLARATIONS", SectionDeclarations},
	{"DECLARATION", SectionDeclarations},
	{"SCHEDULE OF COVERAGES", SectionDeclarations},
	{"ENDORSEMENTS", SectionEndorsements},
	{"ENDORSEMENT", SectionEndorsements},
	{"CONDITIONS", SectionConditions},
	{"COVERAGE FORM", SectionCoverageForm},
	{"COVERAGE PART", SectionCoverageForm},
	{"INSURING AGREEMENT", SectionCoverageForm},
	{"EXCLUSIONS", SectionCoverageForm},
	{"DEFINITIONS", SectionCoverageForm},
}

// Thresholds shared across stages.
const (
	// ScannedQualityThreshold is the mean page quality below which a document
	// is treated as scanned.
	ScannedQualityThreshold = 40.0
	// DefaultModelConfidence applies when the model omits a confidence value.
	DefaultModelConfidence = 0.5
)
