package constants

// DocumentStatus is the processing status stored on the documents row.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentStatusUploaded         DocumentStatus = "UPLOADED"
	DocumentStatusTextExtracted    DocumentStatus = "TEXT_EXTRACTED"
	DocumentStatusTextFailed       DocumentStatus = "TEXT_FAILED"
	DocumentStatusExtracting       DocumentStatus = "EXTRACTING"
	DocumentStatusExtracted        DocumentStatus = "EXTRACTED"
	DocumentStatusExtractionFailed DocumentStatus = "EXTRACTION_FAILED"
)

// JobStatus is the canonical status for rows in extract_job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// PipelineState is a state of one structuring run.
type PipelineState string

const (
	StateNotStarted          PipelineState = "NOT_STARTED"
	StateClassifying         PipelineState = "CLASSIFYING"
	StateExtractingPolicy    PipelineState = "EXTRACTING_POLICY"
	StateExtractingCoverages PipelineState = "EXTRACTING_COVERAGES"
	StateValidating          PipelineState = "VALIDATING"
	StatePersisting          PipelineState = "PERSISTING"
	StateCompleted           PipelineState = "COMPLETED"
	StateFailed              PipelineState = "FAILED"
)

// Terminal reports whether no further transition is allowed from s.
func (s PipelineState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}
