package jarpatch

// ProgressEvent represents a progress update during patching or listing.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the archive or class currently being processed, if applicable.
	Path string

	// FilesDone is the number of entries or classes completed.
	FilesDone int

	// FilesTotal is the total number of entries or classes.
	// Zero indicates the total is unknown.
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages for patch and list operations.
const (
	// StageExtracting indicates the input archive is being extracted.
	StageExtracting ProgressStage = iota

	// StageResolving indicates the target class is being resolved.
	StageResolving

	// StagePatching indicates the target class is being edited.
	StagePatching

	// StageWriting indicates the output archive is being written.
	StageWriting

	// StageListing indicates classes are being loaded for a listing.
	StageListing
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageExtracting:
		return "extracting"
	case StageResolving:
		return "resolving"
	case StagePatching:
		return "patching"
	case StageWriting:
		return "writing"
	case StageListing:
		return "listing"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
type ProgressFunc func(ProgressEvent)
