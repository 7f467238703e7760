package deploy

// Stage is the last pipeline stage that completed successfully.
type Stage int

// Pipeline stages, in execution order.
const (
	StageInit Stage = iota
	StageEnvironmentCaptured
	StageScriptGenerated
	StageArchived
	StageSessionEstablished
	StagePathResolved
	StageUploaded
	StageUnpacked
	StageSubmissionStub
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageEnvironmentCaptured:
		return "environment-captured"
	case StageScriptGenerated:
		return "script-generated"
	case StageArchived:
		return "archived"
	case StageSessionEstablished:
		return "session-established"
	case StagePathResolved:
		return "path-resolved"
	case StageUploaded:
		return "uploaded"
	case StageUnpacked:
		return "unpacked"
	case StageSubmissionStub:
		return "submission-stub"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}
