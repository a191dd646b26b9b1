package bootstrap

// Stage is a step of the synchronization pass.
type Stage int

// Stages in the order a pass reaches them.
const (
	NotStarted Stage = iota
	InstallerFetched
	ArchiveDownloaded
	ManifestProcessed
	OverridesMerged
	Completed
)

// String returns the stage name used in logs and errors.
func (s Stage) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case InstallerFetched:
		return "installer fetched"
	case ArchiveDownloaded:
		return "archive downloaded"
	case ManifestProcessed:
		return "manifest processed"
	case OverridesMerged:
		return "overrides merged"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}
