package values

// InstallOutcome reports what an install actually did. Already-satisfied
// installs short-circuit with OutcomeReused instead of signalling through
// errors.
type InstallOutcome int

const (
	// OutcomeReused means the installed copy already satisfied the request.
	OutcomeReused InstallOutcome = iota
	// OutcomeReplaced means an incompatible copy was uninstalled first.
	OutcomeReplaced
	// OutcomeInstalled means the package was materialized fresh.
	OutcomeInstalled
)

// String returns the lowercase name of the outcome.
func (o InstallOutcome) String() string {
	switch o {
	case OutcomeReused:
		return "reused"
	case OutcomeReplaced:
		return "replaced"
	case OutcomeInstalled:
		return "installed"
	default:
		return "unknown"
	}
}
