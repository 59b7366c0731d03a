package descriptor

import "github.com/Aman-CERP/searchbridge/internal/errors"

// ReloadPolicy is when a reader picks up new commits.
type ReloadPolicy int

const (
	// ReloadOnCommitWithDelay reloads automatically a short while after
	// each commit.
	ReloadOnCommitWithDelay ReloadPolicy = iota
	// ReloadManual reloads only on explicit request.
	ReloadManual
)

func (p ReloadPolicy) String() string {
	if p == ReloadManual {
		return "MANUAL"
	}
	return "COMMIT_WITH_DELAY"
}

// ParseReloadPolicy resolves COMMIT_WITH_DELAY or MANUAL. An empty string
// selects COMMIT_WITH_DELAY.
func ParseReloadPolicy(s string) (ReloadPolicy, error) {
	switch normalize(s) {
	case "", "commit_with_delay", "on_commit_with_delay", "on_commit", "auto":
		return ReloadOnCommitWithDelay, nil
	case "manual":
		return ReloadManual, nil
	}
	return 0, errors.UnknownOption("reload policy", s)
}
