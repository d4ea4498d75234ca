package types

import (
	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/samber/lo"
)

// TransitionKind identifies the subscription lifecycle transition that a
// billing event represents. The ordering of the constants also defines the
// tie-break priority when two events share an effective date: a CANCEL must
// sort after the CREATE/CHANGE it terminates.
type TransitionKind string

const (
	TransitionCreate    TransitionKind = "CREATE"
	TransitionChange    TransitionKind = "CHANGE"
	TransitionPhase     TransitionKind = "PHASE"
	TransitionBCDChange TransitionKind = "BCD_CHANGE"
	TransitionPause     TransitionKind = "PAUSE"
	TransitionResume    TransitionKind = "RESUME"
	TransitionTransfer  TransitionKind = "TRANSFER"
	TransitionCancel    TransitionKind = "CANCEL"
)

func (k TransitionKind) String() string {
	return string(k)
}

// Priority returns the tie-break ordering for events sharing an effective date
func (k TransitionKind) Priority() int {
	switch k {
	case TransitionCreate:
		return 0
	case TransitionResume:
		return 1
	case TransitionChange:
		return 2
	case TransitionPhase:
		return 3
	case TransitionBCDChange:
		return 4
	case TransitionTransfer:
		return 5
	case TransitionPause:
		return 6
	case TransitionCancel:
		return 7
	default:
		return 8
	}
}

func (k TransitionKind) Validate() error {
	allowed := []TransitionKind{
		TransitionCreate,
		TransitionChange,
		TransitionPhase,
		TransitionBCDChange,
		TransitionPause,
		TransitionResume,
		TransitionTransfer,
		TransitionCancel,
	}
	if !lo.Contains(allowed, k) {
		return ierr.NewError("invalid transition kind").
			WithHint("Please provide a valid transition kind").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsBillingStop reports whether the transition suspends or terminates charge
// generation for the subscription until a subsequent RESUME (if any).
func (k TransitionKind) IsBillingStop() bool {
	return k == TransitionCancel || k == TransitionPause
}
