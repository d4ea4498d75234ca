package account

import (
	"time"

	"github.com/samber/lo"

	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/reinvoice/reinvoice/internal/types"
)

// Account is the billing account that owns subscriptions, invoices and the
// credit pool. Parked state and tags gate reconciliation behavior.
type Account struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Currency     string             `json:"currency"`
	Timezone     string             `json:"timezone"`
	BillCycleDay int                `json:"bill_cycle_day"`
	Tags         []types.AccountTag `json:"tags,omitempty"`
	// ParkedAt is set when reconciliation detected an unrecoverable
	// inconsistency; invoicing is suspended until it is explicitly lifted
	ParkedAt *time.Time     `json:"parked_at,omitempty"`
	Metadata types.Metadata `json:"metadata,omitempty"`
	types.BaseModel
}

func (a *Account) IsParked() bool {
	return a.ParkedAt != nil
}

func (a *Account) HasTag(tag types.AccountTag) bool {
	return lo.Contains(a.Tags, tag)
}

// Location resolves the account timezone, falling back to the given default
func (a *Account) Location(defaultTZ string) (*time.Location, error) {
	tz := a.Timezone
	if tz == "" {
		tz = defaultTZ
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("failed to load account timezone '%s'", tz).
			Mark(ierr.ErrValidation)
	}
	return loc, nil
}

func (a *Account) Validate() error {
	if a.Currency == "" {
		return ierr.NewError("currency is required").
			WithHint("Account must carry a billing currency").
			Mark(ierr.ErrValidation)
	}
	if a.BillCycleDay < 1 || a.BillCycleDay > 31 {
		return ierr.NewError("invalid bill cycle day").
			WithHintf("bill cycle day must be in [1,31], got %d", a.BillCycleDay).
			Mark(ierr.ErrValidation)
	}
	for _, tag := range a.Tags {
		if err := tag.Validate(); err != nil {
			return err
		}
	}
	return nil
}
