package adapter

import (
	"context"
	"time"
)

type SpamVerdictKind string

const (
	SpamAllow  SpamVerdictKind = "allow"
	SpamWarn   SpamVerdictKind = "warn"
	SpamBanned SpamVerdictKind = "banned"
)

// SpamVerdict is the outcome of an anti-spam check for one inbound event.
type SpamVerdict struct {
	Kind      SpamVerdictKind
	Remaining time.Duration // time left on the ban when Kind is SpamBanned
	NewBan    bool          // the ban was issued by this check
}

func (v SpamVerdict) Allowed() bool { return v.Kind == SpamAllow }

// SpamGuard throttles inbound user events before they reach the core.
type SpamGuard interface {
	Check(ctx context.Context, tgID int64) (SpamVerdict, error)
}
