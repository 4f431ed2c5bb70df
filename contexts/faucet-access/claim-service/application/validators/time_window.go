package validators

import (
	"context"
	"fmt"
	"time"

	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
	"tapgate/contexts/faucet-access/claim-service/ports"
)

// TimeWindowConfig caps claim count inside a rolling window and enforces a
// minimum spacing between consecutive claims. Both constraints must hold.
type TimeWindowConfig struct {
	Window    time.Duration
	MaxClaims int
	Cooldown  time.Duration
}

// TimeWindow is the generic rate-limit validator.
type TimeWindow struct {
	distributorID string
	cfg           TimeWindowConfig
	ledger        ports.ClaimLedger
	clock         ports.Clock
}

func NewTimeWindow(
	distributorID string,
	cfg TimeWindowConfig,
	ledger ports.ClaimLedger,
	clock ports.Clock,
) (*TimeWindow, error) {
	if distributorID == "" || ledger == nil || clock == nil {
		return nil, fmt.Errorf("%w: time-window requires a distributor id, ledger and clock",
			domainerrors.ErrInvalidDistributorConfig)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("%w: time-window window must be positive",
			domainerrors.ErrInvalidDistributorConfig)
	}
	if cfg.MaxClaims < 1 {
		return nil, fmt.Errorf("%w: time-window max claims must be at least 1",
			domainerrors.ErrInvalidDistributorConfig)
	}
	if cfg.Cooldown < 0 {
		return nil, fmt.Errorf("%w: time-window cooldown must not be negative",
			domainerrors.ErrInvalidDistributorConfig)
	}
	// A cooldown that cannot fit max claims inside the window means the
	// configured maximum is unreachable; reject instead of serving a limit
	// that can never trip.
	if spacing := cfg.Cooldown * time.Duration(cfg.MaxClaims-1); spacing > cfg.Window {
		return nil, fmt.Errorf(
			"%w: cooldown %s with %d claims needs %s, exceeding the %s window",
			domainerrors.ErrInvalidDistributorConfig,
			cfg.Cooldown, cfg.MaxClaims, spacing, cfg.Window,
		)
	}
	return &TimeWindow{
		distributorID: distributorID,
		cfg:           cfg,
		ledger:        ledger,
		clock:         clock,
	}, nil
}

func buildTimeWindow(env BuildEnvironment, cfg Config) (Validator, error) {
	window, err := resolveWindow(cfg)
	if err != nil {
		return nil, err
	}
	maxClaims := cfg.MaxClaims
	if maxClaims == 0 {
		maxClaims = 1
	}
	cooldown := time.Duration(cfg.CooldownSecs) * time.Second
	if cooldown == 0 && cfg.CooldownHours > 0 {
		cooldown = time.Duration(cfg.CooldownHours) * time.Hour
	}
	if cooldown == 0 {
		cooldown = 24 * time.Hour
	}
	return NewTimeWindow(env.DistributorID, TimeWindowConfig{
		Window:    window,
		MaxClaims: maxClaims,
		Cooldown:  cooldown,
	}, env.Ledger, env.Clock)
}

func resolveWindow(cfg Config) (time.Duration, error) {
	if cfg.WindowSeconds > 0 {
		return time.Duration(cfg.WindowSeconds) * time.Second, nil
	}
	period := cfg.Period
	if period == "" {
		period = "week"
	}
	switch period {
	case "hour":
		return time.Hour, nil
	case "day":
		return 24 * time.Hour, nil
	case "week":
		return 7 * 24 * time.Hour, nil
	case "month":
		return 30 * 24 * time.Hour, nil
	case "year":
		return 365 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: unknown time-window period %q",
			domainerrors.ErrInvalidDistributorConfig, period)
	}
}

func (v *TimeWindow) Name() string { return TypeTimeWindow }

func (v *TimeWindow) Validate(ctx context.Context, claim entities.ClaimContext) (entities.Patch, error) {
	wallet := claimantWallet(claim)
	if wallet == "" {
		return nil, domainerrors.ErrWalletUnavailable
	}

	now := v.clock.Now().UTC()
	records, err := v.ledger.RecentClaims(ctx, wallet, v.distributorID, now.Add(-v.cfg.Window))
	if err != nil {
		return nil, fmt.Errorf("time-window lookup: %w", err)
	}
	if len(records) == 0 {
		return entities.Patch{entities.AttachmentValidatedWallet: wallet}, nil
	}

	// Records are newest-first; the last one is the oldest still in window.
	if len(records) >= v.cfg.MaxClaims {
		oldest := records[len(records)-1]
		nextSlot := oldest.CreatedAt.Add(v.cfg.Window)
		if wait := nextSlot.Sub(now); wait > 0 {
			return nil, fmt.Errorf("%w: limit reached (%d/%d), next claim slot in %s",
				domainerrors.ErrRateLimited, len(records), v.cfg.MaxClaims, roundWait(wait))
		}
	}

	// The cooldown between consecutive claims applies even when the window
	// count still has room.
	latest := records[0]
	if sinceLast := now.Sub(latest.CreatedAt); sinceLast < v.cfg.Cooldown {
		return nil, fmt.Errorf("%w: cooldown active, claim again in %s",
			domainerrors.ErrRateLimited, roundWait(v.cfg.Cooldown-sinceLast))
	}

	return entities.Patch{entities.AttachmentValidatedWallet: wallet}, nil
}

func roundWait(wait time.Duration) time.Duration {
	rounded := wait.Round(time.Minute)
	if rounded < time.Minute {
		return time.Minute
	}
	return rounded
}
