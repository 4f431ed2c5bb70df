package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
	"tapgate/contexts/faucet-access/claim-service/ports"
)

// Repository is the PostgreSQL claim ledger. Inserts under a once-per-lifetime
// policy lean on a partial unique index over (distributor_id, embedded_wallet)
// so concurrent duplicates lose at the database instead of racing the check.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Insert(ctx context.Context, record entities.ClaimRecord) error {
	row := claimModelFromEntity(record)
	create := r.db.WithContext(ctx).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrAlreadyClaimed
		}
		return r.logError("claim_repo_insert_failed", create.Error,
			"claim_id", row.ID,
			"distributor_id", row.DistributorID,
			"wallet", row.EmbeddedWallet,
		)
	}
	return nil
}

func (r *Repository) HasClaim(ctx context.Context, wallet string, distributorID string) (bool, error) {
	wallet = entities.NormalizeWallet(wallet)
	var count int64
	err := r.db.WithContext(ctx).Model(&claimModel{}).
		Where("distributor_id = ?", strings.TrimSpace(distributorID)).
		Where("embedded_wallet = ? OR external_wallet = ?", wallet, wallet).
		Count(&count).
		Error
	if err != nil {
		return false, r.logError("claim_repo_has_claim_failed", err,
			"distributor_id", strings.TrimSpace(distributorID),
			"wallet", wallet,
		)
	}
	return count > 0, nil
}

func (r *Repository) RecentClaims(ctx context.Context, wallet string, distributorID string, since time.Time) ([]entities.ClaimRecord, error) {
	wallet = entities.NormalizeWallet(wallet)
	var rows []claimModel
	err := r.db.WithContext(ctx).
		Where("distributor_id = ?", strings.TrimSpace(distributorID)).
		Where("embedded_wallet = ? OR external_wallet = ?", wallet, wallet).
		Where("created_at >= ?", since.UTC()).
		Order("created_at DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("claim_repo_recent_claims_failed", err,
			"distributor_id", strings.TrimSpace(distributorID),
			"wallet", wallet,
		)
	}
	items := make([]entities.ClaimRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) Stats(ctx context.Context) (entities.LedgerStats, error) {
	var aggregate struct {
		TotalClaims   int64
		UniqueWallets int64
		TotalAmount   decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&claimModel{}).
		Select("COUNT(*) AS total_claims, COUNT(DISTINCT embedded_wallet) AS unique_wallets, COALESCE(SUM(amount), 0) AS total_amount").
		Scan(&aggregate).
		Error
	if err != nil {
		return entities.LedgerStats{}, r.logError("claim_repo_stats_failed", err)
	}

	var last24h int64
	err = r.db.WithContext(ctx).Model(&claimModel{}).
		Where("created_at >= ?", time.Now().UTC().Add(-24*time.Hour)).
		Count(&last24h).
		Error
	if err != nil {
		return entities.LedgerStats{}, r.logError("claim_repo_stats_window_failed", err)
	}

	return entities.LedgerStats{
		TotalClaims:   aggregate.TotalClaims,
		UniqueWallets: aggregate.UniqueWallets,
		TotalAmount:   aggregate.TotalAmount,
		ClaimsLast24h: last24h,
	}, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "faucet-access/claim-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("claim repository operation failed", fields...)
	return err
}

type claimModel struct {
	ID             string          `gorm:"column:id;primaryKey"`
	DistributorID  string          `gorm:"column:distributor_id"`
	EmbeddedWallet string          `gorm:"column:embedded_wallet"`
	ExternalWallet string          `gorm:"column:external_wallet"`
	VisitorID      string          `gorm:"column:visitor_id"`
	ClientIP       string          `gorm:"column:ip"`
	UpstreamTxID   *string         `gorm:"column:tx_id"`
	TransferTxID   *string         `gorm:"column:transfer_tx_id"`
	Amount         decimal.Decimal `gorm:"column:amount"`
	Exclusive      bool            `gorm:"column:exclusive"`
	CreatedAt      time.Time       `gorm:"column:created_at"`
}

func (claimModel) TableName() string {
	return "claims"
}

func claimModelFromEntity(record entities.ClaimRecord) claimModel {
	row := claimModel{
		ID:             strings.TrimSpace(record.ID),
		DistributorID:  strings.TrimSpace(record.DistributorID),
		EmbeddedWallet: entities.NormalizeWallet(record.EmbeddedWallet),
		ExternalWallet: entities.NormalizeWallet(record.ExternalWallet),
		VisitorID:      strings.TrimSpace(record.VisitorID),
		ClientIP:       strings.TrimSpace(record.ClientIP),
		UpstreamTxID:   record.UpstreamTxID,
		TransferTxID:   record.TransferTxID,
		Amount:         record.Amount,
		Exclusive:      record.Exclusive,
		CreatedAt:      record.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m claimModel) toEntity() entities.ClaimRecord {
	return entities.ClaimRecord{
		ID:             m.ID,
		DistributorID:  m.DistributorID,
		EmbeddedWallet: m.EmbeddedWallet,
		ExternalWallet: m.ExternalWallet,
		VisitorID:      m.VisitorID,
		ClientIP:       m.ClientIP,
		UpstreamTxID:   m.UpstreamTxID,
		TransferTxID:   m.TransferTxID,
		Amount:         m.Amount,
		Exclusive:      m.Exclusive,
		CreatedAt:      m.CreatedAt.UTC(),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ClaimLedger = (*Repository)(nil)
