// internal/repository/postgres/audit_pg.go
package postgres

import (
	"context"
	"fmt"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const auditColumns = `id, owner_id, balance_id, kind, context, reference_id, amount, balance_before, balance_after, status, created_at`

// AuditLogRepository implements repository.AuditLogRepository for PostgreSQL.
// It only ever issues INSERT and SELECT against audit_entries.
type AuditLogRepository struct{}

// NewAuditLogRepository creates a new AuditLogRepository.
func NewAuditLogRepository(db *sqlx.DB) repository.AuditLogRepository {
	return &AuditLogRepository{}
}

// AppendEntry inserts a new audit entry.
func (r *AuditLogRepository) AppendEntry(ctx context.Context, q repository.DBExecutor, entry *domain.AuditEntry) error {
	query := `INSERT INTO audit_entries (` + auditColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := q.ExecContext(ctx, query,
		entry.ID,
		entry.OwnerID,
		entry.BalanceID,
		entry.Kind,
		entry.Context,
		entry.ReferenceID,
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.Status,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", translateError(err))
	}
	return nil
}

// GetEntriesByOwner retrieves a paginated list of the owner's audit entries.
// It performs two queries: one for the page and one for the total count.
func (r *AuditLogRepository) GetEntriesByOwner(ctx context.Context, q repository.DBExecutor, ownerID uuid.UUID, limit, offset int) ([]domain.AuditEntry, int64, error) {
	entries := []domain.AuditEntry{}

	query := `
		SELECT ` + auditColumns + `
		FROM audit_entries
		WHERE owner_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &entries, query, ownerID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit entries for owner %s: %w", ownerID, err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM audit_entries WHERE owner_id = $1`
	if err := q.GetContext(ctx, &totalCount, countQuery, ownerID); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries for owner %s: %w", ownerID, err)
	}

	return entries, totalCount, nil
}

// GetEntriesByReference retrieves the entries written for one originating record.
func (r *AuditLogRepository) GetEntriesByReference(ctx context.Context, q repository.DBExecutor, referenceID uuid.UUID) ([]domain.AuditEntry, error) {
	entries := []domain.AuditEntry{}
	query := `SELECT ` + auditColumns + ` FROM audit_entries WHERE reference_id = $1 ORDER BY created_at`
	if err := q.SelectContext(ctx, &entries, query, referenceID); err != nil {
		return nil, fmt.Errorf("failed to fetch audit entries for reference %s: %w", referenceID, err)
	}
	return entries, nil
}
