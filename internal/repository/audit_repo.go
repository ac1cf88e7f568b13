// internal/repository/audit_repo.go
package repository

import (
	"context"

	"wallet-ledger/internal/domain"

	"github.com/google/uuid"
)

// AuditLogRepository is the append-only Audit Log. It has no update or delete operations.
type AuditLogRepository interface {
	// AppendEntry inserts one immutable entry.
	AppendEntry(ctx context.Context, q DBExecutor, entry *domain.AuditEntry) error
	// GetEntriesByOwner returns a page of the owner's entries, newest first, and the total count.
	GetEntriesByOwner(ctx context.Context, q DBExecutor, ownerID uuid.UUID, limit, offset int) ([]domain.AuditEntry, int64, error)
	// GetEntriesByReference returns every entry written for an originating record.
	GetEntriesByReference(ctx context.Context, q DBExecutor, referenceID uuid.UUID) ([]domain.AuditEntry, error)
}
