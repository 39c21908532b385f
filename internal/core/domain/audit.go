package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry records a sensitive API action (admin balance edits, listing
// deletions) for later review. Entries are append-only.
type AuditEntry struct {
	ID        uuid.UUID  `json:"id"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty"`
	Method    string     `json:"method"`
	Path      string     `json:"path"`
	Status    int        `json:"status"`
	ClientIP  string     `json:"client_ip"`
	CreatedAt time.Time  `json:"created_at"`
}
