package domain

import (
	"context"
	"time"
)

// LocalCache is the synchronous string key/value store backing offline use.
// Get reports found=false for missing keys rather than an error.
type LocalCache interface {
	Get(key string) (value string, found bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Local cache keys.
const (
	KeyAgencies        = "agencies"
	KeyCurrentAgencyID = "currentAgencyId"
	KeyUserRole        = "userRole"
	KeyDemoMode        = "isDemoMode"
	KeyAppPasscode     = "appPasscode"

	// Legacy single-agency layout, read once for migration.
	KeyLegacyProjects   = "projects"
	KeyLegacyCategories = "categories"
	KeyLegacyBudget     = "totalAllocatedBudget"
)

// RemoteDocument is the per-user row held by the remote store.
type RemoteDocument struct {
	Data      Snapshot  `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RemoteStore is the cloud copy of a user's snapshot, one document per
// authenticated user. Upsert replaces the whole document.
type RemoteStore interface {
	Fetch(ctx context.Context, userID string) (doc RemoteDocument, found bool, err error)
	Upsert(ctx context.Context, userID string, doc RemoteDocument) error
}
