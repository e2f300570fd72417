package claim

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service manages device claims backed by SQLite.
//
// Invariants enforced here and by the schema:
//   - A user holds at most one live claim (unique partial index on claimed_by).
//   - A device is claimed by at most one user (claimed_by is a single column).
//   - Releasing keeps the row so the device can be claimed again.
type Service struct {
	db *sql.DB
}

// NewService creates a claim service on top of an open database.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// GetClaimFor returns the claim currently held by a user.
//
// Returns ErrNotClaimed if the user holds no claim.
func (s *Service) GetClaimFor(ctx context.Context, userID string) (*DeviceClaim, error) {
	var c DeviceClaim

	err := s.db.QueryRowContext(ctx,
		"SELECT id, provisioning_id FROM claims WHERE claimed_by = ?", userID,
	).Scan(&c.ID, &c.ProvisioningID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotClaimed
		}
		return nil, fmt.Errorf("getting claim for user: %w", err)
	}

	return &c, nil
}

// ClaimDevice binds a device to a user.
//
// The claim row must exist and be unclaimed. If it does not exist and
// canCreate is true (device-admin role), the row is auto-created with the
// provisioning id equal to the claim id.
//
// Returns ErrAlreadyClaimed when the device is unknown (and canCreate is
// false) or held by another user.
func (s *Service) ClaimDevice(ctx context.Context, claimID, userID string, canCreate bool) (*DeviceClaim, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	now := time.Now().UTC().Format(time.RFC3339)

	var provisioningID string
	var claimedBy sql.NullString
	err = tx.QueryRowContext(ctx,
		"SELECT provisioning_id, claimed_by FROM claims WHERE id = ?", claimID,
	).Scan(&provisioningID, &claimedBy)

	switch {
	case err == sql.ErrNoRows:
		if !canCreate {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyClaimed, claimID)
		}
		// Auto-created claims address the device by its claim id.
		provisioningID = claimID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO claims (id, provisioning_id, claimed_by, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			claimID, provisioningID, userID, now, now,
		); err != nil {
			return nil, fmt.Errorf("creating claim: %w", err)
		}

	case err != nil:
		return nil, fmt.Errorf("looking up claim: %w", err)

	case claimedBy.Valid:
		return nil, fmt.Errorf("%w: %s", ErrAlreadyClaimed, claimID)

	default:
		if _, err := tx.ExecContext(ctx,
			"UPDATE claims SET claimed_by = ?, updated_at = ? WHERE id = ?",
			userID, now, claimID,
		); err != nil {
			return nil, fmt.Errorf("claiming device: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	return &DeviceClaim{ID: claimID, ProvisioningID: provisioningID}, nil
}

// ClaimSimulator creates and claims a fresh simulated device for a user.
// Simulator claims get a generated "simulator-<uuid>" id.
func (s *Service) ClaimSimulator(ctx context.Context, userID string) (*DeviceClaim, error) {
	id := SimulatorPrefix + uuid.NewString()
	return s.ClaimDevice(ctx, id, userID, true)
}

// ReleaseClaim releases the claim held by a user, keeping the row so the
// device can be claimed again. Returns true if a claim was released.
func (s *Service) ReleaseClaim(ctx context.Context, userID string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx,
		"UPDATE claims SET claimed_by = NULL, updated_at = ? WHERE claimed_by = ?",
		now, userID,
	)
	if err != nil {
		return false, fmt.Errorf("releasing claim: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count > 0, nil
}

// DeleteClaim removes a claim row entirely. Used for decommissioned
// devices and discarded simulators. Returns true if a row was deleted.
func (s *Service) DeleteClaim(ctx context.Context, claimID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM claims WHERE id = ?", claimID,
	)
	if err != nil {
		return false, fmt.Errorf("deleting claim: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count > 0, nil
}

// CreateClaim seeds a claim row, replacing any existing entry.
// Used when provisioning a batch of physical devices.
func (s *Service) CreateClaim(ctx context.Context, id, provisioningID string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO claims (id, provisioning_id, claimed_by, created_at, updated_at)
		 VALUES (?, ?, NULL, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET provisioning_id = excluded.provisioning_id, updated_at = excluded.updated_at`,
		id, provisioningID, now, now,
	)
	if err != nil {
		return fmt.Errorf("creating claim: %w", err)
	}

	return nil
}
