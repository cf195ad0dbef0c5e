package pgcep

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Rampap-Brasil/postmon/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const parcelColumns = `
  id, provider, code, callbacks, history,
  created_at, changed_at, checked_at, check_fail_count, next_check_at`

// RegisterParcel creates the (provider, code) record if absent and adds
// the callback to the set, all in one atomic statement. created_at and
// the null changed/checked timestamps are fixed at first insert only;
// re-registering only grows the callback set (never duplicating an
// identical callback payload).
func (s *Storage) RegisterParcel(ctx context.Context, provider, code string, callback json.RawMessage, now time.Time) (*models.Parcel, error) {
	row := s.db.QueryRow(ctx, `
INSERT INTO parcels (provider, code, callbacks, created_at, next_check_at)
VALUES ($1, $2, jsonb_build_array($3::jsonb), $4, $4)
ON CONFLICT (provider, code)
DO UPDATE SET callbacks = CASE
  WHEN parcels.callbacks @> jsonb_build_array($3::jsonb) THEN parcels.callbacks
  ELSE parcels.callbacks || jsonb_build_array($3::jsonb)
END
RETURNING`+parcelColumns, provider, code, callback, now.UTC())

	p, err := scanParcel(row)
	if err != nil {
		return nil, errors.Wrap(err, "register parcel")
	}
	return p, nil
}

// UpdateParcel always bumps checked_at; changed_at and history move only
// when changed is true. The caller computes changed by diffing histories.
// A failed poll grows the fail counter, a successful one resets it.
func (s *Storage) UpdateParcel(ctx context.Context, provider, code string, history json.RawMessage, changed, failed bool, checkedAt, nextCheckAt time.Time) error {
	_, err := s.db.Exec(ctx, `
UPDATE parcels
SET
  checked_at = $3,
  changed_at = CASE WHEN $4 THEN $3 ELSE changed_at END,
  history = CASE WHEN $4 THEN $5::jsonb ELSE history END,
  check_fail_count = CASE WHEN $6 THEN check_fail_count + 1 ELSE 0 END,
  next_check_at = $7
WHERE provider = $1 AND code = $2
`, provider, code, checkedAt.UTC(), changed, history, failed, nextCheckAt.UTC())
	return errors.Wrap(err, "update parcel")
}

func (s *Storage) GetParcel(ctx context.Context, provider, code string) (*models.Parcel, error) {
	row := s.db.QueryRow(ctx, `
SELECT`+parcelColumns+`
FROM parcels WHERE provider = $1 AND code = $2
`, provider, code)

	p, err := scanParcel(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select parcel")
	}
	return p, nil
}

func (s *Storage) ListParcels(ctx context.Context) ([]*models.Parcel, error) {
	rows, err := s.db.Query(ctx, `SELECT`+parcelColumns+` FROM parcels ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "select parcels")
	}
	defer rows.Close()

	var out []*models.Parcel
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan parcel")
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// ClaimDueParcels picks a batch of parcels ready for a poll and leases
// them so concurrent workers do not grab the same ones.
// Uses SELECT ... FOR UPDATE SKIP LOCKED.
func (s *Storage) ClaimDueParcels(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Parcel, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
SELECT`+parcelColumns+`
FROM parcels
WHERE next_check_at <= $1
ORDER BY next_check_at ASC
LIMIT $2
FOR UPDATE SKIP LOCKED
`, now.UTC(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "select due parcels")
	}
	defer rows.Close()

	var picked []*models.Parcel
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan due parcel")
		}
		picked = append(picked, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	leaseUntil := now.UTC().Add(lease)
	for _, p := range picked {
		if _, err := tx.Exec(ctx, `UPDATE parcels SET next_check_at = $2 WHERE id = $1`, p.ID, leaseUntil); err != nil {
			return nil, errors.Wrap(err, "lease parcel")
		}
		p.NextCheckAt = leaseUntil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return picked, nil
}

func scanParcel(row pgx.Row) (*models.Parcel, error) {
	var p models.Parcel
	var callbacks []byte
	var history []byte
	var changedAt, checkedAt *time.Time

	if err := row.Scan(
		&p.ID, &p.Provider, &p.Code, &callbacks, &history,
		&p.Meta.CreatedAt, &changedAt, &checkedAt, &p.FailCount, &p.NextCheckAt,
	); err != nil {
		return nil, err
	}

	p.Meta.ChangedAt = changedAt
	p.Meta.CheckedAt = checkedAt
	if err := json.Unmarshal(callbacks, &p.Meta.Callbacks); err != nil {
		return nil, errors.Wrap(err, "decode callbacks")
	}
	if len(history) > 0 {
		p.History = json.RawMessage(history)
	}
	return &p, nil
}
