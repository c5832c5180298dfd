package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brojonat/solwallet/service/metrics"
)

// Activity kinds
const (
	KindTransfer = "transfer"
	KindAirdrop  = "airdrop"
)

// Activity statuses
const (
	StatusPrepared  = "prepared"  // transfer assembled, awaiting signature
	StatusRequested = "requested" // airdrop requested from the faucet
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

const activityTable = "wallet_activity"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS wallet_activity (
		id          UUID PRIMARY KEY,
		address     TEXT NOT NULL,
		network     TEXT NOT NULL,
		kind        TEXT NOT NULL,
		signature   TEXT,
		mint        TEXT,
		amount      DOUBLE PRECISION NOT NULL DEFAULT 0,
		base_units  BIGINT NOT NULL DEFAULT 0,
		recipient   TEXT,
		status      TEXT NOT NULL,
		error       TEXT,
		workflow_id TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS wallet_activity_address_created_idx
		ON wallet_activity (address, created_at DESC)`,
}

const activityColumns = `id, address, network, kind, signature, mint, amount, base_units,
	recipient, status, error, workflow_id, created_at, updated_at`

// Store provides database operations for the wallet activity log.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
// If m is nil, no metrics are recorded.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{pool: pool, metrics: m}
}

// Activity is one transfer or airdrop initiated through the service.
type Activity struct {
	ID         uuid.UUID `json:"id"`
	Address    string    `json:"address"`
	Network    string    `json:"network"`
	Kind       string    `json:"kind"`
	Signature  *string   `json:"signature,omitempty"`
	Mint       *string   `json:"mint,omitempty"`
	Amount     float64   `json:"amount"`
	BaseUnits  int64     `json:"base_units"`
	Recipient  *string   `json:"recipient,omitempty"`
	Status     string    `json:"status"`
	Error      *string   `json:"error,omitempty"`
	WorkflowID *string   `json:"workflow_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RecordActivityParams contains the parameters for recording an activity.
type RecordActivityParams struct {
	ID         uuid.UUID // generated when zero
	Address    string
	Network    string
	Kind       string
	Signature  *string
	Mint       *string
	Amount     float64
	BaseUnits  int64
	Recipient  *string
	Status     string
	Error      *string
	WorkflowID *string
}

// UpdateActivityStatusParams changes the status of an activity. Nil
// Signature or Error leave the stored value unchanged.
type UpdateActivityStatusParams struct {
	ID        uuid.UUID
	Status    string
	Signature *string
	Error     *string
}

// ListActivityParams contains pagination parameters.
type ListActivityParams struct {
	Address string
	Limit   int32
	Offset  int32
}

// EnsureSchema creates the activity table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// RecordActivity inserts a new activity row.
func (s *Store) RecordActivity(ctx context.Context, params RecordActivityParams) (*Activity, error) {
	if params.ID == uuid.Nil {
		params.ID = uuid.New()
	}

	start := time.Now()
	row := s.pool.QueryRow(ctx,
		`INSERT INTO wallet_activity
			(id, address, network, kind, signature, mint, amount, base_units, recipient, status, error, workflow_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+activityColumns,
		pgUUID(params.ID),
		params.Address,
		params.Network,
		params.Kind,
		pgtextFromStringPtr(params.Signature),
		pgtextFromStringPtr(params.Mint),
		params.Amount,
		params.BaseUnits,
		pgtextFromStringPtr(params.Recipient),
		params.Status,
		pgtextFromStringPtr(params.Error),
		pgtextFromStringPtr(params.WorkflowID),
	)
	activity, err := scanActivity(row)
	s.observe("insert", start, err)
	if err != nil {
		return nil, err
	}
	return activity, nil
}

// UpdateActivityStatus updates the status (and optionally signature/error) of an activity.
// Returns pgx.ErrNoRows if the activity does not exist.
func (s *Store) UpdateActivityStatus(ctx context.Context, params UpdateActivityStatusParams) (*Activity, error) {
	start := time.Now()
	row := s.pool.QueryRow(ctx,
		`UPDATE wallet_activity
		SET status = $2,
			signature = COALESCE($3, signature),
			error = COALESCE($4, error),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+activityColumns,
		pgUUID(params.ID),
		params.Status,
		pgtextFromStringPtr(params.Signature),
		pgtextFromStringPtr(params.Error),
	)
	activity, err := scanActivity(row)
	s.observe("update", start, err)
	if err != nil {
		return nil, err
	}
	return activity, nil
}

// GetActivity retrieves an activity by ID.
func (s *Store) GetActivity(ctx context.Context, id uuid.UUID) (*Activity, error) {
	start := time.Now()
	row := s.pool.QueryRow(ctx,
		`SELECT `+activityColumns+` FROM wallet_activity WHERE id = $1`,
		pgUUID(id),
	)
	activity, err := scanActivity(row)
	s.observe("select", start, err)
	if err != nil {
		return nil, err
	}
	return activity, nil
}

// ListActivityByAddress lists activity for an address (as sender or
// airdrop recipient), newest first.
func (s *Store) ListActivityByAddress(ctx context.Context, params ListActivityParams) ([]*Activity, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx,
		`SELECT `+activityColumns+` FROM wallet_activity
		WHERE address = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		params.Address, params.Limit, params.Offset,
	)
	if err != nil {
		s.observe("list", start, err)
		return nil, err
	}
	defer rows.Close()

	activities := []*Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			s.observe("list", start, err)
			return nil, err
		}
		activities = append(activities, a)
	}
	err = rows.Err()
	s.observe("list", start, err)
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (s *Store) observe(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
	}
	s.metrics.RecordDBQuery(operation, activityTable, time.Since(start).Seconds(), err)
}

func scanActivity(row pgx.Row) (*Activity, error) {
	var (
		a          Activity
		id         pgtype.UUID
		signature  pgtype.Text
		mint       pgtype.Text
		recipient  pgtype.Text
		errText    pgtype.Text
		workflowID pgtype.Text
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
	)
	err := row.Scan(
		&id, &a.Address, &a.Network, &a.Kind, &signature, &mint, &a.Amount, &a.BaseUnits,
		&recipient, &a.Status, &errText, &workflowID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.ID = uuid.UUID(id.Bytes)
	a.Signature = stringPtrFromPgtext(signature)
	a.Mint = stringPtrFromPgtext(mint)
	a.Recipient = stringPtrFromPgtext(recipient)
	a.Error = stringPtrFromPgtext(errText)
	a.WorkflowID = stringPtrFromPgtext(workflowID)
	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time
	return &a, nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgtextFromStringPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func stringPtrFromPgtext(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}
