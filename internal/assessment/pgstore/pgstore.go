// Package pgstore provides a PostgreSQL implementation of assessment.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/acuity/internal/assessment"
	"github.com/linnemanlabs/acuity/internal/risk"
)

var tracer = otel.Tracer("github.com/linnemanlabs/acuity/internal/assessment/pgstore")

//go:embed schema.sql
var schema string

// Store persists assessments in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store. The pool is owned by
// the caller and not closed here.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const assessmentColumns = `id, fingerprint, status, patient_ref, context, result,
	explanation, created_at, completed_at, duration_s`

// Get retrieves an assessment by ID.
func (s *Store) Get(ctx context.Context, id string) (*assessment.Assessment, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE id = $1`
	a, err := scanAssessmentRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if a == nil {
		return nil, false, nil
	}
	return a, true, nil
}

// GetByFingerprint retrieves the most recent assessment for a snapshot fingerprint.
func (s *Store) GetByFingerprint(ctx context.Context, fingerprint string) (*assessment.Assessment, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetByFingerprint", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE fingerprint = $1 ORDER BY created_at DESC LIMIT 1`
	a, err := scanAssessmentRow(s.pool.QueryRow(ctx, query, fingerprint))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if a == nil {
		return nil, false, nil
	}
	return a, true, nil
}

// Put inserts or updates an assessment (upsert on id).
func (s *Store) Put(ctx context.Context, a *assessment.Assessment) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	contextJSON, err := json.Marshal(a.Context)
	if err != nil {
		err = fmt.Errorf("marshal context: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	var resultJSON []byte
	if a.Result != nil {
		resultJSON, err = json.Marshal(a.Result)
		if err != nil {
			err = fmt.Errorf("marshal result: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	var completedAt *time.Time
	if !a.CompletedAt.IsZero() {
		completedAt = &a.CompletedAt
	}

	query := `INSERT INTO assessments (
		id, fingerprint, status, patient_ref, context, result,
		explanation, created_at, completed_at, duration_s
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (id) DO UPDATE SET
		fingerprint  = EXCLUDED.fingerprint,
		status       = EXCLUDED.status,
		patient_ref  = EXCLUDED.patient_ref,
		context      = EXCLUDED.context,
		result       = EXCLUDED.result,
		explanation  = EXCLUDED.explanation,
		completed_at = EXCLUDED.completed_at,
		duration_s   = EXCLUDED.duration_s`

	_, err = s.pool.Exec(ctx, query,
		a.ID, a.Fingerprint, string(a.Status), a.PatientRef, contextJSON, resultJSON,
		a.Explanation, a.CreatedAt, completedAt, a.Duration,
	)
	if err != nil {
		err = fmt.Errorf("upsert assessment: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// scanAssessmentRow scans a single row into an Assessment.
// Returns (nil, nil) when no row is found.
func scanAssessmentRow(row pgx.Row) (*assessment.Assessment, error) {
	var (
		a           assessment.Assessment
		status      string
		contextJSON []byte
		resultJSON  []byte
		completedAt *time.Time
	)

	err := row.Scan(
		&a.ID, &a.Fingerprint, &status, &a.PatientRef, &contextJSON, &resultJSON,
		&a.Explanation, &a.CreatedAt, &completedAt, &a.Duration,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	a.Status = assessment.Status(status)

	if completedAt != nil {
		a.CompletedAt = *completedAt
	}

	if len(contextJSON) > 0 {
		a.Context = &risk.Context{}
		if err := json.Unmarshal(contextJSON, a.Context); err != nil {
			return nil, fmt.Errorf("unmarshal context: %w", err)
		}
	}
	if len(resultJSON) > 0 {
		a.Result = &risk.Result{}
		if err := json.Unmarshal(resultJSON, a.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return &a, nil
}
