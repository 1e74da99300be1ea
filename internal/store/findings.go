package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrFindingNotFound is returned when converting a finding that does not
// exist.
var ErrFindingNotFound = errors.New("finding not found")

// Finding is one row of the findings_log table: an inspection item awaiting
// operator triage.
type Finding struct {
	ID             int64  `json:"id"`
	FindingSummary string `json:"finding_summary"`
	Details        string `json:"details"`
	Status         string `json:"status,omitempty"`
}

func (s *Store) ListFindings(ctx context.Context) ([]Finding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, finding_summary, details, COALESCE(status, '')
		FROM findings_log
		ORDER BY id`)
	if err != nil {
		return nil, wrap("list findings", err)
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var f Finding
		if err := rows.Scan(&f.ID, &f.FindingSummary, &f.Details, &f.Status); err != nil {
			return nil, wrap("scan finding", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list findings", err)
	}
	return findings, nil
}

func (s *Store) SetFindingStatus(ctx context.Context, id int64, status string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE findings_log SET status = $1 WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return wrap("set finding status", err)
	}
	return nil
}

// ConvertFindingToTask creates a maintenance task from a finding and marks
// the finding converted, in one transaction. The task description defaults to
// the finding's summary and details when the caller leaves it empty.
func (s *Store) ConvertFindingToTask(ctx context.Context, findingID int64, t NewTask) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, wrap("convert finding", err)
	}
	defer tx.Rollback(ctx)

	var summary, details string
	err = tx.QueryRow(ctx, `
		SELECT finding_summary, details FROM findings_log WHERE id = $1`,
		findingID,
	).Scan(&summary, &details)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrFindingNotFound
	}
	if err != nil {
		return 0, wrap("load finding", err)
	}

	if t.Description == "" {
		t.Description = summary + "\n\n" + details
	}

	var taskID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO scheduled_maintenance
			(machine_id, machine_type, issue_type, description, assignee,
			 mechanic_name, priority, status, due_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'open', $8)
		RETURNING id`,
		t.MachineID, t.MachineType, t.IssueType, t.Description, t.Assignee,
		t.MechanicName, t.Priority, t.DueBy,
	).Scan(&taskID)
	if err != nil {
		return 0, wrap("insert task from finding", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE findings_log SET status = 'converted' WHERE id = $1`,
		findingID,
	)
	if err != nil {
		return 0, wrap("mark finding converted", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, wrap("convert finding commit", err)
	}
	return taskID, nil
}

func (s *Store) CreateFinding(ctx context.Context, summary, details string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO findings_log (finding_summary, details)
		VALUES ($1, $2)
		RETURNING id`,
		summary, details,
	).Scan(&id)
	if err != nil {
		return 0, wrap("create finding", err)
	}
	return id, nil
}
