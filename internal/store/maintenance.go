package store

import (
	"context"
	"fmt"
	"time"
)

// MaintenanceTask is one row of the scheduled_maintenance table. A task is
// created open and transitions to completed exactly once.
type MaintenanceTask struct {
	ID           int64      `json:"id"`
	MachineID    string     `json:"machine_id"`
	MachineType  string     `json:"machine_type"`
	IssueType    string     `json:"issue_type"`
	Description  string     `json:"description"`
	Assignee     string     `json:"assignee"`
	MechanicName string     `json:"mechanic_name"`
	Priority     string     `json:"priority"`
	Status       string     `json:"status"`
	DueBy        time.Time  `json:"due_by"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

// TaskFilter narrows ListMaintenanceTasks by exact-match equality. Empty
// fields apply no filter.
type TaskFilter struct {
	Status   string
	Mechanic string
	Priority string
}

func (s *Store) ListMaintenanceTasks(ctx context.Context, filter TaskFilter) ([]MaintenanceTask, error) {
	query := `
		SELECT id, machine_id, machine_type, issue_type, description, assignee,
		       mechanic_name, priority, status, due_by, completed_at, COALESCE(notes, '')
		FROM scheduled_maintenance`

	var (
		conds []string
		args  []any
	)
	addCond := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	addCond("status", filter.Status)
	addCond("mechanic_name", filter.Mechanic)
	addCond("priority", filter.Priority)

	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY due_by"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list maintenance tasks", err)
	}
	defer rows.Close()

	var tasks []MaintenanceTask
	for rows.Next() {
		var t MaintenanceTask
		if err := rows.Scan(
			&t.ID, &t.MachineID, &t.MachineType, &t.IssueType, &t.Description,
			&t.Assignee, &t.MechanicName, &t.Priority, &t.Status, &t.DueBy,
			&t.CompletedAt, &t.Notes,
		); err != nil {
			return nil, wrap("scan maintenance task", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list maintenance tasks", err)
	}
	return tasks, nil
}

// CompleteMaintenanceTask marks an open task completed, stamping completed_at
// and notes in the same statement. Returns ErrTaskNotOpen if the task does
// not exist or was already completed.
func (s *Store) CompleteMaintenanceTask(ctx context.Context, id int64, notes string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE scheduled_maintenance
		SET status = 'completed', completed_at = now(), notes = $1
		WHERE id = $2 AND status = 'open'`,
		notes, id,
	)
	if err != nil {
		return wrap("complete maintenance task", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotOpen
	}
	return nil
}

// NewTask carries the fields for task creation. Status and completion fields
// are owned by the store.
type NewTask struct {
	MachineID    string    `json:"machine_id"`
	MachineType  string    `json:"machine_type"`
	IssueType    string    `json:"issue_type"`
	Description  string    `json:"description"`
	Assignee     string    `json:"assignee"`
	MechanicName string    `json:"mechanic_name"`
	Priority     string    `json:"priority"`
	DueBy        time.Time `json:"due_by"`
}

func (s *Store) CreateMaintenanceTask(ctx context.Context, t NewTask) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO scheduled_maintenance
			(machine_id, machine_type, issue_type, description, assignee,
			 mechanic_name, priority, status, due_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'open', $8)
		RETURNING id`,
		t.MachineID, t.MachineType, t.IssueType, t.Description, t.Assignee,
		t.MechanicName, t.Priority, t.DueBy,
	).Scan(&id)
	if err != nil {
		return 0, wrap("create maintenance task", err)
	}
	return id, nil
}
