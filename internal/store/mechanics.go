package store

import "context"

// Mechanic populates the mechanic filter control on the maintenance view.
type Mechanic struct {
	EmployeeNumber string `json:"employee_number"`
	Name           string `json:"name"`
	Surname        string `json:"surname"`
}

func (s *Store) ListMechanics(ctx context.Context) ([]Mechanic, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT employee_number, name, surname
		FROM mechanics
		ORDER BY surname, name`)
	if err != nil {
		return nil, wrap("list mechanics", err)
	}
	defer rows.Close()

	var mechanics []Mechanic
	for rows.Next() {
		var m Mechanic
		if err := rows.Scan(&m.EmployeeNumber, &m.Name, &m.Surname); err != nil {
			return nil, wrap("scan mechanic", err)
		}
		mechanics = append(mechanics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list mechanics", err)
	}
	return mechanics, nil
}
