package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// EmployeeRepository provides SQLite-backed employee storage
type EmployeeRepository struct {
	pool *Pool
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(pool *Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

const employeeColumns = `emp_id, name, role, team, email, phone, profile_image, registration_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*database.Employee, error) {
	var e database.Employee
	var registered string
	if err := row.Scan(&e.EmpID, &e.Name, &e.Role, &e.Team, &e.Email, &e.Phone, &e.ProfileImage, &registered); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by callers
	}
	e.RegistrationDate = parseTimestamp(registered)
	return &e, nil
}

// GetEmployee retrieves an employee by ID
func (r *EmployeeRepository) GetEmployee(ctx context.Context, empID string) (*database.Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE emp_id = ?`, empID)
	e, err := scanEmployee(row)
	if err != nil {
		return nil, mapError("get employee", err)
	}
	return e, nil
}

// ListEmployees returns all employees ordered by name
func (r *EmployeeRepository) ListEmployees(ctx context.Context) ([]database.Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY name COLLATE NOCASE, emp_id`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []database.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return out, nil
}

// CountEmployees returns the number of registered employees
func (r *EmployeeRepository) CountEmployees(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM employees`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count employees: %w", err)
	}
	return n, nil
}

func registrationDate(e *database.Employee) string {
	if e.RegistrationDate.IsZero() {
		e.RegistrationDate = time.Now()
	}
	return formatTimestamp(e.RegistrationDate)
}

// UpsertEmployee inserts or replaces the employee row
func (r *EmployeeRepository) UpsertEmployee(ctx context.Context, e *database.Employee) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO employees (`+employeeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (emp_id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			team = excluded.team,
			email = excluded.email,
			phone = excluded.phone,
			profile_image = excluded.profile_image,
			registration_date = excluded.registration_date
	`, e.EmpID, e.Name, e.Role, e.Team, e.Email, e.Phone, e.ProfileImage, registrationDate(e))
	if err != nil {
		return fmt.Errorf("upsert employee: %w", err)
	}
	return nil
}

// CreateEmployee inserts a new employee, failing with ErrDuplicate if the ID exists
func (r *EmployeeRepository) CreateEmployee(ctx context.Context, e *database.Employee) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO employees (`+employeeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EmpID, e.Name, e.Role, e.Team, e.Email, e.Phone, e.ProfileImage, registrationDate(e))
	return mapError("create employee", err)
}

// UpdateEmployee overwrites the editable fields of an existing employee
func (r *EmployeeRepository) UpdateEmployee(ctx context.Context, e *database.Employee) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE employees SET name = ?, role = ?, team = ?, email = ?, phone = ?
		WHERE emp_id = ?
	`, e.Name, e.Role, e.Team, e.Email, e.Phone, e.EmpID)
	if err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	return requireAffected(res, "update employee")
}

// SetProfileImage replaces the stored profile image
func (r *EmployeeRepository) SetProfileImage(ctx context.Context, empID string, image []byte) error {
	res, err := r.pool.Exec(ctx, `UPDATE employees SET profile_image = ? WHERE emp_id = ?`, image, empID)
	if err != nil {
		return fmt.Errorf("set profile image: %w", err)
	}
	return requireAffected(res, "set profile image")
}

// DeleteEmployee removes the employee and their attendance rows
func (r *EmployeeRepository) DeleteEmployee(ctx context.Context, empID string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM employees WHERE emp_id = ?`, empID)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	return requireAffected(res, "delete employee")
}
