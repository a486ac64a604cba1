package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flora-agent/flora/internal/domain"
)

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{db: store.DB()}
}

const customerColumns = `id, first_name, last_name, email, phone, address, created_at, updated_at`

func (r *customerRepository) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (id, first_name, last_name, email, phone, address, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		customer.ID, customer.FirstName, customer.LastName, customer.Email,
		customer.Phone, customer.Address, customer.CreatedAt, customer.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Customer{}, &domain.IntegrityConflictError{Entity: "customer", Field: "email"}
		}
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}

	return customer, nil
}

func (r *customerRepository) Get(ctx context.Context, id string) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	customer, err := scanCustomer(r.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.NewNotFound("customer", id)
		}
		return domain.Customer{}, fmt.Errorf("select customer: %w", err)
	}

	return customer, nil
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	customer, err := scanCustomer(r.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE LOWER(email) = LOWER($1)
	`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.NewNotFound("customer", email)
		}
		return domain.Customer{}, fmt.Errorf("select customer by email: %w", err)
	}

	return customer, nil
}

func (r *customerRepository) List(ctx context.Context, offset, limit int) ([]domain.Customer, int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	offset, limitArg := normalizePage(offset, limit)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		ORDER BY last_name ASC, first_name ASC, id ASC
		OFFSET $1 LIMIT $2
	`, offset, limitArg)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}

	customers, err := collectCustomers(rows)
	if err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

func (r *customerRepository) Search(ctx context.Context, query string, offset, limit int) ([]domain.Customer, int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"

	var total int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM customers
		WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1
	`, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customer search: %w", err)
	}

	offset, limitArg := normalizePage(offset, limit)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1
		ORDER BY last_name ASC, first_name ASC, id ASC
		OFFSET $2 LIMIT $3
	`, pattern, offset, limitArg)
	if err != nil {
		return nil, 0, fmt.Errorf("search customers: %w", err)
	}

	customers, err := collectCustomers(rows)
	if err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

func (r *customerRepository) Update(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		UPDATE customers
		SET first_name = $1,
		    last_name = $2,
		    email = $3,
		    phone = $4,
		    address = $5,
		    updated_at = $6
		WHERE id = $7
		RETURNING `+customerColumns+`
	`,
		customer.FirstName, customer.LastName, customer.Email,
		customer.Phone, customer.Address, time.Now().UTC(), customer.ID,
	)

	updated, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.NewNotFound("customer", customer.ID)
		}
		if isUniqueViolation(err) {
			return domain.Customer{}, &domain.IntegrityConflictError{Entity: "customer", Field: "email"}
		}
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}

	return updated, nil
}

func (r *customerRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		// FK RESTRICT со стороны orders: клиент с заказами не удаляется.
		if isForeignKeyViolation(err) {
			return &domain.ConstraintBlockedError{Entity: "customer", ID: id}
		}
		return fmt.Errorf("delete customer: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("customer rows affected: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFound("customer", id)
	}

	return nil
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Email,
		&c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return domain.Customer{}, err
	}
	return c, nil
}

func collectCustomers(rows *sql.Rows) ([]domain.Customer, error) {
	defer rows.Close()

	customers := make([]domain.Customer, 0)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer row: %w", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer rows: %w", err)
	}

	return customers, nil
}

// escapeLike экранирует метасимволы LIKE в пользовательском запросе.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
