package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flora-agent/flora/internal/domain"
)

type flowerRepository struct {
	db *sql.DB
}

// NewFlowerRepository создаёт PostgreSQL-реализацию FlowerRepository.
func NewFlowerRepository(store *Store) domain.FlowerRepository {
	return &flowerRepository{db: store.DB()}
}

const flowerColumns = `id, name, price_minor, stock_quantity, created_at, updated_at`

func (r *flowerRepository) Create(ctx context.Context, flower domain.Flower) (domain.Flower, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if flower.ID == "" {
		flower.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	flower.CreatedAt = now
	flower.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO flowers (id, name, price_minor, stock_quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`,
		flower.ID, flower.Name, flower.Price.Minor(), flower.StockQuantity,
		flower.CreatedAt, flower.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Flower{}, &domain.IntegrityConflictError{Entity: "flower", Field: "id"}
		}
		return domain.Flower{}, fmt.Errorf("insert flower: %w", err)
	}

	return flower, nil
}

func (r *flowerRepository) Get(ctx context.Context, id string) (domain.Flower, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	flower, err := scanFlower(r.db.QueryRowContext(ctx, `
		SELECT `+flowerColumns+`
		FROM flowers
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Flower{}, domain.NewNotFound("flower", id)
		}
		return domain.Flower{}, fmt.Errorf("select flower: %w", err)
	}

	return flower, nil
}

func (r *flowerRepository) List(ctx context.Context, offset, limit int) ([]domain.Flower, int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM flowers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count flowers: %w", err)
	}

	offset, limitArg := normalizePage(offset, limit)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+flowerColumns+`
		FROM flowers
		ORDER BY name ASC, id ASC
		OFFSET $1 LIMIT $2
	`, offset, limitArg)
	if err != nil {
		return nil, 0, fmt.Errorf("list flowers: %w", err)
	}
	defer rows.Close()

	flowers := make([]domain.Flower, 0)
	for rows.Next() {
		flower, err := scanFlower(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan flower row: %w", err)
		}
		flowers = append(flowers, flower)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate flower rows: %w", err)
	}

	return flowers, total, nil
}

func (r *flowerRepository) Update(ctx context.Context, flower domain.Flower) (domain.Flower, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Сток этим путём не меняется, только SetStock/AdjustStock.
	row := r.db.QueryRowContext(ctx, `
		UPDATE flowers
		SET name = $1,
		    price_minor = $2,
		    updated_at = $3
		WHERE id = $4
		RETURNING `+flowerColumns+`
	`, flower.Name, flower.Price.Minor(), time.Now().UTC(), flower.ID)

	updated, err := scanFlower(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Flower{}, domain.NewNotFound("flower", flower.ID)
		}
		return domain.Flower{}, fmt.Errorf("update flower: %w", err)
	}

	return updated, nil
}

func (r *flowerRepository) SetStock(ctx context.Context, id string, quantity int32) (domain.Flower, error) {
	if quantity < 0 {
		return domain.Flower{}, domain.ErrStockNegative
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		UPDATE flowers
		SET stock_quantity = $1,
		    updated_at = $2
		WHERE id = $3
		RETURNING `+flowerColumns+`
	`, quantity, time.Now().UTC(), id)

	updated, err := scanFlower(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Flower{}, domain.NewNotFound("flower", id)
		}
		return domain.Flower{}, fmt.Errorf("set flower stock: %w", err)
	}

	return updated, nil
}

func (r *flowerRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM flowers WHERE id = $1`, id)
	if err != nil {
		// FK RESTRICT со стороны order_items: цветок с позициями заказов не удаляется.
		if isForeignKeyViolation(err) {
			return &domain.ConstraintBlockedError{Entity: "flower", ID: id}
		}
		return fmt.Errorf("delete flower: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("flower rows affected: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFound("flower", id)
	}

	return nil
}

func scanFlower(row rowScanner) (domain.Flower, error) {
	var (
		flower     domain.Flower
		priceMinor int64
	)
	if err := row.Scan(
		&flower.ID, &flower.Name, &priceMinor, &flower.StockQuantity,
		&flower.CreatedAt, &flower.UpdatedAt,
	); err != nil {
		return domain.Flower{}, err
	}
	flower.Price = domain.Money(priceMinor)
	return flower, nil
}

var _ domain.FlowerRepository = (*flowerRepository)(nil)
