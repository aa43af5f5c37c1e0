package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/bricks/internal/domain"
)

// InstanceRepo — чтение баз данных проекта и их экземпляров.
//
// Таблицы databases и instances принадлежат внешней системе,
// репозиторий их только читает.
type InstanceRepo struct {
	pool *pgxpool.Pool
}

// NewInstanceRepo создаёт новый InstanceRepo.
func NewInstanceRepo(pool *pgxpool.Pool) *InstanceRepo {
	return &InstanceRepo{pool: pool}
}

// ListInstances возвращает экземпляры базы в порядке добавления.
// Возвращает domain.ErrDatabaseNotFound, если базы с таким именем в проекте нет.
func (r *InstanceRepo) ListInstances(ctx context.Context, projectID uuid.UUID, databaseName string) ([]domain.Instance, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("begin instances tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var databaseID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM databases WHERE project_id = $1 AND name = $2
	`, projectID, databaseName).Scan(&databaseID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDatabaseNotFound, databaseName)
	}
	if err != nil {
		return nil, fmt.Errorf("get database: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, database_id, "values"
		FROM instances
		WHERE database_id = $1
		ORDER BY seq
	`, databaseID)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	instances := make([]domain.Instance, 0)
	for rows.Next() {
		var (
			inst       domain.Instance
			valuesJSON []byte
		)
		if err := rows.Scan(&inst.ID, &inst.DatabaseID, &valuesJSON); err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		if err := json.Unmarshal(valuesJSON, &inst.Values); err != nil {
			return nil, fmt.Errorf("unmarshal instance values: %w", err)
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read instances: %w", err)
	}
	return instances, nil
}

// GetDatabase возвращает базу проекта по имени.
func (r *InstanceRepo) GetDatabase(ctx context.Context, projectID uuid.UUID, name string) (*domain.Database, error) {
	query := `
		SELECT id, project_id, name, properties, created_at
		FROM databases
		WHERE project_id = $1 AND name = $2
	`
	db, err := scanDatabase(r.pool.QueryRow(ctx, query, projectID, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDatabaseNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get database: %w", err)
	}
	return db, nil
}

// ListDatabases возвращает базы проекта, отсортированные по имени.
func (r *InstanceRepo) ListDatabases(ctx context.Context, projectID uuid.UUID) ([]domain.Database, error) {
	query := `
		SELECT id, project_id, name, properties, created_at
		FROM databases
		WHERE project_id = $1
		ORDER BY name
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	defer rows.Close()

	dbs := make([]domain.Database, 0)
	for rows.Next() {
		db, err := scanDatabase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan database: %w", err)
		}
		dbs = append(dbs, *db)
	}
	return dbs, rows.Err()
}

func scanDatabase(row pgx.Row) (*domain.Database, error) {
	var (
		db        domain.Database
		propsJSON []byte
	)
	if err := row.Scan(&db.ID, &db.ProjectID, &db.Name, &propsJSON, &db.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(propsJSON, &db.Properties); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	return &db, nil
}
