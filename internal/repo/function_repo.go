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

// FunctionRepo — репозиторий functions, bricks и connections.
type FunctionRepo struct {
	pool *pgxpool.Pool
}

// NewFunctionRepo создаёт новый FunctionRepo.
func NewFunctionRepo(pool *pgxpool.Pool) *FunctionRepo {
	return &FunctionRepo{pool: pool}
}

// --- Function CRUD ---

// Create создаёт новую function.
func (r *FunctionRepo) Create(ctx context.Context, fn *domain.Function) error {
	query := `
		INSERT INTO functions (id, project_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query,
		fn.ID,
		fn.ProjectID,
		fn.Name,
		fn.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert function: %w", err)
	}
	return nil
}

// GetByID возвращает function по ID.
func (r *FunctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Function, error) {
	return getFunction(ctx, r.pool, id)
}

// ListByProject возвращает functions проекта.
func (r *FunctionRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Function, error) {
	query := `
		SELECT id, project_id, name, created_at
		FROM functions
		WHERE project_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list functions: %w", err)
	}
	defer rows.Close()

	var fns []domain.Function
	for rows.Next() {
		var fn domain.Function
		if err := rows.Scan(
			&fn.ID,
			&fn.ProjectID,
			&fn.Name,
			&fn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan function: %w", err)
		}
		fns = append(fns, fn)
	}
	return fns, rows.Err()
}

// Delete удаляет function (каскадно удалит bricks и connections).
func (r *FunctionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM functions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete function: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Snapshot ---

// LoadSnapshot читает function со всеми bricks и connections.
//
// Чтение идёт в одной read-only транзакции с REPEATABLE READ,
// поэтому параллельное редактирование не даёт полуизменённый граф.
func (r *FunctionRepo) LoadSnapshot(ctx context.Context, functionID uuid.UUID) (*domain.FunctionSnapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fn, err := getFunction(ctx, tx, functionID)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.FunctionSnapshot{
		Function:    *fn,
		Bricks:      []domain.Brick{},
		Connections: []domain.Connection{},
	}

	brickRows, err := tx.Query(ctx, `
		SELECT id, type, position_x, position_y, config
		FROM bricks
		WHERE function_id = $1
		ORDER BY seq
	`, functionID)
	if err != nil {
		return nil, fmt.Errorf("query bricks: %w", err)
	}
	for brickRows.Next() {
		var (
			b          domain.Brick
			configJSON []byte
		)
		if err := brickRows.Scan(&b.ID, &b.Type, &b.Position.X, &b.Position.Y, &configJSON); err != nil {
			brickRows.Close()
			return nil, fmt.Errorf("scan brick: %w", err)
		}
		if err := json.Unmarshal(configJSON, &b.Config); err != nil {
			brickRows.Close()
			return nil, fmt.Errorf("unmarshal brick config: %w", err)
		}
		snapshot.Bricks = append(snapshot.Bricks, b)
	}
	brickRows.Close()
	if err := brickRows.Err(); err != nil {
		return nil, fmt.Errorf("read bricks: %w", err)
	}

	connRows, err := tx.Query(ctx, `
		SELECT id, from_brick_id, from_port, to_brick_id, to_port
		FROM connections
		WHERE function_id = $1
		ORDER BY seq
	`, functionID)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	for connRows.Next() {
		var c domain.Connection
		if err := connRows.Scan(&c.ID, &c.FromBrickID, &c.FromPort, &c.ToBrickID, &c.ToPort); err != nil {
			connRows.Close()
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		snapshot.Connections = append(snapshot.Connections, c)
	}
	connRows.Close()
	if err := connRows.Err(); err != nil {
		return nil, fmt.Errorf("read connections: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit snapshot tx: %w", err)
	}
	return snapshot, nil
}

// --- Bricks ---

// InsertBrick добавляет brick в конец порядка добавления.
func (r *FunctionRepo) InsertBrick(ctx context.Context, functionID uuid.UUID, b domain.Brick) error {
	configJSON, err := marshalConfig(b.Config)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO bricks (id, function_id, type, position_x, position_y, config)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.ID, functionID, b.Type, b.Position.X, b.Position.Y, configJSON)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert brick: %w", err)
	}
	return nil
}

// UpdateBrickPosition сохраняет положение brick.
func (r *FunctionRepo) UpdateBrickPosition(ctx context.Context, functionID, brickID uuid.UUID, pos domain.Position) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE bricks
		SET position_x = $3, position_y = $4
		WHERE function_id = $1 AND id = $2
	`, functionID, brickID, pos.X, pos.Y)
	if err != nil {
		return fmt.Errorf("update brick position: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateBrickConfig заменяет конфигурацию brick целиком.
func (r *FunctionRepo) UpdateBrickConfig(ctx context.Context, functionID, brickID uuid.UUID, config map[string]any) error {
	configJSON, err := marshalConfig(config)
	if err != nil {
		return err
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE bricks
		SET config = $3
		WHERE function_id = $1 AND id = $2
	`, functionID, brickID, configJSON)
	if err != nil {
		return fmt.Errorf("update brick config: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBrick удаляет brick. Connections удаляются каскадно.
func (r *FunctionRepo) DeleteBrick(ctx context.Context, functionID, brickID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM bricks WHERE function_id = $1 AND id = $2
	`, functionID, brickID)
	if err != nil {
		return fmt.Errorf("delete brick: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Connections ---

// InsertConnection сохраняет connection.
//
// Уникальный индекс (to_brick_id, to_port) защищает от гонки двух
// параллельных подключений к одному входу: проигравший получает ErrAlreadyExists.
func (r *FunctionRepo) InsertConnection(ctx context.Context, functionID uuid.UUID, c domain.Connection) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO connections (id, function_id, from_brick_id, from_port, to_brick_id, to_port)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, functionID, c.FromBrickID, c.FromPort, c.ToBrickID, c.ToPort)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert connection: %w", err)
	}
	return nil
}

// DeleteConnection удаляет connection.
func (r *FunctionRepo) DeleteConnection(ctx context.Context, functionID, connectionID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM connections WHERE function_id = $1 AND id = $2
	`, functionID, connectionID)
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// querier — общее подмножество pgxpool.Pool и pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getFunction(ctx context.Context, q querier, id uuid.UUID) (*domain.Function, error) {
	var fn domain.Function
	err := q.QueryRow(ctx, `
		SELECT id, project_id, name, created_at
		FROM functions
		WHERE id = $1
	`, id).Scan(
		&fn.ID,
		&fn.ProjectID,
		&fn.Name,
		&fn.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get function by id: %w", err)
	}
	return &fn, nil
}

func marshalConfig(config map[string]any) ([]byte, error) {
	if config == nil {
		config = map[string]any{}
	}
	b, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal brick config: %w", err)
	}
	return b, nil
}
