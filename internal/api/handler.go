package api

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/shaiso/bricks/internal/bricks"
	"github.com/shaiso/bricks/internal/domain"
)

// FunctionStore — хранилище functions и их графов.
// Реализации: repo.FunctionRepo, repo.MemoryStore.
type FunctionStore interface {
	Create(ctx context.Context, fn *domain.Function) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Function, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Function, error)
	Delete(ctx context.Context, id uuid.UUID) error
	LoadSnapshot(ctx context.Context, functionID uuid.UUID) (*domain.FunctionSnapshot, error)

	InsertBrick(ctx context.Context, functionID uuid.UUID, b domain.Brick) error
	UpdateBrickPosition(ctx context.Context, functionID, brickID uuid.UUID, pos domain.Position) error
	UpdateBrickConfig(ctx context.Context, functionID, brickID uuid.UUID, config map[string]any) error
	DeleteBrick(ctx context.Context, functionID, brickID uuid.UUID) error
	InsertConnection(ctx context.Context, functionID uuid.UUID, c domain.Connection) error
	DeleteConnection(ctx context.Context, functionID, connectionID uuid.UUID) error
}

// DatabaseStore — чтение баз проекта.
// Реализации: repo.InstanceRepo, repo.MemoryStore.
type DatabaseStore interface {
	GetDatabase(ctx context.Context, projectID uuid.UUID, name string) (*domain.Database, error)
	ListDatabases(ctx context.Context, projectID uuid.UUID) ([]domain.Database, error)
}

// Runner выполняет function синхронно (orchestrator.Orchestrator).
type Runner interface {
	RunFunction(ctx context.Context, functionID uuid.UUID) (*domain.Execution, error)
}

// RunPublisher ставит выполнение в очередь (mq.Publisher).
type RunPublisher interface {
	PublishRunRequested(ctx context.Context, functionID uuid.UUID) (uuid.UUID, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	functions FunctionStore
	databases DatabaseStore
	registry  *bricks.Registry
	runner    Runner
	publisher RunPublisher
	validate  *validator.Validate
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Functions FunctionStore
	Databases DatabaseStore
	Registry  *bricks.Registry
	Runner    Runner

	// Publisher — опционален: без него асинхронный запуск отвечает 503.
	Publisher RunPublisher

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	registry := cfg.Registry
	if registry == nil {
		registry = bricks.DefaultRegistry()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		functions: cfg.Functions,
		databases: cfg.Databases,
		registry:  registry,
		runner:    cfg.Runner,
		publisher: cfg.Publisher,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}
