package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/bricks/internal/domain"
)

// MemoryStore — хранилище в памяти.
//
// Хранит снимки functions и базы проектов. Используется командой
// run-local и в тестах вместо PostgreSQL. Потокобезопасен.
type MemoryStore struct {
	mu        sync.RWMutex
	functions map[uuid.UUID]*domain.FunctionSnapshot
	databases map[uuid.UUID][]*memoryDatabase // projectID → базы в порядке добавления
}

type memoryDatabase struct {
	db        domain.Database
	instances []domain.Instance
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		functions: make(map[uuid.UUID]*domain.FunctionSnapshot),
		databases: make(map[uuid.UUID][]*memoryDatabase),
	}
}

// --- Snapshots ---

// SaveSnapshot сохраняет копию снимка function.
func (s *MemoryStore) SaveSnapshot(snapshot *domain.FunctionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.functions[snapshot.Function.ID] = snapshot.Clone()
}

// LoadSnapshot возвращает копию снимка function.
func (s *MemoryStore) LoadSnapshot(_ context.Context, functionID uuid.UUID) (*domain.FunctionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.functions[functionID]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot.Clone(), nil
}

// Create сохраняет пустую function.
func (s *MemoryStore) Create(_ context.Context, fn *domain.Function) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.functions[fn.ID]; ok {
		return ErrAlreadyExists
	}
	if fn.CreatedAt.IsZero() {
		fn.CreatedAt = time.Now()
	}
	s.functions[fn.ID] = &domain.FunctionSnapshot{Function: *fn}
	return nil
}

// GetByID возвращает метаданные function.
func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Function, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.functions[id]
	if !ok {
		return nil, ErrNotFound
	}
	fn := snapshot.Function
	return &fn, nil
}

// ListByProject возвращает functions проекта, от новых к старым.
func (s *MemoryStore) ListByProject(_ context.Context, projectID uuid.UUID) ([]domain.Function, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	functions := make([]domain.Function, 0)
	for _, snapshot := range s.functions {
		if snapshot.Function.ProjectID == projectID {
			functions = append(functions, snapshot.Function)
		}
	}
	sort.Slice(functions, func(i, j int) bool {
		return functions[i].CreatedAt.After(functions[j].CreatedAt)
	})
	return functions, nil
}

// Delete удаляет function вместе с графом.
func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.functions[id]; !ok {
		return ErrNotFound
	}
	delete(s.functions, id)
	return nil
}

// InsertBrick добавляет brick в конец порядка добавления.
func (s *MemoryStore) InsertBrick(_ context.Context, functionID uuid.UUID, b domain.Brick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, ok := s.functions[functionID]
	if !ok {
		return ErrNotFound
	}
	if _, exists := snapshot.Brick(b.ID); exists {
		return ErrAlreadyExists
	}
	snapshot.Bricks = append(snapshot.Bricks, b.Clone())
	return nil
}

// UpdateBrickPosition сохраняет положение brick.
func (s *MemoryStore) UpdateBrickPosition(_ context.Context, functionID, brickID uuid.UUID, pos domain.Position) error {
	return s.updateBrick(functionID, brickID, func(b *domain.Brick) { b.Position = pos })
}

// UpdateBrickConfig заменяет конфигурацию brick целиком.
func (s *MemoryStore) UpdateBrickConfig(_ context.Context, functionID, brickID uuid.UUID, config map[string]any) error {
	return s.updateBrick(functionID, brickID, func(b *domain.Brick) {
		b.Config = domain.Brick{Config: config}.Clone().Config
	})
}

func (s *MemoryStore) updateBrick(functionID, brickID uuid.UUID, fn func(*domain.Brick)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, ok := s.functions[functionID]
	if !ok {
		return ErrNotFound
	}
	for i := range snapshot.Bricks {
		if snapshot.Bricks[i].ID == brickID {
			fn(&snapshot.Bricks[i])
			return nil
		}
	}
	return ErrNotFound
}

// DeleteBrick удаляет brick вместе с его connections.
func (s *MemoryStore) DeleteBrick(_ context.Context, functionID, brickID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, ok := s.functions[functionID]
	if !ok {
		return ErrNotFound
	}

	idx := -1
	for i, b := range snapshot.Bricks {
		if b.ID == brickID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	snapshot.Bricks = append(snapshot.Bricks[:idx], snapshot.Bricks[idx+1:]...)

	kept := snapshot.Connections[:0]
	for _, c := range snapshot.Connections {
		if c.FromBrickID != brickID && c.ToBrickID != brickID {
			kept = append(kept, c)
		}
	}
	snapshot.Connections = kept
	return nil
}

// InsertConnection сохраняет connection.
// Повторное подключение к занятому входу — ErrAlreadyExists.
func (s *MemoryStore) InsertConnection(_ context.Context, functionID uuid.UUID, c domain.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, ok := s.functions[functionID]
	if !ok {
		return ErrNotFound
	}
	for _, existing := range snapshot.Connections {
		if existing.ID == c.ID || (existing.ToBrickID == c.ToBrickID && existing.ToPort == c.ToPort) {
			return ErrAlreadyExists
		}
	}
	snapshot.Connections = append(snapshot.Connections, c)
	return nil
}

// DeleteConnection удаляет connection.
func (s *MemoryStore) DeleteConnection(_ context.Context, functionID, connectionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, ok := s.functions[functionID]
	if !ok {
		return ErrNotFound
	}
	for i, c := range snapshot.Connections {
		if c.ID == connectionID {
			snapshot.Connections = append(snapshot.Connections[:i], snapshot.Connections[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// --- Databases ---

// AddDatabase создаёт базу в проекте.
// Возвращает ErrAlreadyExists, если имя уже занято.
func (s *MemoryStore) AddDatabase(projectID uuid.UUID, name string, properties []domain.Property) (domain.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(projectID, name) != nil {
		return domain.Database{}, fmt.Errorf("%w: database %s", ErrAlreadyExists, name)
	}

	db := domain.Database{
		ID:         uuid.New(),
		ProjectID:  projectID,
		Name:       name,
		Properties: append([]domain.Property(nil), properties...),
		CreatedAt:  time.Now(),
	}
	s.databases[projectID] = append(s.databases[projectID], &memoryDatabase{db: db})
	return db, nil
}

// AddInstance добавляет экземпляр в конец базы.
func (s *MemoryStore) AddInstance(projectID uuid.UUID, databaseName string, values map[string]string) (domain.Instance, error) {
	inst := domain.Instance{
		ID:     uuid.New(),
		Values: make(map[string]string, len(values)),
	}
	for k, v := range values {
		inst.Values[k] = v
	}
	if err := inst.Validate(); err != nil {
		return domain.Instance{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mdb := s.findLocked(projectID, databaseName)
	if mdb == nil {
		return domain.Instance{}, fmt.Errorf("%w: %s", domain.ErrDatabaseNotFound, databaseName)
	}
	inst.DatabaseID = mdb.db.ID
	mdb.instances = append(mdb.instances, inst)
	return inst, nil
}

// ListInstances возвращает копии экземпляров в порядке добавления.
func (s *MemoryStore) ListInstances(_ context.Context, projectID uuid.UUID, databaseName string) ([]domain.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mdb := s.findLocked(projectID, databaseName)
	if mdb == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDatabaseNotFound, databaseName)
	}

	instances := make([]domain.Instance, len(mdb.instances))
	for i, inst := range mdb.instances {
		c := inst
		c.Values = make(map[string]string, len(inst.Values))
		for k, v := range inst.Values {
			c.Values[k] = v
		}
		instances[i] = c
	}
	return instances, nil
}

// GetDatabase возвращает базу проекта по имени.
func (s *MemoryStore) GetDatabase(_ context.Context, projectID uuid.UUID, name string) (*domain.Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mdb := s.findLocked(projectID, name)
	if mdb == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDatabaseNotFound, name)
	}
	db := mdb.db
	return &db, nil
}

// ListDatabases возвращает базы проекта, отсортированные по имени.
func (s *MemoryStore) ListDatabases(_ context.Context, projectID uuid.UUID) ([]domain.Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dbs := make([]domain.Database, 0, len(s.databases[projectID]))
	for _, mdb := range s.databases[projectID] {
		dbs = append(dbs, mdb.db)
	}
	sort.Slice(dbs, func(i, j int) bool { return dbs[i].Name < dbs[j].Name })
	return dbs, nil
}

func (s *MemoryStore) findLocked(projectID uuid.UUID, name string) *memoryDatabase {
	for _, mdb := range s.databases[projectID] {
		if mdb.db.Name == name {
			return mdb
		}
	}
	return nil
}
