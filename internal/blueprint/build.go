package blueprint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/engine"
	"github.com/shaiso/bricks/internal/repo"
)

var (
	// ErrUnknownBrick — connection ссылается на brick, которого нет в blueprint.
	ErrUnknownBrick = errors.New("unknown brick")

	// ErrDuplicateName — два brick или две базы с одним именем.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrBadEndpoint — конец connection не в форме "brick.port".
	ErrBadEndpoint = errors.New(`connection endpoint must be "brick.port"`)

	// ErrUnknownProperty — экземпляр содержит свойство, не объявленное в базе.
	ErrUnknownProperty = errors.New("unknown property")
)

// Result — function и хранилище экземпляров, собранные из blueprint.
type Result struct {
	// Snapshot — снимок графа function.
	Snapshot *domain.FunctionSnapshot

	// Store — хранилище с function и базами blueprint.
	Store *repo.MemoryStore

	// BrickNames — имя brick в blueprint по его ID.
	BrickNames map[uuid.UUID]string
}

// Build собирает граф через engine.Graph, поэтому действуют
// все инварианты редактирования: типы портов, одно ребро на вход,
// отсутствие петель. Ацикличность проверяется уже при выполнении.
func (f *File) Build(schemas engine.Schemas) (*Result, error) {
	projectID := uuid.New()
	store := repo.NewMemoryStore()

	if err := f.fillStore(store, projectID); err != nil {
		return nil, err
	}

	g := engine.NewGraph(&domain.FunctionSnapshot{
		Function: domain.Function{
			ID:        uuid.New(),
			ProjectID: projectID,
			Name:      f.Function.Name,
		},
	}, schemas)

	ids := make(map[string]uuid.UUID, len(f.Function.Bricks))
	names := make(map[uuid.UUID]string, len(f.Function.Bricks))

	for _, b := range f.Function.Bricks {
		if _, ok := ids[b.Name]; ok {
			return nil, fmt.Errorf("%w: brick %q", ErrDuplicateName, b.Name)
		}

		var config map[string]any
		if len(b.Config) > 0 {
			config = make(map[string]any, len(b.Config))
			for k, v := range b.Config {
				config[k] = v
			}
		}

		brick, err := g.AddBrick(b.Type, config, domain.Position{X: b.X, Y: b.Y})
		if err != nil {
			return nil, fmt.Errorf("brick %q: %w", b.Name, err)
		}
		ids[b.Name] = brick.ID
		names[brick.ID] = b.Name
	}

	for _, c := range f.Function.Connections {
		fromBrick, fromPort, err := resolveEndpoint(ids, c.From)
		if err != nil {
			return nil, err
		}
		toBrick, toPort, err := resolveEndpoint(ids, c.To)
		if err != nil {
			return nil, err
		}
		if _, err := g.Connect(fromBrick, fromPort, toBrick, toPort); err != nil {
			return nil, fmt.Errorf("connection %s -> %s: %w", c.From, c.To, err)
		}
	}

	snapshot := g.Snapshot()
	store.SaveSnapshot(snapshot)

	return &Result{
		Snapshot:   snapshot,
		Store:      store,
		BrickNames: names,
	}, nil
}

func (f *File) fillStore(store *repo.MemoryStore, projectID uuid.UUID) error {
	for _, db := range f.Databases {
		names := db.propertyNames()
		declared := make(map[string]struct{}, len(names))
		props := make([]domain.Property, 0, len(names))
		for _, n := range names {
			declared[n] = struct{}{}
			props = append(props, domain.Property{Name: n, Type: "string"})
		}

		if _, err := store.AddDatabase(projectID, db.Name, props); err != nil {
			if errors.Is(err, repo.ErrAlreadyExists) {
				return fmt.Errorf("%w: database %q", ErrDuplicateName, db.Name)
			}
			return err
		}

		for i, values := range db.Instances {
			for k := range values {
				if _, ok := declared[k]; !ok {
					return fmt.Errorf("%w: database %q instance %d has %q", ErrUnknownProperty, db.Name, i, k)
				}
			}
			if _, err := store.AddInstance(projectID, db.Name, values); err != nil {
				return fmt.Errorf("database %q instance %d: %w", db.Name, i, err)
			}
		}
	}
	return nil
}

// resolveEndpoint разбирает "brick.port".
func resolveEndpoint(ids map[string]uuid.UUID, endpoint string) (uuid.UUID, string, error) {
	i := strings.LastIndex(endpoint, ".")
	if i <= 0 || i == len(endpoint)-1 {
		return uuid.Nil, "", fmt.Errorf("%w: %q", ErrBadEndpoint, endpoint)
	}

	name, port := endpoint[:i], endpoint[i+1:]
	id, ok := ids[name]
	if !ok {
		return uuid.Nil, "", fmt.Errorf("%w: %q", ErrUnknownBrick, name)
	}
	return id, port, nil
}
