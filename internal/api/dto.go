package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/engine"
)

// Function DTOs

// CreateFunctionRequest — запрос на создание function.
type CreateFunctionRequest struct {
	ProjectID uuid.UUID `json:"project_id" validate:"required"`
	Name      string    `json:"name" validate:"required,max=255"`
}

// FunctionResponse — ответ с метаданными function.
type FunctionResponse struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// FunctionFromDomain конвертирует domain.Function в FunctionResponse.
func FunctionFromDomain(f domain.Function) FunctionResponse {
	return FunctionResponse{
		ID:        f.ID,
		ProjectID: f.ProjectID,
		Name:      f.Name,
		CreatedAt: f.CreatedAt,
	}
}

// SnapshotResponse — function вместе с графом.
type SnapshotResponse struct {
	Function    FunctionResponse     `json:"function"`
	Bricks      []BrickResponse      `json:"bricks"`
	Connections []ConnectionResponse `json:"connections"`
}

// SnapshotFromDomain конвертирует снимок в SnapshotResponse.
func SnapshotFromDomain(s *domain.FunctionSnapshot) SnapshotResponse {
	resp := SnapshotResponse{
		Function:    FunctionFromDomain(s.Function),
		Bricks:      make([]BrickResponse, len(s.Bricks)),
		Connections: make([]ConnectionResponse, len(s.Connections)),
	}
	for i, b := range s.Bricks {
		resp.Bricks[i] = BrickFromDomain(b)
	}
	for i, c := range s.Connections {
		resp.Connections[i] = ConnectionFromDomain(c)
	}
	return resp
}

// Brick DTOs

// AddBrickRequest — запрос на добавление brick.
type AddBrickRequest struct {
	Type     string          `json:"type" validate:"required"`
	Config   map[string]any  `json:"config,omitempty"`
	Position PositionRequest `json:"position"`
}

// PositionRequest — координаты на холсте.
type PositionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UpdatePositionRequest — запрос на перемещение brick.
type UpdatePositionRequest struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

// UpdateConfigurationRequest — частичное обновление конфигурации.
// Ключ со значением null удаляет поле.
type UpdateConfigurationRequest struct {
	Config map[string]any `json:"config" validate:"required"`
}

// BrickResponse — ответ с brick.
type BrickResponse struct {
	ID       uuid.UUID       `json:"id"`
	Type     string          `json:"type"`
	Position domain.Position `json:"position"`
	Config   map[string]any  `json:"config"`
}

// BrickFromDomain конвертирует domain.Brick в BrickResponse.
func BrickFromDomain(b domain.Brick) BrickResponse {
	config := b.Config
	if config == nil {
		config = map[string]any{}
	}
	return BrickResponse{
		ID:       b.ID,
		Type:     b.Type,
		Position: b.Position,
		Config:   config,
	}
}

// RemoveBrickResponse — результат удаления brick.
type RemoveBrickResponse struct {
	RemovedConnections []ConnectionResponse `json:"removed_connections"`
}

// Connection DTOs

// ConnectRequest — запрос на создание connection.
type ConnectRequest struct {
	FromBrickID uuid.UUID `json:"from_brick_id" validate:"required"`
	FromPort    string    `json:"from_port" validate:"required"`
	ToBrickID   uuid.UUID `json:"to_brick_id" validate:"required"`
	ToPort      string    `json:"to_port" validate:"required"`
}

// ConnectionResponse — ответ с connection.
type ConnectionResponse struct {
	ID          uuid.UUID `json:"id"`
	FromBrickID uuid.UUID `json:"from_brick_id"`
	FromPort    string    `json:"from_port"`
	ToBrickID   uuid.UUID `json:"to_brick_id"`
	ToPort      string    `json:"to_port"`
}

// ConnectionFromDomain конвертирует domain.Connection в ConnectionResponse.
func ConnectionFromDomain(c domain.Connection) ConnectionResponse {
	return ConnectionResponse{
		ID:          c.ID,
		FromBrickID: c.FromBrickID,
		FromPort:    c.FromPort,
		ToBrickID:   c.ToBrickID,
		ToPort:      c.ToPort,
	}
}

// Brick type DTOs

// BrickTypeResponse — описание типа brick.
type BrickTypeResponse struct {
	Type         string           `json:"type"`
	Description  string           `json:"description,omitempty"`
	Inputs       []domain.PortDef `json:"inputs"`
	Outputs      []domain.PortDef `json:"outputs"`
	ConfigFields []string         `json:"config_fields"`
}

// BrickTypeFromSchema конвертирует схему в BrickTypeResponse.
func BrickTypeFromSchema(s engine.BrickSchema) BrickTypeResponse {
	resp := BrickTypeResponse{
		Type:         s.Type,
		Description:  s.Description,
		Inputs:       s.Inputs,
		Outputs:      s.Outputs,
		ConfigFields: s.ConfigFields,
	}
	if resp.Inputs == nil {
		resp.Inputs = []domain.PortDef{}
	}
	if resp.Outputs == nil {
		resp.Outputs = []domain.PortDef{}
	}
	if resp.ConfigFields == nil {
		resp.ConfigFields = []string{}
	}
	return resp
}

// Validation DTOs

// GraphErrorResponse — одна ошибка проверки графа.
type GraphErrorResponse struct {
	Kind         string      `json:"kind"`
	Message      string      `json:"message"`
	BrickID      *uuid.UUID  `json:"brick_id,omitempty"`
	Port         string      `json:"port,omitempty"`
	ConnectionID *uuid.UUID  `json:"connection_id,omitempty"`
	BrickIDs     []uuid.UUID `json:"brick_ids,omitempty"`
}

// ValidationReport — результат POST /validate.
type ValidationReport struct {
	Valid  bool                 `json:"valid"`
	Errors []GraphErrorResponse `json:"errors"`
}

// GraphErrorsFromValidation конвертирует пакет ошибок проверки.
func GraphErrorsFromValidation(v *engine.ValidationErrors) []GraphErrorResponse {
	result := make([]GraphErrorResponse, len(v.Errors))
	for i, ge := range v.Errors {
		r := GraphErrorResponse{
			Message:  ge.Error(),
			Port:     ge.Port,
			BrickIDs: ge.BrickIDs,
		}
		if ge.Err != nil {
			r.Kind = ge.Err.Error()
		}
		if ge.BrickID != uuid.Nil {
			id := ge.BrickID
			r.BrickID = &id
		}
		if ge.ConnectionID != uuid.Nil {
			id := ge.ConnectionID
			r.ConnectionID = &id
		}
		result[i] = r
	}
	return result
}

// Execution DTOs

// ExecutionResponse — результат синхронного запуска.
type ExecutionResponse struct {
	ID          uuid.UUID              `json:"id"`
	FunctionID  uuid.UUID              `json:"function_id"`
	Status      domain.ExecutionStatus `json:"status"`
	OutputLines []string               `json:"output_lines"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	FinishedAt  *time.Time             `json:"finished_at,omitempty"`
	DurationMs  int64                  `json:"duration_ms"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e domain.Execution) ExecutionResponse {
	lines := e.OutputLines
	if lines == nil {
		lines = []string{}
	}
	return ExecutionResponse{
		ID:          e.ID,
		FunctionID:  e.FunctionID,
		Status:      e.Status,
		OutputLines: lines,
		StartedAt:   e.StartedAt,
		FinishedAt:  e.FinishedAt,
		DurationMs:  e.Duration().Milliseconds(),
	}
}

// RunRequestedResponse — ответ на асинхронный запуск.
type RunRequestedResponse struct {
	RequestID  uuid.UUID `json:"request_id"`
	FunctionID uuid.UUID `json:"function_id"`
}

// Database DTOs

// DatabaseResponse — база проекта.
type DatabaseResponse struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	Properties []domain.Property `json:"properties"`
}

// DatabaseFromDomain конвертирует domain.Database в DatabaseResponse.
func DatabaseFromDomain(d domain.Database) DatabaseResponse {
	props := d.Properties
	if props == nil {
		props = []domain.Property{}
	}
	return DatabaseResponse{
		ID:         d.ID,
		Name:       d.Name,
		Properties: props,
	}
}
