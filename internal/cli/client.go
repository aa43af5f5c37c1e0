package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// FunctionResponse — function из API.
type FunctionResponse struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// Position — координаты brick на холсте.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BrickResponse — brick из API.
type BrickResponse struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position Position       `json:"position"`
	Config   map[string]any `json:"config"`
}

// ConnectionResponse — connection из API.
type ConnectionResponse struct {
	ID          string `json:"id"`
	FromBrickID string `json:"from_brick_id"`
	FromPort    string `json:"from_port"`
	ToBrickID   string `json:"to_brick_id"`
	ToPort      string `json:"to_port"`
}

// SnapshotResponse — function вместе с графом.
type SnapshotResponse struct {
	Function    FunctionResponse     `json:"function"`
	Bricks      []BrickResponse      `json:"bricks"`
	Connections []ConnectionResponse `json:"connections"`
}

// PortResponse — порт в схеме типа brick.
type PortResponse struct {
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Type      string `json:"type"`
	Source    string `json:"source,omitempty"`
	ConfigKey string `json:"config_key,omitempty"`
}

// BrickTypeResponse — схема типа brick.
type BrickTypeResponse struct {
	Type         string         `json:"type"`
	Description  string         `json:"description,omitempty"`
	Inputs       []PortResponse `json:"inputs"`
	Outputs      []PortResponse `json:"outputs"`
	ConfigFields []string       `json:"config_fields"`
}

// GraphErrorResponse — одна ошибка проверки графа.
type GraphErrorResponse struct {
	Kind         string   `json:"kind"`
	Message      string   `json:"message"`
	BrickID      string   `json:"brick_id,omitempty"`
	Port         string   `json:"port,omitempty"`
	ConnectionID string   `json:"connection_id,omitempty"`
	BrickIDs     []string `json:"brick_ids,omitempty"`
}

// ValidationReport — результат проверки графа.
type ValidationReport struct {
	Valid  bool                 `json:"valid"`
	Errors []GraphErrorResponse `json:"errors"`
}

// ExecutionResponse — результат синхронного запуска.
type ExecutionResponse struct {
	ID          string   `json:"id"`
	FunctionID  string   `json:"function_id"`
	Status      string   `json:"status"`
	OutputLines []string `json:"output_lines"`
	DurationMs  int64    `json:"duration_ms"`
}

// RunRequestedResponse — ответ на асинхронный запуск.
type RunRequestedResponse struct {
	RequestID  string `json:"request_id"`
	FunctionID string `json:"function_id"`
}

// DatabaseResponse — база проекта.
type DatabaseResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Properties []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"properties"`
}

// RemoveBrickResponse — результат удаления brick.
type RemoveBrickResponse struct {
	RemovedConnections []ConnectionResponse `json:"removed_connections"`
}

// --- Request types ---

// AddBrickRequest — добавление brick.
type AddBrickRequest struct {
	Type     string         `json:"type"`
	Config   map[string]any `json:"config,omitempty"`
	Position Position       `json:"position"`
}

// ConnectRequest — создание connection.
type ConnectRequest struct {
	FromBrickID string `json:"from_brick_id"`
	FromPort    string `json:"from_port"`
	ToBrickID   string `json:"to_brick_id"`
	ToPort      string `json:"to_port"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}

// APIError — ошибка, которую вернул API.
type APIError struct {
	Status        int                  `json:"-"`
	Code          string               `json:"code"`
	Message       string               `json:"message"`
	Errors        []GraphErrorResponse `json:"errors,omitempty"`
	FailedBrickID string               `json:"failed_brick_id,omitempty"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	for _, ge := range e.Errors {
		fmt.Fprintf(&b, "\n  - %s", ge.Message)
	}
	if e.FailedBrickID != "" {
		fmt.Fprintf(&b, "\n  failed brick: %s", e.FailedBrickID)
	}
	return b.String()
}

// --- Client ---

// Client — HTTP-клиент для Bricks API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// --- Brick types ---

// ListBrickTypes возвращает схемы зарегистрированных типов bricks.
func (c *Client) ListBrickTypes() ([]BrickTypeResponse, error) {
	var types []BrickTypeResponse
	err := c.list("/api/v1/brick-types", &types)
	return types, err
}

// --- Functions ---

// ListFunctions возвращает functions проекта.
func (c *Client) ListFunctions(projectID string) ([]FunctionResponse, error) {
	var fns []FunctionResponse
	err := c.list("/api/v1/projects/"+projectID+"/functions", &fns)
	return fns, err
}

// CreateFunction создаёт пустую function.
func (c *Client) CreateFunction(projectID, name string) (*FunctionResponse, error) {
	body := map[string]string{"project_id": projectID, "name": name}
	var fn FunctionResponse
	err := c.post("/api/v1/functions", body, &fn)
	return &fn, err
}

// GetFunction возвращает function вместе с графом.
func (c *Client) GetFunction(id string) (*SnapshotResponse, error) {
	var snap SnapshotResponse
	err := c.get("/api/v1/functions/"+id, &snap)
	return &snap, err
}

// DeleteFunction удаляет function.
func (c *Client) DeleteFunction(id string) error {
	return c.delete("/api/v1/functions/"+id, nil)
}

// ValidateFunction проверяет граф function.
func (c *Client) ValidateFunction(id string) (*ValidationReport, error) {
	var report ValidationReport
	err := c.post("/api/v1/functions/"+id+"/validate", nil, &report)
	return &report, err
}

// RunFunction выполняет function синхронно.
func (c *Client) RunFunction(id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.post("/api/v1/functions/"+id+"/run", nil, &exec)
	return &exec, err
}

// RequestRun ставит выполнение function в очередь.
func (c *Client) RequestRun(id string) (*RunRequestedResponse, error) {
	var resp RunRequestedResponse
	err := c.post("/api/v1/functions/"+id+"/runs", nil, &resp)
	return &resp, err
}

// --- Bricks ---

// AddBrick добавляет brick в function.
func (c *Client) AddBrick(functionID string, req AddBrickRequest) (*BrickResponse, error) {
	var brick BrickResponse
	err := c.post("/api/v1/functions/"+functionID+"/bricks", req, &brick)
	return &brick, err
}

// MoveBrick меняет положение brick на холсте.
func (c *Client) MoveBrick(functionID, brickID string, pos Position) (*BrickResponse, error) {
	var brick BrickResponse
	err := c.patch(brickPath(functionID, brickID)+"/position", pos, &brick)
	return &brick, err
}

// ConfigureBrick частично обновляет конфигурацию brick.
// Значение nil удаляет поле.
func (c *Client) ConfigureBrick(functionID, brickID string, config map[string]any) (*BrickResponse, error) {
	body := map[string]any{"config": config}
	var brick BrickResponse
	err := c.patch(brickPath(functionID, brickID)+"/configuration", body, &brick)
	return &brick, err
}

// RemoveBrick удаляет brick вместе с его connections.
func (c *Client) RemoveBrick(functionID, brickID string) (*RemoveBrickResponse, error) {
	var resp RemoveBrickResponse
	err := c.delete(brickPath(functionID, brickID), &resp)
	return &resp, err
}

func brickPath(functionID, brickID string) string {
	return "/api/v1/functions/" + functionID + "/bricks/" + brickID
}

// --- Connections ---

// Connect соединяет выход одного brick со входом другого.
func (c *Client) Connect(functionID string, req ConnectRequest) (*ConnectionResponse, error) {
	var conn ConnectionResponse
	err := c.post("/api/v1/functions/"+functionID+"/connections", req, &conn)
	return &conn, err
}

// Disconnect удаляет connection.
func (c *Client) Disconnect(functionID, connectionID string) error {
	return c.delete("/api/v1/functions/"+functionID+"/connections/"+connectionID, nil)
}

// --- Databases ---

// ListDatabases возвращает базы проекта.
func (c *Client) ListDatabases(projectID string) ([]DatabaseResponse, error) {
	var dbs []DatabaseResponse
	err := c.list("/api/v1/projects/"+projectID+"/databases", &dbs)
	return dbs, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) patch(path string, body any, result any) error {
	return c.doData(http.MethodPatch, path, body, result)
}

func (c *Client) delete(path string, result any) error {
	return c.doData(http.MethodDelete, path, nil, result)
}

func (c *Client) list(path string, result any) error {
	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	er.Error.Status = resp.StatusCode
	return &er.Error
}
