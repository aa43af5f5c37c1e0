package blueprint

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/shaiso/bricks/internal/telemetry"
)

// File — разобранный файл blueprint.
//
// Пример:
//
//	database "default database" {
//	  properties = ["value"]
//
//	  instance {
//	    value = "X"
//	  }
//	}
//
//	function "print first" {
//	  brick "list" {
//	    type   = "list_instances"
//	    config = { "Name of DB" = "default database" }
//	  }
//
//	  brick "first" {
//	    type = "get_first_instance"
//	  }
//
//	  connection {
//	    from = "list.instances"
//	    to   = "first.instances"
//	  }
//	}
type File struct {
	Databases []Database
	Function  Function
}

// Database — база с экземплярами для локального запуска.
type Database struct {
	Name       string
	Properties []string
	Instances  []map[string]string
}

// Function — описание графа function.
type Function struct {
	Name        string
	Bricks      []Brick
	Connections []Connection
}

// Brick — именованный brick в blueprint.
// Имя служит только для ссылок из connection.
type Brick struct {
	Name   string
	Type   string
	Config map[string]string
	X, Y   float64
}

// Connection — ребро "brick.port" → "brick.port".
type Connection struct {
	From string
	To   string
}

type hclFile struct {
	Databases []*hclDatabase `hcl:"database,block"`
	Function  hclFunction    `hcl:"function,block"`
}

type hclDatabase struct {
	Name       string         `hcl:"name,label"`
	Properties []string       `hcl:"properties,optional"`
	Instances  []*hclInstance `hcl:"instance,block"`
}

type hclInstance struct {
	Values hcl.Body `hcl:",remain"`
}

type hclFunction struct {
	Name        string           `hcl:"name,label"`
	Bricks      []*hclBrick      `hcl:"brick,block"`
	Connections []*hclConnection `hcl:"connection,block"`
}

type hclBrick struct {
	Name   string            `hcl:"name,label"`
	Type   string            `hcl:"type"`
	Config map[string]string `hcl:"config,optional"`
	X      float64           `hcl:"x,optional"`
	Y      float64           `hcl:"y,optional"`
}

type hclConnection struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// LoadFile читает и разбирает файл blueprint с диска.
func LoadFile(ctx context.Context, path string) (*File, error) {
	logger := telemetry.FromContext(ctx)
	logger.Debug("loading blueprint", "path", path)

	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse blueprint %s: %w", path, diags)
	}

	file, err := decode(f.Body, path)
	if err != nil {
		return nil, err
	}

	logger.Debug("blueprint loaded",
		"path", path,
		"databases", len(file.Databases),
		"bricks", len(file.Function.Bricks),
		"connections", len(file.Function.Connections),
	)
	return file, nil
}

// Parse разбирает blueprint из памяти. filename используется в сообщениях.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse blueprint %s: %w", filename, diags)
	}
	return decode(f.Body, filename)
}

func decode(body hcl.Body, filename string) (*File, error) {
	var parsed hclFile
	if diags := gohcl.DecodeBody(body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("decode blueprint %s: %w", filename, diags)
	}

	file := &File{
		Function: Function{Name: parsed.Function.Name},
	}

	for _, db := range parsed.Databases {
		database := Database{
			Name:       db.Name,
			Properties: db.Properties,
		}
		for _, inst := range db.Instances {
			values, diags := decodeValues(inst.Values)
			if diags.HasErrors() {
				return nil, fmt.Errorf("decode instance of database %q in %s: %w", db.Name, filename, diags)
			}
			database.Instances = append(database.Instances, values)
		}
		file.Databases = append(file.Databases, database)
	}

	for _, b := range parsed.Function.Bricks {
		file.Function.Bricks = append(file.Function.Bricks, Brick{
			Name:   b.Name,
			Type:   b.Type,
			Config: b.Config,
			X:      b.X,
			Y:      b.Y,
		})
	}
	for _, c := range parsed.Function.Connections {
		file.Function.Connections = append(file.Function.Connections, Connection{From: c.From, To: c.To})
	}

	return file, nil
}

// decodeValues читает атрибуты блока instance как строки.
func decodeValues(body hcl.Body) (map[string]string, hcl.Diagnostics) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	values := make(map[string]string, len(attrs))
	for name, attr := range attrs {
		var v string
		if d := gohcl.DecodeExpression(attr.Expr, nil, &v); d.HasErrors() {
			diags = append(diags, d...)
			continue
		}
		values[name] = v
	}
	return values, diags
}

// propertyNames возвращает объявленные свойства базы,
// либо объединение ключей экземпляров, если свойства не объявлены.
func (d Database) propertyNames() []string {
	if len(d.Properties) > 0 {
		return d.Properties
	}

	seen := make(map[string]struct{})
	for _, inst := range d.Instances {
		for k := range inst {
			seen[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
