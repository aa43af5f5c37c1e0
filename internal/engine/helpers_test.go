package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/bricks/internal/domain"
)

func in(name string, t domain.PortType) domain.PortDef {
	return domain.PortDef{Name: name, Direction: domain.DirectionInput, Type: t, Source: domain.PortSourceConnection}
}

func out(name string, t domain.PortType) domain.PortDef {
	return domain.PortDef{Name: name, Direction: domain.DirectionOutput, Type: t}
}

// testSchemas повторяет встроенные типы и добавляет "pass" для графов с циклами.
func testSchemas() SchemaSet {
	return NewSchemaSet(
		BrickSchema{
			Type: "list_instances",
			Inputs: []domain.PortDef{{
				Name: "database", Direction: domain.DirectionInput, Type: domain.PortTypeString,
				Source: domain.PortSourceConfiguration, ConfigKey: "Name of DB",
			}},
			Outputs:      []domain.PortDef{out("instances", domain.PortTypeInstanceList)},
			ConfigFields: []string{"Name of DB"},
		},
		BrickSchema{
			Type:    "get_first_instance",
			Inputs:  []domain.PortDef{in("instances", domain.PortTypeInstanceList)},
			Outputs: []domain.PortDef{out("instance", domain.PortTypeObject)},
		},
		BrickSchema{
			Type:   "log_instance_properties",
			Inputs: []domain.PortDef{in("object", domain.PortTypeObject)},
		},
		BrickSchema{
			Type:    "pass",
			Inputs:  []domain.PortDef{in("in", domain.PortTypeObject)},
			Outputs: []domain.PortDef{out("out", domain.PortTypeObject)},
		},
		BrickSchema{
			Type:    "source",
			Outputs: []domain.PortDef{out("out", domain.PortTypeObject)},
		},
		BrickSchema{
			Type: "join",
			Inputs: []domain.PortDef{
				in("left", domain.PortTypeObject),
				in("right", domain.PortTypeObject),
			},
			Outputs: []domain.PortDef{out("out", domain.PortTypeObject)},
		},
	)
}

// mustAdd добавляет brick и падает при ошибке.
func mustAdd(t *testing.T, g *Graph, brickType string, config map[string]any) uuid.UUID {
	t.Helper()
	b, err := g.AddBrick(brickType, config, domain.Position{})
	require.NoError(t, err)
	return b.ID
}

func mustConnect(t *testing.T, g *Graph, from uuid.UUID, fromPort string, to uuid.UUID, toPort string) domain.Connection {
	t.Helper()
	c, err := g.Connect(from, fromPort, to, toPort)
	require.NoError(t, err)
	return c
}

// pipeline строит сценарий list → first → log.
func pipeline(t *testing.T) (*Graph, uuid.UUID, uuid.UUID, uuid.UUID) {
	t.Helper()
	g := NewGraph(nil, testSchemas())
	list := mustAdd(t, g, "list_instances", map[string]any{"Name of DB": "default database"})
	first := mustAdd(t, g, "get_first_instance", nil)
	log := mustAdd(t, g, "log_instance_properties", nil)
	mustConnect(t, g, list, "instances", first, "instances")
	mustConnect(t, g, first, "instance", log, "object")
	return g, list, first, log
}
