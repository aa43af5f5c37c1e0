package domain

// PortType — тег типа значения, проходящего через порт.
type PortType string

const (
	// PortTypeInstanceList — упорядоченный список экземпляров базы.
	PortTypeInstanceList PortType = "List<Instance>"

	// PortTypeObject — одиночный объект (экземпляр базы или произвольная карта свойств).
	PortTypeObject PortType = "Object"

	// PortTypeString — строка.
	PortTypeString PortType = "String"
)

// Direction — направление порта.
type Direction string

const (
	// DirectionInput — входной порт.
	DirectionInput Direction = "input"

	// DirectionOutput — выходной порт.
	DirectionOutput Direction = "output"
)

// PortSource — откуда входной порт получает значение.
type PortSource string

const (
	// PortSourceConnection — значение приходит по connection от другого brick.
	PortSourceConnection PortSource = "connection"

	// PortSourceConfiguration — значение берётся из конфигурации brick.
	PortSourceConfiguration PortSource = "configuration"
)

// PortDef — объявление порта в схеме типа brick.
type PortDef struct {
	// Name — имя порта, уникальное в пределах brick и направления.
	Name string `json:"name"`

	// Direction — входной или выходной.
	Direction Direction `json:"direction"`

	// Type — тип значения.
	Type PortType `json:"type"`

	// Source — источник значения (только для входных портов).
	// Пустое значение трактуется как PortSourceConnection.
	Source PortSource `json:"source,omitempty"`

	// ConfigKey — ключ конфигурации для configuration-backed портов.
	ConfigKey string `json:"config_key,omitempty"`
}

// IsConfigured возвращает true, если вход берётся из конфигурации.
func (p PortDef) IsConfigured() bool {
	return p.Direction == DirectionInput && p.Source == PortSourceConfiguration
}

// IsConnectable возвращает true, если к порту можно провести connection.
func (p PortDef) IsConnectable() bool {
	return !p.IsConfigured()
}
