package bricks

import (
	"fmt"

	"github.com/shaiso/bricks/internal/domain"
)

// objectValues приводит значение порта Object к карте свойств.
//
// Поддерживаются экземпляры базы и произвольные карты.
// Нестроковые значения карт приводятся через fmt.Sprint.
func objectValues(v any) (id string, values map[string]string, err error) {
	switch o := v.(type) {
	case domain.Instance:
		return o.ID.String(), copyValues(o.Values), nil
	case *domain.Instance:
		if o == nil {
			break
		}
		return o.ID.String(), copyValues(o.Values), nil
	case map[string]string:
		return "", copyValues(o), nil
	case map[string]any:
		values = make(map[string]string, len(o))
		for k, val := range o {
			if s, ok := val.(string); ok {
				values[k] = s
				continue
			}
			values[k] = fmt.Sprint(val)
		}
		return "", values, nil
	}
	return "", nil, fmt.Errorf("%w: expected an object, got %T", ErrInvalidInput, v)
}

func copyValues(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
