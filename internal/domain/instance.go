package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxValueLength — максимальная длина строкового значения свойства.
const MaxValueLength = 255

// ErrDatabaseNotFound — база с таким именем не найдена в проекте.
//
// Возвращается реализациями хранилища экземпляров.
var ErrDatabaseNotFound = errors.New("database not found")

// ErrValueTooLong — значение свойства превышает MaxValueLength.
var ErrValueTooLong = errors.New("property value too long")

// Database — именованная схема данных проекта.
//
// Принадлежит внешнему хранилищу, движок только читает её.
type Database struct {
	// ID — идентификатор базы.
	ID uuid.UUID `json:"id"`

	// ProjectID — проект, которому принадлежит база.
	ProjectID uuid.UUID `json:"project_id"`

	// Name — имя базы, уникальное в проекте (например, "default database").
	Name string `json:"name"`

	// Properties — фиксированный набор свойств экземпляров.
	Properties []Property `json:"properties"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// Property — свойство экземпляров базы.
type Property struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Instance — снимок одного экземпляра базы.
type Instance struct {
	// ID — идентификатор экземпляра.
	ID uuid.UUID `json:"id"`

	// DatabaseID — база, к которой относится экземпляр.
	DatabaseID uuid.UUID `json:"database_id"`

	// Values — значения свойств (имя свойства → значение).
	Values map[string]string `json:"values"`
}

// Validate проверяет длину значений свойств.
func (i Instance) Validate() error {
	for name, v := range i.Values {
		if len(v) > MaxValueLength {
			return fmt.Errorf("%w: %s has %d characters, max %d",
				ErrValueTooLong, name, len(v), MaxValueLength)
		}
	}
	return nil
}
