// Package bricks содержит реестр типов bricks и их реализации.
//
// # Обзор
//
// Каждый тип brick состоит из двух частей:
//   - схема (engine.BrickSchema) — порты и поля конфигурации,
//     по ней строится и проверяется граф;
//   - реализация (Brick) — логика, которую orchestrator вызывает при выполнении.
//
// Registry связывает их и проверяет, что имена портов совпадают:
//
//	registry := bricks.DefaultRegistry()
//	brick, err := registry.Get("list_instances")
//	schema, ok := registry.Schema("list_instances")
//
// # Встроенные типы
//
//	list_instances          database (config "Name of DB") → instances List<Instance>
//	get_first_instance      instances List<Instance>       → instance Object
//	log_instance_properties object Object                  → строка вывода
//	format_instance         object Object, template (config "Template") → text String
//	log_text                text String                    → строка вывода
//
// # Обработка ошибок
//
// Bricks возвращают типизированные ошибки:
//
//	var (
//	    ErrEmptyList          // пустой список на входе
//	    ErrInvalidInput       // неожиданная форма значения
//	    ErrInvalidConfig      // неверная конфигурация
//	    domain.ErrDatabaseNotFound // база не найдена (от InstanceStore)
//	)
//
// Повторов нет: первая ошибка останавливает выполнение function.
package bricks
