// Package engine содержит модель графа function и проверку её корректности.
//
// Включает:
//   - schema.go    — схемы типов bricks, порты и совместимость типов
//   - graph.go     — редактирование графа с проверкой инвариантов
//   - validator.go — проверка снимка перед выполнением
//   - dag.go       — построение DAG и порядок выполнения (алгоритм Кана)
//   - template.go  — рендеринг Go templates для format_instance
//
// Engine не выполняет bricks: это делает orchestrator,
// используя порядок, который строит DAG.
package engine
