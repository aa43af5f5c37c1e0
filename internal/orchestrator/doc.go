// Package orchestrator выполняет functions.
//
// Orchestrator отвечает за:
//   - Загрузку согласованного снимка function
//   - Проверку снимка и построение порядка выполнения
//   - Вызов bricks из реестра с разрешёнными входами
//   - Передачу выходов по connections
//   - Сбор консольного вывода (OutputSink)
//
// Выполнение последовательное и атомарное по выводу:
// первая ошибка останавливает запуск, вывод отбрасывается.
package orchestrator
