// Package blueprint загружает functions из HCL файлов.
//
// Blueprint описывает базы с экземплярами и граф одной function.
// Build собирает из него снимок и in-memory хранилище, которые
// orchestrator выполняет без сервера и PostgreSQL (bricks-cli run-local).
package blueprint
