// Package api содержит HTTP API редактора и запуска functions.
//
// Структура:
//   - handler.go          — Handler и интерфейсы зависимостей
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — recovery, метрики, логирование запросов
//   - response.go         — JSON-ответы и отображение ошибок на HTTP статусы
//   - dto.go              — request/response структуры
//   - function_handler.go — functions, типы bricks, проверка графа
//   - graph_handler.go    — bricks и connections
//   - run_handler.go      — синхронный и асинхронный запуск
//   - database_handler.go — базы проекта
//
// Каждое изменение графа проходит через engine.Graph поверх свежего
// снимка: правила графа проверяются до записи в хранилище.
package api
