// Package cli реализует инструмент командной строки Bricks.
//
// # Обзор
//
// CLI работает с Bricks API по HTTP: создаёт functions, редактирует
// граф bricks и запускает выполнение. Команда run-local выполняет
// HCL blueprint прямо в процессе, без сервера.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Bricks API. Инкапсулирует запросы, разбор
// ответов (DataResponse, ListResponse) и ошибок. Ошибка API
// возвращается как *APIError со списком ошибок проверки графа
// или ID упавшего brick.
//
//	client := cli.NewClient("http://localhost:8080")
//	exec, err := client.RunFunction(id)
//
// ## Output
//
// Форматирование вывода:
//   - таблицы (text/tabwriter) по умолчанию
//   - JSON с флагом --json
//
// Данные и вывод function идут в stdout, сообщения (Success/Error) в stderr:
//
//	bricks function run $ID --json | jq .output_lines
//
// ## Commands
//
//   - function: list, create, show, delete, validate, run
//   - brick: add, move, configure, remove
//   - connection: add, remove
//   - database: list
//   - brick-types
//   - run-local FILE.hcl
//
// Каждая группа создаётся фабричной функцией (NewFunctionCmd и т.д.),
// принимающей clientFn и outputFn: Client и Output создаются лениво,
// после разбора PersistentFlags.
package cli
