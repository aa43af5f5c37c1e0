package orchestrator

import "sync"

// OutputSink — упорядоченный консольный вывод одного выполнения.
//
// Строки только добавляются. Bricks не читают sink:
// они возвращают строки в Response, а оркестратор дописывает их сюда.
type OutputSink struct {
	mu    sync.Mutex
	lines []string
}

// NewOutputSink создаёт пустой sink.
func NewOutputSink() *OutputSink {
	return &OutputSink{lines: make([]string, 0)}
}

// Append добавляет строки в конец вывода.
func (s *OutputSink) Append(lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, lines...)
}

// Lines возвращает копию вывода.
func (s *OutputSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

// Len возвращает количество строк.
func (s *OutputSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}
