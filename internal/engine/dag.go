package engine

import (
	"container/heap"

	"github.com/google/uuid"

	"github.com/shaiso/bricks/internal/domain"
)

// Node — узел в DAG.
type Node struct {
	// Brick — brick из снимка function.
	Brick domain.Brick

	// Index — позиция brick в порядке добавления.
	Index int

	// InDegree — количество подключённых входов.
	InDegree int

	// Incoming — рёбра, приходящие во входы узла.
	Incoming []domain.Connection

	// Dependents — узлы, которые зависят от этого узла (по одному на ребро).
	Dependents []*Node
}

// ID возвращает ID brick узла.
func (n *Node) ID() uuid.UUID {
	return n.Brick.ID
}

// DAG — направленный ациклический граф bricks function.
type DAG struct {
	// Nodes — все узлы графа (brickID → Node).
	Nodes map[uuid.UUID]*Node

	// RootNodes — узлы без входящих рёбер в порядке добавления.
	RootNodes []*Node

	// Order — топологически отсортированный список узлов.
	Order []*Node
}

// BuildDAG строит DAG из снимка function.
//
// Снимок должен пройти Validate: рёбра к несуществующим bricks пропускаются,
// а цикл приводит к ErrCyclicGraph.
func BuildDAG(snapshot *domain.FunctionSnapshot) (*DAG, error) {
	dag := &DAG{
		Nodes:     make(map[uuid.UUID]*Node, len(snapshot.Bricks)),
		RootNodes: make([]*Node, 0),
	}

	// Первый проход: создаём все узлы
	for i, b := range snapshot.Bricks {
		dag.Nodes[b.ID] = &Node{
			Brick:      b,
			Index:      i,
			Dependents: make([]*Node, 0),
		}
	}

	// Второй проход: связываем узлы по connections
	for _, c := range snapshot.Connections {
		from, ok := dag.Nodes[c.FromBrickID]
		if !ok {
			continue
		}
		to, ok := dag.Nodes[c.ToBrickID]
		if !ok {
			continue
		}
		dag.addEdge(from, to, c)
	}

	for _, b := range snapshot.Bricks {
		if node := dag.Nodes[b.ID]; node.InDegree == 0 {
			dag.RootNodes = append(dag.RootNodes, node)
		}
	}

	order, err := dag.topologicalSort()
	if err != nil {
		return nil, err
	}
	dag.Order = order

	return dag, nil
}

// addEdge добавляет ребро между узлами.
// Каждый подключённый вход увеличивает InDegree на единицу.
func (d *DAG) addEdge(from, to *Node, c domain.Connection) {
	from.Dependents = append(from.Dependents, to)
	to.Incoming = append(to.Incoming, c)
	to.InDegree++
}

// topologicalSort выполняет топологическую сортировку (алгоритм Кана).
//
// Из готовых узлов всегда выбирается добавленный раньше остальных,
// поэтому порядок детерминирован для одного и того же снимка.
func (d *DAG) topologicalSort() ([]*Node, error) {
	// Копируем inDegree, чтобы не модифицировать оригинал
	inDegree := make(map[uuid.UUID]int, len(d.Nodes))
	for id, node := range d.Nodes {
		inDegree[id] = node.InDegree
	}

	ready := make(nodeHeap, 0, len(d.RootNodes))
	for _, n := range d.RootNodes {
		heap.Push(&ready, n)
	}

	order := make([]*Node, 0, len(d.Nodes))

	for ready.Len() > 0 {
		node := heap.Pop(&ready).(*Node)
		order = append(order, node)

		// Уменьшаем inDegree у зависимых узлов
		for _, dependent := range node.Dependents {
			inDegree[dependent.ID()]--
			if inDegree[dependent.ID()] == 0 {
				heap.Push(&ready, dependent)
			}
		}
	}

	// Если не все узлы обработаны — есть цикл
	if len(order) != len(d.Nodes) {
		return nil, ErrCyclicGraph
	}

	return order, nil
}

// GetNode возвращает узел по ID.
func (d *DAG) GetNode(id uuid.UUID) *Node {
	return d.Nodes[id]
}

// Size возвращает количество узлов в DAG.
func (d *DAG) Size() int {
	return len(d.Nodes)
}

// Bricks возвращает bricks в порядке выполнения.
func (d *DAG) Bricks() []domain.Brick {
	bricks := make([]domain.Brick, len(d.Order))
	for i, n := range d.Order {
		bricks[i] = n.Brick
	}
	return bricks
}

// nodeHeap — min-heap узлов по индексу добавления.
type nodeHeap []*Node

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].Index < h[j].Index }
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x any) {
	*h = append(*h, x.(*Node))
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return node
}
