package engine

import (
	"cmp"
	"slices"

	"github.com/shaiso/autoanalysis/internal/domain"
)

// Node — узел в DAG.
type Node struct {
	// Spec — описание stage из конфигурации.
	Spec *domain.PipelineSpec

	// ID — идентичность stage (name@version).
	ID string

	// Index — позиция stage в объявленном порядке.
	Index int

	// InDegree — количество входящих рёбер (зависимостей).
	InDegree int

	// DependsOn — узлы, от которых зависит этот узел.
	DependsOn []*Node

	// Dependents — узлы, которые зависят от этого узла.
	Dependents []*Node
}

// DAG — граф зависимостей между сконфигурированными stage.
//
// Зависимости на stage, которых нет в конфигурации, в граф не попадают:
// их выход производится кем-то ещё. Такие идентичности собираются в External.
type DAG struct {
	// Nodes — все узлы графа (identity → Node).
	Nodes map[string]*Node

	// RootNodes — узлы без зависимостей внутри конфигурации.
	RootNodes []*Node

	// Order — топологически отсортированный список узлов.
	Order []*Node

	// External — зависимости вне конфигурации, в порядке появления.
	External []domain.PipelineIdentity
}

// BuildDAG строит DAG из списка stage.
//
// Дубликаты идентичностей и self-зависимости должны быть отсеяны заранее
// (см. ValidatePipelines). При цикле возвращается ErrCyclicDependency.
func BuildDAG(specs []domain.PipelineSpec) (*DAG, error) {
	dag := &DAG{
		Nodes:     make(map[string]*Node, len(specs)),
		RootNodes: make([]*Node, 0),
	}

	// Первый проход: создаём узлы
	for i := range specs {
		spec := &specs[i]
		id := spec.Identity().String()
		if _, exists := dag.Nodes[id]; exists {
			continue
		}
		dag.Nodes[id] = &Node{
			Spec:       spec,
			ID:         id,
			Index:      i,
			DependsOn:  make([]*Node, 0),
			Dependents: make([]*Node, 0),
		}
	}

	// Второй проход: связываем узлы
	seenExternal := make(map[string]bool)
	for i := range specs {
		node := dag.Nodes[specs[i].Identity().String()]
		if node.Spec != &specs[i] {
			continue
		}
		for _, dep := range specs[i].Dependencies {
			depNode, exists := dag.Nodes[dep.String()]
			if !exists {
				if !seenExternal[dep.String()] {
					seenExternal[dep.String()] = true
					dag.External = append(dag.External, dep)
				}
				continue
			}
			dag.addEdge(depNode, node)
		}
	}

	dag.findRootNodes()

	order, err := dag.topologicalSort()
	if err != nil {
		return nil, err
	}
	dag.Order = order

	return dag, nil
}

// addEdge добавляет ребро между узлами.
// Дубликаты игнорируются, чтобы не учитывать InDegree дважды.
func (d *DAG) addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep.ID == from.ID {
			return
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

// findRootNodes находит узлы без входящих рёбер в объявленном порядке.
func (d *DAG) findRootNodes() {
	d.RootNodes = make([]*Node, 0)
	for _, node := range d.byIndex() {
		if node.InDegree == 0 {
			d.RootNodes = append(d.RootNodes, node)
		}
	}
}

// byIndex возвращает узлы в объявленном порядке.
func (d *DAG) byIndex() []*Node {
	nodes := make([]*Node, 0, len(d.Nodes))
	for _, node := range d.Nodes {
		nodes = append(nodes, node)
	}
	slices.SortFunc(nodes, func(a, b *Node) int {
		return cmp.Compare(a.Index, b.Index)
	})
	return nodes
}

// topologicalSort выполняет топологическую сортировку (алгоритм Кана).
// Возвращает ошибку, если обнаружен цикл.
func (d *DAG) topologicalSort() ([]*Node, error) {
	inDegree := make(map[string]int, len(d.Nodes))
	for id, node := range d.Nodes {
		inDegree[id] = node.InDegree
	}

	queue := make([]*Node, len(d.RootNodes))
	copy(queue, d.RootNodes)

	order := make([]*Node, 0, len(d.Nodes))

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dependent := range node.Dependents {
			inDegree[dependent.ID]--
			if inDegree[dependent.ID] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(d.Nodes) {
		return nil, ErrCyclicDependency
	}

	return order, nil
}

// GetNode возвращает узел по идентичности.
func (d *DAG) GetNode(id string) *Node {
	return d.Nodes[id]
}

// Size возвращает количество узлов в DAG.
func (d *DAG) Size() int {
	return len(d.Nodes)
}
