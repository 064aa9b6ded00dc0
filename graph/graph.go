// Package graph runs a typed state through a chain of named nodes.
package graph

import (
	"context"
	"fmt"
)

// NodeType represents the type of a node in the graph
type NodeType string

const (
	NodeTypeStart  NodeType = "start"
	NodeTypeEnd    NodeType = "end"
	NodeTypeCustom NodeType = "custom"
)

// NodeFunc is the function executed by a node. It receives the state produced
// by the previous node and returns the state for the next one.
type NodeFunc[S any] func(context.Context, S) (S, error)

// Node is a named step with a single successor.
type Node[S any] struct {
	Name    string
	Type    NodeType
	Execute NodeFunc[S] // Optional for end nodes
	Next    string      // Empty only for end nodes
}

// Graph is a strictly sequential state machine. Every node names exactly one
// successor, so execution order is fixed when the graph is built.
type Graph[S any] struct {
	nodes     map[string]*Node[S]
	startNode string
	endNode   string
	maxVisits int
	onEnter   func(ctx context.Context, name string)
}

// NewGraph creates a new graph
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:     make(map[string]*Node[S]),
		maxVisits: 1,
	}
}

func (g *Graph[S]) validateNode(node *Node[S]) {
	if node.Name == "" {
		panic("node name cannot be empty")
	}
	if node.Type != NodeTypeEnd {
		if node.Execute == nil {
			panic(fmt.Sprintf("node %s of type %s must have non-nil Execute function", node.Name, node.Type))
		}
		if node.Next == "" {
			panic(fmt.Sprintf("node %s must name a next node", node.Name))
		}
	}
}

// AddNode adds a node to the graph
func (g *Graph[S]) AddNode(node *Node[S]) {
	if _, exists := g.nodes[node.Name]; exists {
		panic(fmt.Sprintf("node %s already exists", node.Name))
	}
	g.validateNode(node)
	g.nodes[node.Name] = node

	if node.Type == NodeTypeStart {
		g.startNode = node.Name
	}
	if node.Type == NodeTypeEnd {
		g.endNode = node.Name
	}
}

// SetStartNode sets the start node
func (g *Graph[S]) SetStartNode(name string) {
	if _, exists := g.nodes[name]; !exists {
		panic(fmt.Sprintf("node %s not found", name))
	}
	g.startNode = name
}

// SetMaxVisits sets how often a single node may run during one execution.
func (g *Graph[S]) SetMaxVisits(maxVisits int) {
	if maxVisits > 0 {
		g.maxVisits = maxVisits
	}
}

// OnEnter registers a callback invoked before each node runs, end node included.
func (g *Graph[S]) OnEnter(fn func(ctx context.Context, name string)) {
	g.onEnter = fn
}

// GetNode returns a node by name
func (g *Graph[S]) GetNode(name string) (*Node[S], error) {
	node, exists := g.nodes[name]
	if !exists {
		return nil, fmt.Errorf("node %s not found", name)
	}
	return node, nil
}

// Execute walks the chain from the start node to the end node. A node error
// stops execution and is returned together with the last good state.
func (g *Graph[S]) Execute(ctx context.Context, state S) (S, error) {
	if g.startNode == "" {
		return state, fmt.Errorf("start node not set")
	}
	if g.endNode == "" {
		return state, fmt.Errorf("end node not set")
	}

	visited := make(map[string]int, len(g.nodes))
	current := g.startNode
	for {
		node, exists := g.nodes[current]
		if !exists {
			return state, fmt.Errorf("node %s not found", current)
		}
		visited[current]++
		if visited[current] > g.maxVisits {
			return state, fmt.Errorf("loop detected at node %s", current)
		}
		if g.onEnter != nil {
			g.onEnter(ctx, current)
		}

		if node.Execute != nil {
			next, err := node.Execute(ctx, state)
			if err != nil {
				return state, fmt.Errorf("error executing node %s: %w", node.Name, err)
			}
			state = next
		}
		if node.Type == NodeTypeEnd {
			return state, nil
		}
		current = node.Next
	}
}

// Builder helps build graphs fluently
type Builder[S any] struct {
	steps []*Node[S]
}

// NewBuilder creates a new graph builder
func NewBuilder[S any]() *Builder[S] {
	return &Builder[S]{}
}

// Then appends a step after the previously added one. The first step becomes
// the start node.
func (b *Builder[S]) Then(name string, execute NodeFunc[S]) *Builder[S] {
	b.steps = append(b.steps, &Node[S]{Name: name, Type: NodeTypeCustom, Execute: execute})
	return b
}

// End appends the terminal node, links the steps in order, and returns the graph.
// It panics on an empty chain or an invalid step, like AddNode.
func (b *Builder[S]) End(name string, execute NodeFunc[S]) *Graph[S] {
	if len(b.steps) == 0 {
		panic("graph needs at least one step before the end node")
	}
	b.steps[0].Type = NodeTypeStart
	for i, step := range b.steps {
		if i+1 < len(b.steps) {
			step.Next = b.steps[i+1].Name
		} else {
			step.Next = name
		}
	}

	g := NewGraph[S]()
	for _, step := range b.steps {
		g.AddNode(step)
	}
	g.AddNode(&Node[S]{Name: name, Type: NodeTypeEnd, Execute: execute})
	return g
}
