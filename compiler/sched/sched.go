// Package sched implements the per-block list scheduler: a
// precedence graph over one machine block's instructions, followed by a
// cycle-by-cycle greedy scheduling simulation keyed by static latency.
package sched

import (
	"nikand.dev/go/heap"
	"tlog.app/go/tlog"

	"github.com/marche147/klang/compiler/mir"
)

type node struct {
	inst  *mir.Instruction
	order int // original program-order index, used as the tie-break

	preds []*node
	succs []*node

	indegree int
}

// Function schedules every block of f in place.
func Function(f *mir.Function) {
	for _, b := range f.Blocks {
		Block(b)
	}
}

// Block replaces b.Instrs with a valid topological order of the same
// instructions chosen greedily by descending static latency.
func Block(b *mir.Block) {
	nodes := buildGraph(b.Instrs)
	if len(nodes) == 0 {
		return
	}

	order := run(nodes)

	instrs := make([]*mir.Instruction, len(order))
	for i, n := range order {
		instrs[i] = n.inst
	}
	b.Instrs = instrs

	tlog.V("sched").Printw("scheduled block", "block", b.Name, "instrs", len(instrs))
}

// buildGraph walks b's instructions in program order, tracking the last
// definer of each virtual register, each physical register, and the flags.
// Barrier instructions (mir.Op.IsBarrier) gain an edge from
// every node created so far and every later node gains an edge from the
// most recent barrier, making barriers total ordering points.
func buildGraph(instrs []*mir.Instruction) []*node {
	nodes := make([]*node, 0, len(instrs))

	lastDefVReg := map[mir.VirtReg]*node{}
	lastDefPReg := map[mir.PhysReg]*node{}
	var lastFlags *node
	var lastBarrier *node

	addEdge := func(pred, succ *node) {
		if pred == nil || pred == succ {
			return
		}
		pred.succs = append(pred.succs, succ)
		succ.preds = append(succ.preds, pred)
	}

	for i, in := range instrs {
		n := &node{inst: in, order: i}

		if lastBarrier != nil {
			addEdge(lastBarrier, n)
		}

		for _, op := range in.Ins() {
			if v, ok := mir.VirtRegOf(op); ok {
				addEdge(lastDefVReg[v], n)
			}
			for _, r := range mir.AddressRegs(op) {
				addEdge(lastDefPReg[r], n)
			}
		}
		if in.Op.ReadsFlags() {
			addEdge(lastFlags, n)
		}

		if in.Op.IsBarrier() {
			for _, p := range nodes {
				addEdge(p, n)
			}
		}

		for _, op := range in.Outs() {
			if v, ok := mir.VirtRegOf(op); ok {
				lastDefVReg[v] = n
			}
			if r, ok := op.(mir.MReg); ok {
				lastDefPReg[mir.PhysReg(r)] = n
			}
		}
		if in.Op.WritesFlags() {
			lastFlags = n
		}
		if in.Op.IsBarrier() {
			lastBarrier = n
		}

		nodes = append(nodes, n)
	}

	for _, n := range nodes {
		n.indegree = len(n.preds)
	}

	return nodes
}

// readyHeap orders nodes by descending latency, falling back to program
// order as the tie-break.
type readyHeap struct {
	heap.Heap[*node]
}

func newReadyHeap() *readyHeap {
	return &readyHeap{heap.Heap[*node]{Less: readyLess}}
}

func readyLess(d []*node, i, j int) bool {
	li, lj := d[i].inst.Op.Latency(), d[j].inst.Op.Latency()
	if li != lj {
		return li > lj
	}
	return d[i].order < d[j].order
}

type activeNode struct {
	n      *node
	finish int
}

// run drives the forward list-scheduling simulation: one ready node
// enters the active set per cycle, active nodes retire once their
// latency elapses, and retiring a node may unblock its successors.
func run(nodes []*node) []*node {
	ready := newReadyHeap()
	for _, n := range nodes {
		if n.indegree == 0 {
			ready.Push(n)
		}
	}

	order := make([]*node, 0, len(nodes))
	var active []activeNode
	time := 0

	for len(order) < len(nodes) {
		if ready.Len() > 0 {
			n := ready.Pop()
			order = append(order, n)
			active = append(active, activeNode{n: n, finish: time + n.inst.Op.Latency()})
		}

		time++

		retired := active[:0]
		for _, a := range active {
			if a.finish > time {
				retired = append(retired, a)
				continue
			}
			for _, s := range a.n.succs {
				s.indegree--
				if s.indegree == 0 {
					ready.Push(s)
				}
			}
		}
		active = retired

		if ready.Len() == 0 && len(active) == 0 && len(order) < len(nodes) {
			panic("sched: precedence graph is not a DAG")
		}
	}

	return order
}
