package ir

// instID is a stable handle into a Function's instruction arena. It plays
// the role of the "next/prev/parent become handles" recommendation of the
// spec's design notes: instructions never hold raw pointers to their
// siblings, so moving one between positions (or blocks) cannot leave a
// dangling reference.
type instID int32

const noInst instID = -1

// BasicBlock owns an ordered, doubly-traversable sequence of instructions.
// It has a stable index within its parent Function. Only its terminator
// (the last instruction) may carry successor edges.
type BasicBlock struct {
	fn   *Function
	idx  int
	head instID
	tail instID
}

// Index returns this block's stable position within its function.
func (b *BasicBlock) Index() int { return b.idx }

// Empty reports whether the block has no instructions.
func (b *BasicBlock) Empty() bool { return b.head == noInst }

// First returns the block's first instruction, or nil if empty.
func (b *BasicBlock) First() *Instruction { return b.fn.instAt(b.head) }

// Last returns the block's last instruction, or nil if empty.
func (b *BasicBlock) Last() *Instruction { return b.fn.instAt(b.tail) }

// Terminator returns the block's terminating instruction. It returns nil
// if the block is empty or its last instruction is not a terminator.
func (b *BasicBlock) Terminator() *Instruction {
	last := b.Last()
	if last == nil || !last.IsTerminator() {
		return nil
	}
	return last
}

// Next returns the instruction following in, within the same block.
func (b *BasicBlock) Next(in *Instruction) *Instruction { return b.fn.instAt(in.next) }

// Prev returns the instruction preceding in, within the same block.
func (b *BasicBlock) Prev(in *Instruction) *Instruction { return b.fn.instAt(in.prev) }

// Append adds in as the new last instruction of the block. in must not
// already belong to a block.
func (b *BasicBlock) Append(in *Instruction) *Instruction {
	b.mustBeDetached(in)
	b.fn.claim(in)
	in.block = b

	if b.tail == noInst {
		b.head, b.tail = in.id, in.id
		return in
	}

	tail := b.fn.instrs[b.tail]
	tail.next = in.id
	in.prev = b.tail
	b.tail = in.id

	return in
}

// Prepend adds in as the new first instruction of the block.
func (b *BasicBlock) Prepend(in *Instruction) *Instruction {
	b.mustBeDetached(in)
	b.fn.claim(in)
	in.block = b

	if b.head == noInst {
		b.head, b.tail = in.id, in.id
		return in
	}

	head := b.fn.instrs[b.head]
	head.prev = in.id
	in.next = b.head
	b.head = in.id

	return in
}

// InsertBefore inserts in immediately before mark, which must already be
// in this block.
func (b *BasicBlock) InsertBefore(mark, in *Instruction) *Instruction {
	b.mustOwn(mark)
	b.mustBeDetached(in)
	b.fn.claim(in)
	in.block = b

	in.prev = mark.prev
	in.next = mark.id

	if mark.prev != noInst {
		b.fn.instrs[mark.prev].next = in.id
	} else {
		b.head = in.id
	}
	mark.prev = in.id

	return in
}

// InsertAfter inserts in immediately after mark, which must already be in
// this block.
func (b *BasicBlock) InsertAfter(mark, in *Instruction) *Instruction {
	b.mustOwn(mark)
	b.mustBeDetached(in)
	b.fn.claim(in)
	in.block = b

	in.next = mark.next
	in.prev = mark.id

	if mark.next != noInst {
		b.fn.instrs[mark.next].prev = in.id
	} else {
		b.tail = in.id
	}
	mark.next = in.id

	return in
}

// Remove detaches in from the block. The instruction's parent link is
// cleared; reinserting it elsewhere (or discarding it) is now legal.
func (b *BasicBlock) Remove(in *Instruction) {
	b.mustOwn(in)

	if in.prev != noInst {
		b.fn.instrs[in.prev].next = in.next
	} else {
		b.head = in.next
	}

	if in.next != noInst {
		b.fn.instrs[in.next].prev = in.prev
	} else {
		b.tail = in.prev
	}

	in.block = nil
	in.prev, in.next = noInst, noInst
}

// Replace swaps old for new in place, then removes old from the block.
// new must not already belong to a block.
func (b *BasicBlock) Replace(old, next *Instruction) *Instruction {
	b.InsertBefore(old, next)
	b.Remove(old)

	return next
}

// ForEach walks the block head-to-tail, calling fn for each instruction.
// fn may remove or replace the current instruction; iteration continues
// from what was recorded as "next" before the call.
func (b *BasicBlock) ForEach(fn func(*Instruction) bool) {
	for cur := b.First(); cur != nil; {
		next := b.Next(cur)
		if !fn(cur) {
			return
		}
		cur = next
	}
}

// ForEachReverse walks the block tail-to-head.
func (b *BasicBlock) ForEachReverse(fn func(*Instruction) bool) {
	for cur := b.Last(); cur != nil; {
		prev := b.Prev(cur)
		if !fn(cur) {
			return
		}
		cur = prev
	}
}

// Instructions collects the block's instructions into a slice, in order.
func (b *BasicBlock) Instructions() []*Instruction {
	out := make([]*Instruction, 0, 8)
	b.ForEach(func(in *Instruction) bool {
		out = append(out, in)
		return true
	})
	return out
}

// Predecessors scans the function's other blocks for terminators that
// name this block as a successor: predecessors are not stored, they are
// computed on demand.
func (b *BasicBlock) Predecessors() []*BasicBlock {
	var preds []*BasicBlock

	for _, ob := range b.fn.Blocks {
		term := ob.Last()
		if term == nil {
			continue
		}

		for _, s := range term.Succs {
			if s == b {
				preds = append(preds, ob)
				break
			}
		}
	}

	return preds
}

func (b *BasicBlock) mustOwn(in *Instruction) {
	if in.block != b {
		panic("ir: instruction does not belong to this block")
	}
}

func (b *BasicBlock) mustBeDetached(in *Instruction) {
	if in.block != nil {
		panic("ir: inserting an already-parented instruction")
	}
}

// Function owns an ordered list of basic blocks (entry first) and the
// virtual-register namespace for one source function.
type Function struct {
	Name      string
	NumParams int

	Blocks []*BasicBlock

	instrs   []*Instruction
	nextVReg int
}

// NewFunction creates an empty function with no blocks.
func NewFunction(name string, numParams int) *Function {
	return &Function{Name: name, NumParams: numParams}
}

// Entry returns the function's entry block (the first one created), or
// nil if the function has no blocks yet.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NewBlock appends a fresh, empty basic block to the function.
func (f *Function) NewBlock() *BasicBlock {
	b := &BasicBlock{fn: f, idx: len(f.Blocks), head: noInst, tail: noInst}
	f.Blocks = append(f.Blocks, b)
	return b
}

// NewRegister allocates a fresh virtual register, unique within f.
func (f *Function) NewRegister() Register {
	r := Register(f.nextVReg)
	f.nextVReg++
	return r
}

// NumRegisters returns one past the highest virtual register id ever
// allocated in this function.
func (f *Function) NumRegisters() int { return f.nextVReg }

func (f *Function) instAt(id instID) *Instruction {
	if id == noInst {
		return nil
	}
	return f.instrs[id]
}

func (f *Function) claim(in *Instruction) {
	in.id = instID(len(f.instrs))
	in.prev, in.next = noInst, noInst
	f.instrs = append(f.instrs, in)
}

// reindexBlocks recomputes each block's Index() after removal. DCE calls
// this after dropping unreachable blocks so RPO/dominance numbering stays
// dense.
func (f *Function) reindexBlocks() {
	for i, b := range f.Blocks {
		b.idx = i
	}
}

// RemoveBlock deletes b from the function's block list. It does not
// rewrite any surviving terminator's successor list; callers must ensure
// no reachable block still branches to b.
func (f *Function) RemoveBlock(b *BasicBlock) {
	for i, ob := range f.Blocks {
		if ob == b {
			f.Blocks = append(f.Blocks[:i], f.Blocks[i+1:]...)
			f.reindexBlocks()
			return
		}
	}
}

// Module owns an ordered list of functions.
type Module struct {
	Functions []*Function

	// Externs lists runtime/foreign function names the module calls but
	// does not define (the runtime ABI plus any user-declared prototypes).
	Externs []string
}

// NewModule creates an empty module.
func NewModule() *Module { return &Module{} }

// NewFunction creates a function and appends it to the module.
func (m *Module) NewFunction(name string, numParams int) *Function {
	f := NewFunction(name, numParams)
	m.Functions = append(m.Functions, f)
	return f
}
