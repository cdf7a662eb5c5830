package ir

import "tlog.app/go/errors"

// Verify checks the structural invariants of the IR: every block is
// non-empty and ends in a terminator, no non-terminator carries
// successors, operand counts match per-opcode arity, the entry block has
// no predecessors, and every block is reachable from entry. A failure
// here is a back-end bug, not a user error; it is exercised by the test
// suite's verify passes, not by fuzzing user input.
func Verify(f *Function) error {
	if len(f.Blocks) == 0 {
		return errors.New("function %q has no blocks", f.Name)
	}

	if len(f.Entry().Predecessors()) != 0 {
		return errors.New("function %q: entry block bb%d has predecessors", f.Name, f.Entry().Index())
	}

	for _, b := range f.Blocks {
		if err := verifyBlock(b); err != nil {
			return errors.Wrap(err, "bb%d", b.Index())
		}
	}

	reachable := make(map[*BasicBlock]bool, len(f.Blocks))
	for _, b := range ReversePostOrder(f) {
		reachable[b] = true
	}

	for _, b := range f.Blocks {
		if !reachable[b] {
			return errors.New("function %q: bb%d is unreachable from entry", f.Name, b.Index())
		}
	}

	return nil
}

func verifyBlock(b *BasicBlock) error {
	if b.Empty() {
		return errors.New("block is empty")
	}

	last := b.Last()
	if !last.IsTerminator() {
		return errors.New("last instruction %v is not a terminator", last)
	}

	var err error
	b.ForEach(func(in *Instruction) bool {
		if in != last && in.IsTerminator() {
			err = errors.New("non-final terminator %v", in)
			return false
		}

		if in != last && len(in.Succs) != 0 {
			err = errors.New("non-terminator %v carries successors", in)
			return false
		}

		if ar := in.Arity(); ar >= 0 && len(in.Operands) != ar {
			err = errors.New("instruction %v: expected %d operands, got %d", in, ar, len(in.Operands))
			return false
		}

		return true
	})

	return err
}
