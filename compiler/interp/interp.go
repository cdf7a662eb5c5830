// Package interp implements an interpreter over TAC-IR (compiler/ir). The
// test suite uses it to run hand-built IR fixtures and the output of
// compiler/irgen and check the values they return.
package interp

import (
	"bufio"
	"bytes"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"github.com/marche147/klang/compiler/ir"
)

// NativeFunc is a runtime-ABI function not defined in the module itself
// (printi, prints, inputi, inputs, random).
type NativeFunc func(m *Machine, args []int64) int64

// Machine holds all state shared across a run: the module's functions,
// the registered native functions, the array heap, and the interned
// string table. Registers live in a per-call map rather than one global
// flat map, since recursive calls need their own independent register
// space.
type Machine struct {
	funcs   map[string]*ir.Function
	natives map[string]NativeFunc

	arrays  [][]int64
	strings []string

	in  *bufio.Scanner
	out bytes.Buffer
	rng *rand.Rand
}

// NewMachine builds a Machine over mod's functions with the standard
// runtime ABI registered, empty input, and a fixed default seed (callers
// doing anything random-sensitive should call SetSeed explicitly, to
// keep a run deterministic and reproducible).
func NewMachine(mod *ir.Module) *Machine {
	m := &Machine{
		funcs:   map[string]*ir.Function{},
		natives: map[string]NativeFunc{},
		in:      bufio.NewScanner(strings.NewReader("")),
		rng:     rand.New(rand.NewSource(1)),
	}
	for _, f := range mod.Functions {
		m.funcs[f.Name] = f
	}
	m.registerRuntime()
	return m
}

// SetInput feeds text as the source for successive inputi/inputs calls,
// one line per call.
func (m *Machine) SetInput(text string) {
	m.in = bufio.NewScanner(strings.NewReader(text))
}

// SetSeed reseeds the random() source.
func (m *Machine) SetSeed(seed int64) {
	m.rng = rand.New(rand.NewSource(seed))
}

// Output returns everything printi/prints have written so far.
func (m *Machine) Output() string {
	return m.out.String()
}

// RegisterNative overrides or adds a runtime function, for fixtures that
// want a deterministic stand-in (e.g. a fixed sequence for random()).
func (m *Machine) RegisterNative(name string, fn NativeFunc) {
	m.natives[name] = fn
}

func (m *Machine) registerRuntime() {
	m.natives["printi"] = func(m *Machine, args []int64) int64 {
		fmt.Fprintln(&m.out, args[0])
		return 0
	}
	m.natives["prints"] = func(m *Machine, args []int64) int64 {
		s, _ := m.stringAt(args[0])
		fmt.Fprintln(&m.out, s)
		return 0
	}
	m.natives["inputi"] = func(m *Machine, args []int64) int64 {
		if !m.in.Scan() {
			return 0
		}
		v, _ := strconv.ParseInt(strings.TrimSpace(m.in.Text()), 10, 64)
		return v
	}
	m.natives["inputs"] = func(m *Machine, args []int64) int64 {
		if !m.in.Scan() {
			return m.internString("")
		}
		return m.internString(m.in.Text())
	}
	m.natives["random"] = func(m *Machine, args []int64) int64 {
		return m.rng.Int63()
	}
}

func (m *Machine) internString(s string) int64 {
	m.strings = append(m.strings, s)
	return int64(len(m.strings) - 1)
}

func (m *Machine) stringAt(handle int64) (string, error) {
	if handle < 0 || handle >= int64(len(m.strings)) {
		return "", errors.New("interp: no such string handle %d", handle)
	}
	return m.strings[handle], nil
}

func (m *Machine) newArray(size int64) (int64, error) {
	if size < 0 {
		return 0, errors.New("interp: negative array size %d", size)
	}
	m.arrays = append(m.arrays, make([]int64, size))
	return int64(len(m.arrays) - 1), nil
}

func (m *Machine) loadArray(handle, index int64) (int64, error) {
	arr, err := m.arrayAt(handle)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= int64(len(arr)) {
		return 0, errors.New("interp: array %d index %d out of bounds (len %d)", handle, index, len(arr))
	}
	return arr[index], nil
}

func (m *Machine) storeArray(handle, index, value int64) error {
	arr, err := m.arrayAt(handle)
	if err != nil {
		return err
	}
	if index < 0 || index >= int64(len(arr)) {
		return errors.New("interp: array %d index %d out of bounds (len %d)", handle, index, len(arr))
	}
	arr[index] = value
	return nil
}

func (m *Machine) arrayAt(handle int64) ([]int64, error) {
	if handle < 0 || handle >= int64(len(m.arrays)) {
		return nil, errors.New("interp: no such array %d", handle)
	}
	return m.arrays[handle], nil
}

// Call runs the function named name (user-defined or native) with args
// and returns its result.
func (m *Machine) Call(name string, args []int64) (int64, error) {
	if f, ok := m.funcs[name]; ok {
		return m.execute(f, args)
	}
	if nf, ok := m.natives[name]; ok {
		return nf(m, args), nil
	}
	return 0, errors.New("interp: unknown function %q", name)
}

// execute runs f to completion: Register/Immediate/Parameter loads feed a
// per-call register map, Binary instructions use evalBinary, terminators
// pick the next block or return, and Call/CallVoid recurse through Call
// so user functions and the runtime ABI share one dispatch path.
func (m *Machine) execute(f *ir.Function, args []int64) (int64, error) {
	if len(args) != f.NumParams {
		return 0, errors.New("interp: %s expects %d args, got %d", f.Name, f.NumParams, len(args))
	}

	regs := make(map[ir.Register]int64, f.NumRegisters())

	load := func(op ir.Operand) (int64, error) {
		switch o := op.(type) {
		case ir.Immediate:
			return int64(o), nil
		case ir.Register:
			return regs[o], nil
		case ir.Parameter:
			if int(o) >= len(args) {
				return 0, errors.New("interp: %s: parameter %d out of range", f.Name, int(o))
			}
			return args[o], nil
		default:
			return 0, errors.New("interp: %s: unsupported operand type %T", f.Name, op)
		}
	}

	block := f.Entry()
	if block == nil {
		return 0, errors.New("interp: %s has no entry block", f.Name)
	}

	for {
		var (
			next     *ir.BasicBlock
			retVal   int64
			returned bool
			runErr   error
		)

		block.ForEach(func(in *ir.Instruction) bool {
			switch in.Op {
			case ir.Nop:

			case ir.Assign:
				v, err := load(in.Operands[0])
				if err != nil {
					runErr = err
					return false
				}
				regs[in.Dst] = v

			case ir.Binary:
				a, err := load(in.Operands[0])
				if err != nil {
					runErr = err
					return false
				}
				b, err := load(in.Operands[1])
				if err != nil {
					runErr = err
					return false
				}
				v, err := evalBinary(in.BinOp, a, b)
				if err != nil {
					runErr = err
					return false
				}
				regs[in.Dst] = v

			case ir.Jmp:
				next = in.Succs[0]
				return false

			case ir.Jnz:
				cond, err := load(in.Operands[0])
				if err != nil {
					runErr = err
					return false
				}
				if cond != 0 {
					next = in.Succs[0]
				} else {
					next = in.Succs[1]
				}
				return false

			case ir.Call:
				callArgs, err := loadAll(load, in.Operands)
				if err != nil {
					runErr = err
					return false
				}
				v, err := m.Call(in.Name, callArgs)
				if err != nil {
					runErr = err
					return false
				}
				regs[in.Dst] = v

			case ir.CallVoid:
				callArgs, err := loadAll(load, in.Operands)
				if err != nil {
					runErr = err
					return false
				}
				if _, err := m.Call(in.Name, callArgs); err != nil {
					runErr = err
					return false
				}

			case ir.Ret:
				v, err := load(in.Operands[0])
				if err != nil {
					runErr = err
					return false
				}
				retVal, returned = v, true
				return false

			case ir.RetVoid:
				returned = true
				return false

			case ir.ArrayNew:
				size, err := load(in.Operands[0])
				if err != nil {
					runErr = err
					return false
				}
				v, err := m.newArray(size)
				if err != nil {
					runErr = err
					return false
				}
				regs[in.Dst] = v

			case ir.ArrayLoad:
				arr, err := load(in.Operands[0])
				if err != nil {
					runErr = err
					return false
				}
				idx, err := load(in.Operands[1])
				if err != nil {
					runErr = err
					return false
				}
				v, err := m.loadArray(arr, idx)
				if err != nil {
					runErr = err
					return false
				}
				regs[in.Dst] = v

			case ir.ArrayStore:
				arr, err := load(in.Operands[0])
				if err != nil {
					runErr = err
					return false
				}
				idx, err := load(in.Operands[1])
				if err != nil {
					runErr = err
					return false
				}
				val, err := load(in.Operands[2])
				if err != nil {
					runErr = err
					return false
				}
				if err := m.storeArray(arr, idx, val); err != nil {
					runErr = err
					return false
				}

			case ir.LoadLabel:
				regs[in.Dst] = m.internString(in.Name)

			default:
				runErr = errors.New("interp: %s: unsupported opcode %v", f.Name, in.Op)
				return false
			}

			return true
		})

		if runErr != nil {
			return 0, runErr
		}
		if returned {
			return retVal, nil
		}
		if next == nil {
			return 0, errors.New("interp: %s: fell off the end of a block without a terminator", f.Name)
		}
		block = next
	}
}

func loadAll(load func(ir.Operand) (int64, error), ops []ir.Operand) ([]int64, error) {
	out := make([]int64, len(ops))
	for i, op := range ops {
		v, err := load(op)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// evalBinary implements the BinOp set; integer division/modulo by zero
// is a runtime error rather than a language-defined trap value.
func evalBinary(op ir.BinOp, a, b int64) (int64, error) {
	switch op {
	case ir.Add:
		return a + b, nil
	case ir.Sub:
		return a - b, nil
	case ir.Mul:
		return a * b, nil
	case ir.Div:
		if b == 0 {
			return 0, errors.New("interp: division by zero")
		}
		return a / b, nil
	case ir.Mod:
		if b == 0 {
			return 0, errors.New("interp: modulo by zero")
		}
		return a % b, nil
	case ir.And:
		return a & b, nil
	case ir.Or:
		return a | b, nil
	case ir.Xor:
		return a ^ b, nil
	case ir.Shl:
		return a << uint64(b), nil
	case ir.Shr:
		return a >> uint64(b), nil
	case ir.Lt:
		return boolToInt(a < b), nil
	case ir.Le:
		return boolToInt(a <= b), nil
	case ir.Gt:
		return boolToInt(a > b), nil
	case ir.Ge:
		return boolToInt(a >= b), nil
	case ir.Eq:
		return boolToInt(a == b), nil
	case ir.Ne:
		return boolToInt(a != b), nil
	default:
		return 0, errors.New("interp: unsupported binary operator %v", op)
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
