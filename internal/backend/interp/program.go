package interp

import (
	"fmt"
	"strings"

	"github.com/example/graphrun/internal/graphio"
	"github.com/example/graphrun/internal/literal"
	"github.com/gomlx/gopjrt/dtypes"
)

// The interp backend compiles a tiny line-oriented instruction set:
//
//	graph add_scalars
//	param x f32[]
//	param y f32[]
//	%0 = add x y
//	ret %0
//
// Blank lines and lines starting with '#' are ignored. All shape and dtype
// checking happens at parse time, so a bad graph fails at the compile step,
// never during execution.

type opCode int

const (
	opInvalid opCode = iota
	opAdd
	opSub
	opMul
	opDiv
	opMax
	opMin
	opNeg
	opAbs
	opConst
)

var opNames = map[string]opCode{
	"add":   opAdd,
	"sub":   opSub,
	"mul":   opMul,
	"div":   opDiv,
	"max":   opMax,
	"min":   opMin,
	"neg":   opNeg,
	"abs":   opAbs,
	"const": opConst,
}

func (op opCode) arity() int {
	switch op {
	case opNeg, opAbs:
		return 1
	case opConst:
		return 0
	}
	return 2
}

type instruction struct {
	dest     string
	op       opCode
	args     []string
	constant *literal.Literal // only for opConst
	shape    literal.Shape    // inferred result shape
	line     int
}

type program struct {
	name    string
	params  []graphio.Node
	insts   []instruction
	rets    []string
	outputs []literal.Shape
}

// parseProgram parses and shape-checks a text graph.
func parseProgram(data []byte) (*program, error) {
	prog := &program{}
	defined := map[string]literal.Shape{}
	sawRet := false

	for lineNum, rawLine := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(rawLine)
		n := lineNum + 1
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch {
		case prog.name == "":
			if len(fields) != 2 || fields[0] != "graph" {
				return nil, fmt.Errorf("line %d: expected \"graph <name>\" header, got %q", n, line)
			}
			prog.name = fields[1]

		case fields[0] == "param":
			if sawRet {
				return nil, fmt.Errorf("line %d: param after ret", n)
			}
			if len(prog.insts) > 0 {
				return nil, fmt.Errorf("line %d: params must precede instructions", n)
			}
			if len(fields) != 3 {
				return nil, fmt.Errorf("line %d: expected \"param <name> <shape>\"", n)
			}
			name := fields[1]
			if _, dup := defined[name]; dup {
				return nil, fmt.Errorf("line %d: %q already defined", n, name)
			}
			shape, err := literal.ParseShape(fields[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n, err)
			}
			defined[name] = shape
			prog.params = append(prog.params, graphio.Node{Name: name, Shape: shape})

		case fields[0] == "ret":
			if sawRet {
				return nil, fmt.Errorf("line %d: duplicate ret", n)
			}
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: ret needs at least one value", n)
			}
			for _, name := range fields[1:] {
				shape, ok := defined[name]
				if !ok {
					return nil, fmt.Errorf("line %d: ret references undefined value %q", n, name)
				}
				prog.rets = append(prog.rets, name)
				prog.outputs = append(prog.outputs, shape)
			}
			sawRet = true

		default:
			if sawRet {
				return nil, fmt.Errorf("line %d: instruction after ret", n)
			}
			inst, err := parseInstruction(fields, defined, n)
			if err != nil {
				return nil, err
			}
			defined[inst.dest] = inst.shape
			prog.insts = append(prog.insts, inst)
		}
	}

	if prog.name == "" {
		return nil, fmt.Errorf("missing \"graph <name>\" header")
	}
	if !sawRet {
		return nil, fmt.Errorf("graph %q: missing ret", prog.name)
	}
	return prog, nil
}

func parseInstruction(fields []string, defined map[string]literal.Shape, n int) (instruction, error) {
	// Form: <dest> = <op> <args...>
	if len(fields) < 3 || fields[1] != "=" {
		return instruction{}, fmt.Errorf("line %d: expected \"<dest> = <op> <args>\"", n)
	}
	dest := fields[0]
	if _, dup := defined[dest]; dup {
		return instruction{}, fmt.Errorf("line %d: %q already defined", n, dest)
	}
	op, ok := opNames[fields[2]]
	if !ok {
		return instruction{}, fmt.Errorf("line %d: unsupported operation %q", n, fields[2])
	}
	args := fields[3:]

	if op == opConst {
		if len(args) != 1 {
			return instruction{}, fmt.Errorf("line %d: const takes a single literal", n)
		}
		value, err := literal.Parse(args[0])
		if err != nil {
			return instruction{}, fmt.Errorf("line %d: %w", n, err)
		}
		return instruction{dest: dest, op: op, constant: value, shape: value.Shape(), line: n}, nil
	}

	if len(args) != op.arity() {
		return instruction{}, fmt.Errorf("line %d: %s takes %d operands, got %d", n, fields[2], op.arity(), len(args))
	}
	shapes := make([]literal.Shape, len(args))
	for i, arg := range args {
		shape, ok := defined[arg]
		if !ok {
			return instruction{}, fmt.Errorf("line %d: undefined value %q", n, arg)
		}
		shapes[i] = shape
	}
	if shapes[0].DType == dtypes.Bool {
		return instruction{}, fmt.Errorf("line %d: %s is not defined for pred operands", n, fields[2])
	}
	for _, shape := range shapes[1:] {
		if !shape.Equal(shapes[0]) {
			return instruction{}, fmt.Errorf("line %d: operand shape mismatch: %s vs %s", n, shapes[0], shape)
		}
	}
	return instruction{dest: dest, op: op, args: args, shape: shapes[0], line: n}, nil
}
