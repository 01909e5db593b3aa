package asm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-ra/pkg/ctypes"
	"github.com/raymyers/ralph-ra/pkg/target"
)

// ErrSyntax is wrapped by every listing parse error.
var ErrSyntax = errors.New("listing syntax error")

// Parser reads the listing syntax:
//
//	op dst, ... <- src, ...
//	.save ID reg, ...
//	.restore ID
//	.persist sN:type
//
// Operands are vN:type, sN:type, register names, $imm, @sym and
// [base+index*scale+disp]. '#' starts a comment.
type Parser struct {
	catalog *target.Catalog
}

// NewParser creates a parser resolving register names against catalog.
func NewParser(catalog *target.Catalog) *Parser {
	return &Parser{catalog: catalog}
}

// ParseFunction parses a function body, one instruction per line.
func (p *Parser) ParseFunction(name, body string) (*Function, error) {
	fn := &Function{Name: name, Code: NewStream()}
	for n, line := range strings.Split(body, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		insn, err := p.ParseInstruction(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, n+1, err)
		}
		fn.Code.Append(insn)
	}
	return fn, nil
}

// ParseInstruction parses a single instruction.
func (p *Parser) ParseInstruction(line string) (*Instruction, error) {
	op, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch op {
	case ".save":
		idText, regText, _ := strings.Cut(rest, " ")
		id, err := strconv.ParseInt(idText, 10, 64)
		if err != nil {
			return nil, syntaxErr("bad save id %q", idText)
		}
		regs, err := p.parseOperands(regText)
		if err != nil {
			return nil, err
		}
		for _, r := range regs {
			if _, ok := r.(Reg); !ok {
				return nil, syntaxErr(".save lists %s, which is not a physical register", r)
			}
		}
		return &Instruction{Op: op, Kind: KindSave, SaveID: id, Regs: regs}, nil

	case ".restore":
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return nil, syntaxErr("bad restore id %q", rest)
		}
		return &Instruction{Op: op, Kind: KindRestore, SaveID: id}, nil

	case ".persist":
		slot, err := p.ParseOperand(rest)
		if err != nil {
			return nil, err
		}
		if _, ok := slot.(VStack); !ok {
			return nil, syntaxErr(".persist needs a stack slot, got %s", slot)
		}
		return &Instruction{Op: op, Kind: KindPersist, Dsts: []Operand{slot}}, nil
	}

	if op == "" || strings.HasPrefix(op, ".") {
		return nil, syntaxErr("unknown directive %q", op)
	}
	dstText, srcText, _ := strings.Cut(rest, "<-")
	dsts, err := p.parseOperands(dstText)
	if err != nil {
		return nil, err
	}
	srcs, err := p.parseOperands(srcText)
	if err != nil {
		return nil, err
	}
	return NewOp(op, dsts, srcs), nil
}

func (p *Parser) parseOperands(s string) ([]Operand, error) {
	var ops []Operand
	for _, part := range splitOperands(s) {
		op, err := p.ParseOperand(part)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// ParseOperand parses a single operand.
func (p *Parser) ParseOperand(s string) (Operand, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, syntaxErr("empty operand")
	case s[0] == '$':
		v, err := strconv.ParseInt(s[1:], 0, 64)
		if err != nil {
			return nil, syntaxErr("bad immediate %q", s)
		}
		return Imm{Value: v}, nil
	case s[0] == '@':
		if len(s) == 1 {
			return nil, syntaxErr("empty symbol")
		}
		return Sym{Name: s[1:]}, nil
	case s[0] == '[':
		if !strings.HasSuffix(s, "]") {
			return nil, syntaxErr("unterminated memory operand %q", s)
		}
		return p.parseMem(s[1 : len(s)-1])
	}

	if head, typeText, ok := strings.Cut(s, ":"); ok && len(head) > 1 && (head[0] == 'v' || head[0] == 's') {
		id, err := strconv.ParseInt(head[1:], 10, 64)
		if err != nil || id < 0 {
			return nil, syntaxErr("bad virtual id in %q", s)
		}
		typ, err := ctypes.Parse(typeText)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		if head[0] == 'v' {
			return VReg{ID: id, Type: typ}, nil
		}
		return VStack{ID: id, Type: typ}, nil
	}

	if p.catalog != nil {
		if r, ok := p.catalog.Lookup(s); ok {
			return Reg{Reg: r}, nil
		}
	}
	return nil, syntaxErr("unknown operand %q", s)
}

func (p *Parser) parseMem(s string) (Operand, error) {
	var m Mem
	for _, term := range splitTerms(s) {
		neg := strings.HasPrefix(term, "-")
		body := strings.TrimSpace(strings.TrimLeft(term, "+-"))
		if body == "" {
			return nil, syntaxErr("empty term in [%s]", s)
		}
		if d, err := strconv.ParseInt(body, 0, 64); err == nil {
			if neg {
				d = -d
			}
			m.Disp += d
			continue
		}
		if neg {
			return nil, syntaxErr("cannot subtract %q in [%s]", body, s)
		}

		scale := int64(1)
		if opText, scaleText, ok := strings.Cut(body, "*"); ok {
			var err error
			if scale, err = strconv.ParseInt(scaleText, 10, 64); err != nil {
				return nil, syntaxErr("bad scale %q in [%s]", scaleText, s)
			}
			body = opText
		}
		op, err := p.ParseOperand(body)
		if err != nil {
			return nil, err
		}
		switch {
		case m.Base == nil && scale == 1:
			m.Base = op
		case m.Index == nil:
			m.Index, m.Scale = op, scale
		default:
			return nil, syntaxErr("too many registers in [%s]", s)
		}
	}
	return m, nil
}

// splitOperands splits on commas outside of brackets and braces.
func splitOperands(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '[', '{':
			depth++
		case ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		parts = append(parts, last)
	}
	return parts
}

// splitTerms splits an address expression before each '+' or '-' that is
// outside braces, keeping the sign with its term.
func splitTerms(s string) []string {
	var terms []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		case '+', '-':
			if depth == 0 && i > start {
				terms = append(terms, s[start:i])
				start = i
			}
		}
	}
	return append(terms, s[start:])
}

func syntaxErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSyntax, fmt.Sprintf(format, args...))
}
