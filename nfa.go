package kbioreg

import "fmt"

// Thompson construction over a postfix expression, after Thompson (CACM
// 1968) and Cox's exposition. States live in an arena and reference each
// other by index, so the whole automaton is released by dropping the
// arena. The grammar is the classic postfix one: `.` concatenation, `|`
// alternation, `*` zero-or-more, `+` one-or-more, `?` optional, `_` the
// alphabet wildcard; any other character must be an alphabet symbol.

type nfaOp uint8

const (
	opSymbol nfaOp = iota
	opWildcard
	opSplit
	opMatch
)

// nfaState has one of three shapes: a symbol state with one labeled edge
// (out), a split with two ε-edges (out, out1), or the terminal match
// state. The wildcard is a symbol state that expands over the canonical
// alphabet during kNFA construction.
type nfaState struct {
	op   nfaOp
	sym  byte
	out  int32
	out1 int32
}

const nfaNone int32 = -1

type thompsonNFA struct {
	states []nfaState
	start  int32
}

// nfaDangle is an unpatched outgoing arrow of a fragment: state index plus
// which of its two slots to fill.
type nfaDangle struct {
	state int32
	slot  uint8
}

type nfaFrag struct {
	start int32
	out   []nfaDangle
}

func (t *thompsonNFA) alloc(s nfaState) int32 {
	t.states = append(t.states, s)
	return int32(len(t.states) - 1)
}

func (t *thompsonNFA) patch(out []nfaDangle, target int32) {
	for _, d := range out {
		if d.slot == 0 {
			t.states[d.state].out = target
		} else {
			t.states[d.state].out1 = target
		}
	}
}

// compilePostfix builds the ε-NFA for a postfix expression over the given
// alphabet. Malformed input (operator underflow, leftover fragments,
// symbols outside the alphabet) returns an error wrapping ErrRegexParse.
func compilePostfix(expr string, alpha *Alphabet) (*thompsonNFA, error) {
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrRegexParse)
	}
	t := &thompsonNFA{states: make([]nfaState, 0, 2*len(expr))}
	stack := make([]nfaFrag, 0, len(expr))
	push := func(f nfaFrag) { stack = append(stack, f) }
	pop := func() (nfaFrag, bool) {
		if len(stack) == 0 {
			return nfaFrag{}, false
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return f, true
	}

	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch c {
		case '.':
			e2, ok2 := pop()
			e1, ok1 := pop()
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("%w: concatenation needs two operands at offset %d", ErrRegexParse, i)
			}
			t.patch(e1.out, e2.start)
			push(nfaFrag{e1.start, e2.out})
		case '|':
			e2, ok2 := pop()
			e1, ok1 := pop()
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("%w: alternation needs two operands at offset %d", ErrRegexParse, i)
			}
			s := t.alloc(nfaState{op: opSplit, out: e1.start, out1: e2.start})
			push(nfaFrag{s, append(e1.out, e2.out...)})
		case '*':
			e, ok := pop()
			if !ok {
				return nil, fmt.Errorf("%w: star needs an operand at offset %d", ErrRegexParse, i)
			}
			s := t.alloc(nfaState{op: opSplit, out: e.start, out1: nfaNone})
			t.patch(e.out, s)
			push(nfaFrag{s, []nfaDangle{{s, 1}}})
		case '+':
			e, ok := pop()
			if !ok {
				return nil, fmt.Errorf("%w: plus needs an operand at offset %d", ErrRegexParse, i)
			}
			s := t.alloc(nfaState{op: opSplit, out: e.start, out1: nfaNone})
			t.patch(e.out, s)
			push(nfaFrag{e.start, []nfaDangle{{s, 1}}})
		case '?':
			e, ok := pop()
			if !ok {
				return nil, fmt.Errorf("%w: optional needs an operand at offset %d", ErrRegexParse, i)
			}
			s := t.alloc(nfaState{op: opSplit, out: e.start, out1: nfaNone})
			push(nfaFrag{s, append(e.out, nfaDangle{s, 1})})
		case '_':
			s := t.alloc(nfaState{op: opWildcard, out: nfaNone})
			push(nfaFrag{s, []nfaDangle{{s, 0}}})
		default:
			if !alpha.Contains(c) {
				return nil, fmt.Errorf("%w: %q is neither an operator nor a %s symbol (offset %d)", ErrRegexParse, c, alpha.Kind(), i)
			}
			s := t.alloc(nfaState{op: opSymbol, sym: c, out: nfaNone})
			push(nfaFrag{s, []nfaDangle{{s, 0}}})
		}
	}

	e, ok := pop()
	if !ok {
		return nil, fmt.Errorf("%w: empty expression", ErrRegexParse)
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("%w: %d unconsumed fragments (missing concatenation operators?)", ErrRegexParse, len(stack))
	}
	m := t.alloc(nfaState{op: opMatch, out: nfaNone, out1: nfaNone})
	t.patch(e.out, m)
	t.start = e.start
	return t, nil
}
