package kbioreg

// The kNFA (after Korotkov) re-expresses a Thompson NFA as a graph whose
// states emit whole length-k windows. An emission state is keyed by the
// Thompson state reached after its final symbol plus the window content,
// so every route that assembles the same window through the same state
// shares one node. Window advancement is sliding: an edge consumes one
// fresh symbol and the successor window overlaps its predecessor by k-1
// symbols, mirroring how the index extracts k-mers at build time.
//
// Memoizing emission states on (state, window) is what keeps the graph
// finite under Kleene closures: a loop that re-assembles a window it has
// produced before lands on the existing node instead of growing the graph.

type kNode struct {
	window   string
	digest   uint64
	state    int32
	out      []int32
	terminal bool
}

type kNFA struct {
	k      int
	alpha  *Alphabet
	nodes  []kNode
	starts []int32
}

type kNodeKey struct {
	state  int32
	window string
}

// buildKNFA derives the kNFA from a Thompson NFA. The Thompson arena is
// not referenced by the result; callers drop it once this returns.
func buildKNFA(t *thompsonNFA, alpha *Alphabet, k int) *kNFA {
	g := &kNFA{k: k, alpha: alpha}
	byKey := make(map[kNodeKey]int32)
	var pending []int32

	getOrCreate := func(state int32, window string) int32 {
		key := kNodeKey{state, window}
		if id, ok := byKey[key]; ok {
			return id
		}
		digest, _ := alpha.KmerDigest(window)
		id := int32(len(g.nodes))
		g.nodes = append(g.nodes, kNode{window: window, digest: digest, state: state})
		byKey[key] = id
		pending = append(pending, id)
		return id
	}

	// Window assembly from the Thompson start: grow a partial window one
	// symbol at a time, forking at splits, until it reaches length k and
	// becomes a start emission. Revisiting a (state, window) pair prunes
	// the branch. A match reached here means the regex accepts a word
	// shorter than k, which contributes nothing.
	type frame struct {
		state  int32
		window string
	}
	seen := make(map[frame]bool)
	stack := []frame{{t.start, ""}}
	startSeen := make(map[int32]bool)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[f] {
			continue
		}
		seen[f] = true
		s := t.states[f.state]
		switch s.op {
		case opSplit:
			stack = append(stack, frame{s.out1, f.window}, frame{s.out, f.window})
		case opMatch:
		case opSymbol, opWildcard:
			syms := expandSymbols(s, alpha)
			for i := len(syms) - 1; i >= 0; i-- {
				w2 := f.window + string(syms[i])
				if len(w2) == k {
					id := getOrCreate(s.out, w2)
					if !startSeen[id] {
						startSeen[id] = true
						g.starts = append(g.starts, id)
					}
				} else {
					stack = append(stack, frame{s.out, w2})
				}
			}
		}
	}

	// Emission expansion: from each node's underlying state, follow
	// ε-edges to the next symbol transitions. Each one slides the window
	// by a single symbol and links to the (shared) successor emission. A
	// reachable match makes the node terminal; any partial residue shorter
	// than k is discarded, which keeps every emitted k-mer a substring of
	// the accepted word.
	for len(pending) > 0 {
		id := pending[0]
		pending = pending[1:]
		window := g.nodes[id].window
		var (
			out      []int32
			terminal bool
		)
		linked := make(map[int32]bool)
		visited := make(map[int32]bool)
		walk := []int32{g.nodes[id].state}
		for len(walk) > 0 {
			st := walk[len(walk)-1]
			walk = walk[:len(walk)-1]
			if st == nfaNone || visited[st] {
				continue
			}
			visited[st] = true
			s := t.states[st]
			switch s.op {
			case opSplit:
				walk = append(walk, s.out1, s.out)
			case opMatch:
				terminal = true
			case opSymbol, opWildcard:
				for _, c := range []byte(expandSymbols(s, alpha)) {
					succ := getOrCreate(s.out, window[1:]+string(c))
					if !linked[succ] {
						linked[succ] = true
						out = append(out, succ)
					}
				}
			}
		}
		g.nodes[id].out = out
		g.nodes[id].terminal = terminal
	}
	return g
}

func expandSymbols(s nfaState, alpha *Alphabet) string {
	if s.op == opWildcard {
		return alpha.Canonical()
	}
	return string(s.sym)
}
