package kbioreg

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// writeGraph renders the kNFA in Graphviz dot form for debugging. Emission
// states are labeled with their windows, terminal states are drawn as
// double circles, and start emissions get an arrow from a point node.
func writeGraph(g *kNFA, w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("digraph knfa {\n")
	sb.WriteString("\trankdir=LR;\n")
	sb.WriteString("\tnode [shape=circle, fontname=\"monospace\"];\n")
	for id, node := range g.nodes {
		shape := ""
		if node.terminal {
			shape = ", shape=doublecircle"
		}
		fmt.Fprintf(&sb, "\tn%d [label=%q%s];\n", id, node.window, shape)
	}
	for i, start := range g.starts {
		fmt.Fprintf(&sb, "\ts%d [shape=point];\n", i)
		fmt.Fprintf(&sb, "\ts%d -> n%d;\n", i, start)
	}
	for id, node := range g.nodes {
		for _, succ := range node.out {
			fmt.Fprintf(&sb, "\tn%d -> n%d;\n", id, succ)
		}
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func dumpGraph(g *kNFA, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeGraph(g, f)
}
