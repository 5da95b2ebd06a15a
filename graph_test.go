package kbioreg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteGraph(t *testing.T) {
	g := buildTestKNFA(t, "AC*.A.", 2)
	var buf bytes.Buffer
	require.Nil(t, writeGraph(g, &buf))
	dot := buf.String()

	require.True(t, strings.HasPrefix(dot, "digraph knfa {"))
	require.Contains(t, dot, `label="AC"`)
	require.Contains(t, dot, `label="CC"`)
	// terminal emissions render as double circles
	require.Contains(t, dot, "shape=doublecircle")
	// one start arrow per start emission
	require.Equal(t, len(g.starts), strings.Count(dot, "shape=point"))
	require.True(t, strings.HasSuffix(strings.TrimSpace(dot), "}"))
}
