package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/projectdiscovery/gologger"
	"github.com/remyschwab/kbioreg"
	"github.com/remyschwab/kbioreg/internal/runner"
)

func main() {
	cliOpts := runner.ParseFlags()

	if cliOpts.Build {
		buildIndex(cliOpts)
		return
	}

	ix, err := kbioreg.LoadIndex(cliOpts.Index)
	if err != nil {
		gologger.Fatal().Msgf("failed to load index %v got: %v", cliOpts.Index, err)
	}

	graphPath := cliOpts.Graph
	if graphPath != "" {
		graphPath = kbioreg.Replace(graphPath, map[string]interface{}{
			"query": cliOpts.Query,
			"k":     ix.K(),
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := kbioreg.DriveQuery(ctx, ix, &kbioreg.QueryOptions{
		Query:      cliOpts.Query,
		Pattern:    cliOpts.Regex,
		GraphPath:  graphPath,
		Workers:    cliOpts.Workers,
		SkipVerify: cliOpts.NoVerify,
	})
	if err != nil {
		gologger.Fatal().Msgf("kbioreg: got %v", err)
	}

	// the bitvector itself is the result; everything else goes to the
	// diagnostic stream
	os.Stdout.WriteString(result.Hits.String() + "\n")

	if cliOpts.Output != "" {
		if err := os.WriteFile(cliOpts.Output, []byte(result.Hits.String()+"\n"), 0644); err != nil {
			gologger.Fatal().Msgf("failed to write output to %v got: %v", cliOpts.Output, err)
		}
	}
}

func buildIndex(cliOpts *runner.Options) {
	kind, err := kbioreg.ParseAlphabetKind(cliOpts.Alphabet)
	if err != nil {
		gologger.Fatal().Msgf("kbioreg: got %v", err)
	}
	ix, err := kbioreg.BuildIndex(&kbioreg.BuildOptions{
		BinPaths:  cliOpts.Bins,
		K:         cliOpts.K,
		Kind:      kind,
		BloomRows: uint64(cliOpts.BloomRows),
		HashCount: uint32(cliOpts.Hashes),
	})
	if err != nil {
		gologger.Fatal().Msgf("failed to build index got: %v", err)
	}
	out := cliOpts.Index
	if out == "" {
		out = "index.yaml"
	}
	if err := ix.Save(out); err != nil {
		gologger.Fatal().Msgf("failed to save index to %v got: %v", out, err)
	}
	gologger.Info().Msgf("Saved index manifest to %v", out)
}
