package runner

import (
	"os"

	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"
	sliceutil "github.com/projectdiscovery/utils/slice"
	updateutils "github.com/projectdiscovery/utils/update"
)

type Options struct {
	Index       string // index manifest path
	Query       string // postfix expression for the kNFA
	Regex       string // infix expression for verification
	Graph       string // kNFA graph dump path template
	Output      string // confirmed bitvector output file
	QueryConfig string // query preset yaml
	NoVerify    bool
	Workers     int

	// index building
	Build     bool
	Bins      goflags.StringSlice
	K         int
	Alphabet  string
	BloomRows int
	Hashes    int

	Config             string
	DisableUpdateCheck bool
	Verbose            bool
	Silent             bool
}

func ParseFlags() *Options {
	opts := &Options{}
	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription(`Regular-expression search over corpora partitioned and indexed with an Interleaved Bloom Filter.`)

	flagSet.CreateGroup("input", "Input",
		flagSet.StringVarP(&opts.Index, "index", "i", "", "index manifest to query (yaml)"),
		flagSet.StringVarP(&opts.Query, "query", "q", "", "query expression in postfix form (operators . | * + ? and _ wildcard)"),
		flagSet.StringVarP(&opts.Regex, "regex", "r", "", "same expression in infix form, used to verify candidate bins"),
	)

	flagSet.CreateGroup("output", "Output",
		flagSet.StringVarP(&opts.Output, "output", "o", "", "output file to write the confirmed bin bitvector"),
		flagSet.StringVarP(&opts.Graph, "graph", "g", "", "write a Graphviz dump of the kNFA ({{query}} and {{k}} are expanded)"),
		flagSet.BoolVarP(&opts.NoVerify, "no-verify", "nv", false, "stop after the IBF stage and report candidate bins only"),
		flagSet.BoolVarP(&opts.Verbose, "verbose", "v", false, "display verbose output"),
		flagSet.BoolVar(&opts.Silent, "silent", false, "display results only"),
		flagSet.CallbackVar(printVersion, "version", "display kbioreg version"),
	)

	flagSet.CreateGroup("build", "Index building",
		flagSet.BoolVarP(&opts.Build, "build", "b", false, "build an index instead of querying"),
		flagSet.StringSliceVarP(&opts.Bins, "bins", "bp", nil, "bin files to index, one partition each (comma-separated, file)", goflags.FileCommaSeparatedStringSliceOptions),
		flagSet.IntVarP(&opts.K, "kmer", "k", 3, "k-mer length recorded in the index"),
		flagSet.StringVarP(&opts.Alphabet, "alphabet", "a", "dna", "molecule alphabet (dna, aa)"),
		flagSet.IntVar(&opts.BloomRows, "bloom-rows", 0, "bloom filter rows per bin (default 65536)"),
		flagSet.IntVar(&opts.Hashes, "hashes", 0, "bloom hash functions (default 2)"),
	)

	flagSet.CreateGroup("config", "Config",
		flagSet.StringVar(&opts.Config, "config", "", `kbioreg cli config file (default '$HOME/.config/kbioreg/config.yaml')`),
		flagSet.StringVarP(&opts.QueryConfig, "query-config", "qc", "", "query preset file (yaml) with query, regex, graph and worker settings"),
		flagSet.IntVarP(&opts.Workers, "workers", "w", 0, "worker count for path intersection and bin verification (default GOMAXPROCS)"),
	)

	flagSet.CreateGroup("update", "Update",
		flagSet.CallbackVarP(GetUpdateCallback(), "update", "up", "update kbioreg to latest version"),
		flagSet.BoolVarP(&opts.DisableUpdateCheck, "disable-update-check", "duc", false, "disable automatic kbioreg update check"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("Could not read flags: %s\n", err)
	}

	if opts.Config != "" {
		if err := flagSet.MergeConfigFile(opts.Config); err != nil {
			gologger.Error().Msgf("failed to read config file got %v", err)
		}
	}

	if opts.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	} else if opts.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
	showBanner()

	if !opts.DisableUpdateCheck {
		latestVersion, err := updateutils.GetVersionCheckCallback("kbioreg")()
		if err != nil {
			if opts.Verbose {
				gologger.Error().Msgf("kbioreg version check failed: %v", err.Error())
			}
		} else {
			gologger.Info().Msgf("Current kbioreg version %v %v", version, updateutils.GetVersionDescription(version, latestVersion))
		}
	}

	if opts.QueryConfig != "" {
		preset, err := ReadQueryConfig(opts.QueryConfig)
		if err != nil {
			gologger.Fatal().Msgf("failed to read %v file got: %v", opts.QueryConfig, err)
		}
		preset.apply(opts)
	}

	if opts.Build {
		if len(opts.Bins) == 0 {
			gologger.Fatal().Msgf("kbioreg: -build needs at least one bin file (-bins)")
		}
		// a bin file listed twice would double as two partitions
		if deduped := sliceutil.Dedupe([]string(opts.Bins)); len(deduped) != len(opts.Bins) {
			gologger.Warning().Msgf("%v duplicate bin files given. purging them..", len(opts.Bins)-len(deduped))
			opts.Bins = deduped
		}
	} else {
		if opts.Index == "" {
			gologger.Fatal().Msgf("kbioreg: no index given")
		}
		if opts.Query == "" {
			gologger.Fatal().Msgf("kbioreg: no query expression given")
		}
		if opts.Regex == "" && !opts.NoVerify {
			gologger.Fatal().Msgf("kbioreg: no verification regex given (use -no-verify to skip verification)")
		}
	}

	return opts
}

func printVersion() {
	gologger.Info().Msgf("Current version: %s", version)
	os.Exit(0)
}
