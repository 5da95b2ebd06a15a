package runner

import (
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/projectdiscovery/gologger"
	fileutil "github.com/projectdiscovery/utils/file"
)

var DefaultConfigFilePath = filepath.Join(getUserHomeDir(), ".config/kbioreg/config.yaml")

// QueryConfig is a reusable query preset: the two forms of one expression
// plus output knobs, kept in yaml so recurring queries don't have to be
// retyped on the command line.
type QueryConfig struct {
	Query    string `yaml:"query"`
	Regex    string `yaml:"regex"`
	Graph    string `yaml:"graph"`
	Workers  int    `yaml:"workers"`
	NoVerify bool   `yaml:"no-verify"`
}

// ReadQueryConfig reads a query preset from file
func ReadQueryConfig(filePath string) (*QueryConfig, error) {
	bin, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var cfg QueryConfig
	if err = yaml.Unmarshal(bin, &cfg); err != nil {
		gologger.Error().Msgf("kbioreg yaml configuration syntax error.\n %v\n.", yaml.FormatError(err, true, true))
		return nil, err
	}
	return &cfg, nil
}

// apply copies preset values into opts, flags taking precedence over the
// preset wherever both are set.
func (c *QueryConfig) apply(opts *Options) {
	if opts.Query == "" {
		opts.Query = c.Query
	}
	if opts.Regex == "" {
		opts.Regex = c.Regex
	}
	if opts.Graph == "" {
		opts.Graph = c.Graph
	}
	if opts.Workers == 0 {
		opts.Workers = c.Workers
	}
	if c.NoVerify {
		opts.NoVerify = true
	}
}

func getUserHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	return homeDir
}

func init() {
	// make sure the config dir exists so goflags MergeConfigFile and the
	// update check have a place to write state
	if err := validateDir(filepath.Join(getUserHomeDir(), ".config/kbioreg")); err != nil {
		gologger.Error().Msgf("kbioreg config dir not found and failed to create got: %v", err)
	}
}

// validateDir checks if dir exists if not creates it
func validateDir(dirPath string) error {
	if fileutil.FolderExists(dirPath) {
		return nil
	}
	return fileutil.CreateFolder(dirPath)
}
