package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	mphf "github.com/stefanfred/MPHF-Experiments"
	"github.com/stefanfred/MPHF-Experiments/internal/hasher"
)

// Config stores all benchmark settings. Values come from flags, then
// MPHBENCH_* environment variables, then an optional config file.
type Config struct {
	NumKeys         int      `mapstructure:"numKeys"`
	NumQueries      int      `mapstructure:"numQueries"`
	NumThreads      int      `mapstructure:"numThreads"`
	NumQueryThreads int      `mapstructure:"numQueryThreads"`
	Seed            uint64   `mapstructure:"seed"`
	Algorithms      []string `mapstructure:"algorithms"`
	FillFactors     []int    `mapstructure:"fillFactors"`
	Hasher          string   `mapstructure:"hasher"`
	BinaryKeys      bool     `mapstructure:"binaryKeys"`
	Dedup           bool     `mapstructure:"dedup"`
	SkipTests       bool     `mapstructure:"skipTests"`
	Cooldown        bool     `mapstructure:"cooldown"`
	JSONOut         string   `mapstructure:"jsonOut"`
	SaveDir         string   `mapstructure:"saveDir"`
	Verbose         bool     `mapstructure:"verbose"`

	algorithms []mphf.Algorithm
	hasher     mphf.HasherKind
}

// loadConfig parses args into a Config.
func loadConfig(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("mphbench", pflag.ContinueOnError)
	flags.IntP("numKeys", "n", 5_000_000, "number of keys")
	flags.IntP("numQueries", "q", 100_000_000, "queries per query thread (0 skips the query phase)")
	flags.IntP("numThreads", "t", 1, "construction workers")
	flags.Int("numQueryThreads", 1, "query threads")
	flags.Uint64("seed", 0, "key generation and hash seed (0 = current time)")
	flags.StringSlice("algorithms", []string{"fmph", "fmph-go", "ptrhash-fast", "ptrhash-compact"}, "algorithms to run")
	flags.IntSlice("fillFactors", []int{100}, "FMPH fill factors in percent; one run per value")
	flags.String("hasher", "xxh3", "key hash: xxh3, xxh64, or murmur3")
	flags.Bool("binaryKeys", false, "use 16-byte binary keys instead of random strings")
	flags.Bool("dedup", false, "remove duplicate keys before construction")
	flags.BoolP("skipTests", "T", false, "skip checking the function for validity")
	flags.Bool("cooldown", true, "sleep one second before construction and queries")
	flags.String("jsonOut", "", "write results as JSON to this file")
	flags.String("saveDir", "", "persist every built function into this directory")
	flags.BoolP("verbose", "v", false, "log construction progress")
	configFile := flags.String("config", "", "config file (yaml, toml, or json)")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix("MPHBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.NumKeys < 0 || c.NumQueries < 0 {
		return errors.New("numKeys and numQueries must not be negative")
	}
	if c.NumThreads <= 0 || c.NumQueryThreads <= 0 {
		return errors.New("numThreads and numQueryThreads must be positive")
	}
	if len(c.FillFactors) == 0 {
		return errors.New("at least one fill factor is required")
	}
	for _, pct := range c.FillFactors {
		if pct < 1 || pct > 100 {
			return fmt.Errorf("fill factor %d%% out of range [1, 100]", pct)
		}
	}

	c.algorithms = c.algorithms[:0]
	for _, name := range c.Algorithms {
		algo, err := mphf.ParseAlgorithm(strings.TrimSpace(name))
		if err != nil {
			return err
		}
		c.algorithms = append(c.algorithms, algo)
	}

	var err error
	c.hasher, err = hasher.ParseKind(c.Hasher)
	return err
}
