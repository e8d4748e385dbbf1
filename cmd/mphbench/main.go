// Mphbench measures construction time, space, and query throughput of the
// mphf algorithms.
//
// For every selected algorithm (and, for the FMPH family, every fill factor)
// it builds a function over the same generated keys, checks that the
// function is a bijection, runs a timed query phase, and prints one RESULT
// line:
//
//	RESULT name=fmph-go bitsPerElement=2.21 constructionTimeMilliseconds=812 ...
//
// Usage:
//
//	go run ./cmd/mphbench -n 10000000 -q 10000000 -t 8 --algorithms ptrhash-fast,ptrhash-compact
//
// Every flag can also be set through an MPHBENCH_<FLAG> environment
// variable or a config file passed with --config.
package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/pflag"
	"github.com/sugawarayuuta/sonnet"
	"gonum.org/v1/gonum/stat"

	mphf "github.com/stefanfred/MPHF-Experiments"
)

// result is one benchmark run.
type result struct {
	Name                  string  `json:"name"`
	Algorithm             string  `json:"algorithm"`
	FillPercent           int     `json:"fillPercent,omitempty"`
	Hasher                string  `json:"hasher"`
	N                     int     `json:"n"`
	BitsPerElement        float64 `json:"bitsPerElement"`
	ConstructionMicros    int64   `json:"constructionTimeMicroseconds"`
	QueryMillis           int64   `json:"queryTimeMilliseconds"`
	NumQueries            int     `json:"numQueries"`
	NumQueriesTotal       int     `json:"numQueriesTotal"`
	Threads               int     `json:"threads"`
	QueryThreads          int     `json:"queryThreads"`
	QueryThroughputMean   float64 `json:"queryThroughputMean"`   // queries/s per thread
	QueryThroughputStdDev float64 `json:"queryThroughputStdDev"` // across threads
	PeakHeapBytes         uint64  `json:"peakHeapBytes"`
	PeakRSSBytes          uint64  `json:"peakRSSBytes"`
}

// resultLine formats r as a single RESULT line. Construction
// times under 10ms keep microsecond precision.
func (r *result) resultLine() string {
	construction := fmt.Sprintf("%d", r.ConstructionMicros/1000)
	if r.ConstructionMicros < 10000 {
		construction = fmt.Sprintf("%f", 0.001*float64(r.ConstructionMicros))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "RESULT name=%s bitsPerElement=%g constructionTimeMilliseconds=%s",
		r.Name, r.BitsPerElement, construction)
	fmt.Fprintf(&b, " queryTimeMilliseconds=%d numQueries=%d numQueriesTotal=%d N=%d",
		r.QueryMillis, r.NumQueries, r.NumQueriesTotal, r.N)
	if r.FillPercent > 0 {
		fmt.Fprintf(&b, " loadFactor=%g", float64(r.FillPercent)/100)
	}
	fmt.Fprintf(&b, " threads=%d queryThreads=%d hasher=%s", r.Threads, r.QueryThreads, r.Hasher)
	return b.String()
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	cfg, err := loadConfig(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.Verbose {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}
	if err := run(context.Background(), cfg, log); err != nil {
		log.Fatal().Err(err).Msg("benchmark failed")
	}
}

func run(ctx context.Context, cfg *Config, log zerolog.Logger) error {
	if err := mphf.SetParallelism(cfg.NumThreads); err != nil {
		return err
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixMilli())
	}

	log.Info().Int("keys", cfg.NumKeys).Bool("binary", cfg.BinaryKeys).Uint64("seed", cfg.Seed).Msg("generating keys")
	var keys [][]byte
	if cfg.BinaryKeys {
		keys = generateBinaryKeys(cfg.NumKeys, cfg.Seed)
	} else {
		keys = generateStringKeys(cfg.NumKeys, cfg.Seed)
	}
	if cfg.Dedup {
		before := len(keys)
		keys = dedup(keys)
		log.Info().Int("removed", before-len(keys)).Msg("deduplicated keys")
	}

	var plan [][]byte
	if cfg.NumQueries > 0 {
		log.Info().Int("queries", cfg.NumQueries*cfg.NumQueryThreads).Msg("preparing query plan")
		plan = queryPlan(keys, cfg.NumQueries, cfg.NumQueryThreads, cfg.Seed)
	}

	var results []*result
	for _, algo := range cfg.algorithms {
		fills := []int{0}
		if algo.Family() == mphf.FamilyFMPH {
			fills = cfg.FillFactors
		}
		for _, pct := range fills {
			res, err := runContender(ctx, cfg, log, keys, plan, algo, pct)
			if err != nil {
				// A failed contender does not stop the others.
				log.Error().Err(err).Stringer("algorithm", algo).Int("fill", pct).Msg("contender failed")
				continue
			}
			fmt.Println(res.resultLine())
			results = append(results, res)
		}
	}

	if cfg.JSONOut != "" {
		data, err := sonnet.Marshal(results)
		if err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
		if err := os.WriteFile(cfg.JSONOut, data, 0o644); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		log.Info().Str("path", cfg.JSONOut).Int("results", len(results)).Msg("wrote JSON results")
	}
	return nil
}

func runContender(ctx context.Context, cfg *Config, log zerolog.Logger, keys, plan [][]byte,
	algo mphf.Algorithm, fillPercent int) (*result, error) {
	name := algo.String()
	opts := []mphf.BuildOption{
		mphf.WithSeed(cfg.Seed),
		mphf.WithHasher(cfg.hasher),
		mphf.WithLogger(log),
	}
	if fillPercent > 0 {
		name = fmt.Sprintf("%s-gamma%d", name, fillPercent)
		opts = append(opts, mphf.WithFillFactor(uint16(fillPercent)))
	}
	log = log.With().Str("contender", name).Logger()

	if cfg.Cooldown {
		log.Info().Msg("cooldown")
		time.Sleep(time.Second)
	}
	log.Info().Msg("constructing")
	mem := startMemorySampler()
	begin := time.Now()
	f, err := mphf.Build(ctx, keys, algo, opts...)
	elapsed := time.Since(begin)
	peakHeap, peakRSS := mem.stop()
	if err != nil {
		return nil, err
	}

	if !cfg.SkipTests {
		log.Info().Msg("testing")
		if err := mphf.Verify(f, keys); err != nil {
			return nil, err
		}
	}
	if cfg.SaveDir != "" {
		path := filepath.Join(cfg.SaveDir, name+".mphf")
		if err := mphf.WriteFile(path, f); err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Msg("saved function")
	}

	res := &result{
		Name:               name,
		Algorithm:          algo.String(),
		FillPercent:        fillPercent,
		Hasher:             cfg.hasher.String(),
		N:                  len(keys),
		BitsPerElement:     mphf.BitsPerKey(f),
		ConstructionMicros: elapsed.Microseconds(),
		NumQueries:         cfg.NumQueries,
		NumQueriesTotal:    len(plan),
		Threads:            cfg.NumThreads,
		QueryThreads:       cfg.NumQueryThreads,
		PeakHeapBytes:      peakHeap,
		PeakRSSBytes:       peakRSS,
	}

	if len(plan) > 0 {
		if cfg.Cooldown {
			log.Info().Msg("cooldown")
			time.Sleep(time.Second)
		}
		log.Info().Msg("querying")
		wall, throughputs := runQueries(f, plan, cfg.NumQueries, cfg.NumQueryThreads)
		res.QueryMillis = wall.Milliseconds()
		res.QueryThroughputMean = stat.Mean(throughputs, nil)
		if len(throughputs) > 1 {
			res.QueryThroughputStdDev = stat.StdDev(throughputs, nil)
		}
	}
	return res, nil
}

// runQueries splits plan over threads goroutines and returns the wall time
// of the whole phase and each thread's throughput in queries per second.
func runQueries(f mphf.Function, plan [][]byte, perThread, threads int) (time.Duration, []float64) {
	throughputs := make([]float64, threads)
	var sink atomic.Uint64

	p := pool.New().WithMaxGoroutines(threads)
	begin := time.Now()
	for t := range threads {
		span := plan[t*perThread : (t+1)*perThread]
		p.Go(func() {
			start := time.Now()
			var local uint64
			for _, k := range span {
				local += f.Index(k)
			}
			throughputs[t] = float64(len(span)) / math.Max(time.Since(start).Seconds(), 1e-9)
			sink.Add(local)
		})
	}
	p.Wait()
	wall := time.Since(begin)

	// Keeps the query loop from being optimized away.
	_ = sink.Load()
	return wall, throughputs
}
