package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"bcryptcrack/internal/config"
	"bcryptcrack/internal/corpus"
	"bcryptcrack/internal/ledger"
	"bcryptcrack/internal/logging"
	"bcryptcrack/internal/manager"
	"bcryptcrack/internal/models"
	"bcryptcrack/internal/oracle"
	"bcryptcrack/internal/report"
	"bcryptcrack/internal/shadow"
	"bcryptcrack/internal/status"
	"bcryptcrack/internal/worker"
)

type CrackCmd struct {
	config.Config `embed:""`
}

func (c *CrackCmd) Run(ctx context.Context) error {
	cfg := c.Config
	logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := oracle.SelfTest(oracle.Bcrypt{}); err != nil {
		return err
	}

	recs, err := loadRecords(cfg.Shadow, logger)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return fmt.Errorf("no usable records in %s", cfg.Shadow)
	}

	words, err := corpus.NewLoader(wordSource(cfg)).Load(ctx, cfg.MinLen, cfg.MaxLen)
	if err != nil {
		return err
	}
	logger.Info().Int("words", words.Len()).Int("min_len", cfg.MinLen).Int("max_len", cfg.MaxLen).Msg("corpus loaded")

	runID := uuid.NewString()
	led, err := openLedger(ctx, cfg, runID, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := led.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing ledger")
		}
	}()

	pool := worker.NewPool(cfg.EffectiveWorkers(), oracle.Bcrypt{}, logger)
	var bar *progressbar.ProgressBar
	if !cfg.NoProgress {
		bar = newProgressBar(int64(words.Len()) * int64(len(recs)))
		pool.Progress = func(n int) { _ = bar.Add(n) }
	}

	mgr := manager.NewManager(words, pool, led, logger, manager.Options{
		RunID:             runID,
		RecordConcurrency: cfg.RecordConcurrency,
	})

	if cfg.StatusAddr != "" {
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := status.Serve(srvCtx, cfg.StatusAddr, status.NewHandler(mgr), logger); err != nil {
				logger.Error().Err(err).Msg("status endpoint stopped")
			}
		}()
	}

	report.WriteEstimate(os.Stdout, shadow.GroupByCost(recs), words.Len(), pool.Workers())

	start := time.Now()
	results, runErr := mgr.Run(ctx, recs)
	total := time.Since(start)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	report.WriteSummary(os.Stdout, results, total)
	if cfg.Results != "" {
		if err := report.WriteCSVFile(cfg.Results, results, total); err != nil {
			logger.Error().Err(err).Str("path", cfg.Results).Msg("writing results failed")
		} else {
			logger.Info().Str("path", cfg.Results).Msg("results saved")
		}
	}

	if errors.Is(runErr, context.Canceled) {
		logger.Warn().Int("finished", len(results)).Int("records", len(recs)).Msg("interrupted")
	}
	return runErr
}

type VerifyCmd struct{}

func (VerifyCmd) Run() error {
	if err := oracle.SelfTest(oracle.Bcrypt{}); err != nil {
		color.Red("bcrypt self-test failed: %v", err)
		return err
	}
	color.Green("bcrypt self-test passed")
	return nil
}

type EstimateCmd struct {
	Shadow   string `help:"Credential file." type:"existingfile" required:""`
	Wordlist string `help:"Word list." type:"existingfile" required:""`
	MinLen   int    `help:"Shortest candidate kept." default:"6"`
	MaxLen   int    `help:"Longest candidate kept." default:"10"`
	Workers  int    `help:"Worker goroutines (0 = all CPUs)." default:"0"`
}

func (e *EstimateCmd) Run(ctx context.Context) error {
	recs, err := loadRecords(e.Shadow, zerolog.Nop())
	if err != nil {
		return err
	}
	words, err := corpus.NewLoader(corpus.FileSource{Path: e.Wordlist}).Load(ctx, e.MinLen, e.MaxLen)
	if err != nil {
		return err
	}
	workers := config.Config{Workers: e.Workers}.EffectiveWorkers()
	fmt.Printf("%d users, %d candidate words, %d workers\n", len(recs), words.Len(), workers)
	report.WriteEstimate(os.Stdout, shadow.GroupByCost(recs), words.Len(), workers)
	return nil
}

func loadRecords(path string, logger zerolog.Logger) ([]models.CredentialRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	recs, bad, err := shadow.Parse(f)
	if err != nil {
		return nil, err
	}
	for _, le := range bad {
		logger.Warn().Int("line", le.Line).Err(le.Err).Msg("skipping malformed record")
	}
	logger.Info().Int("records", len(recs)).Int("skipped", len(bad)).Str("path", path).Msg("credentials parsed")
	return recs, nil
}

func wordSource(cfg config.Config) corpus.Source {
	if cfg.Alphabet != "" {
		return corpus.KeyspaceSource{Alphabet: cfg.Alphabet, MinLength: cfg.MinLen, MaxLength: cfg.MaxKeyspaceLen}
	}
	return corpus.FileSource{Path: cfg.Wordlist}
}

func openLedger(ctx context.Context, cfg config.Config, runID string, logger zerolog.Logger) (ledger.Ledger, error) {
	file, err := ledger.OpenFile(cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	var mirrors []ledger.Ledger
	if cfg.MongoURI != "" {
		m, err := ledger.DialMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, runID)
		if err != nil {
			file.Close()
			return nil, err
		}
		mirrors = append(mirrors, m)
	}
	if cfg.AMQPURL != "" {
		a, err := ledger.DialAMQP(cfg.AMQPURL, cfg.AMQPQueue, runID)
		if err != nil {
			for _, m := range mirrors {
				m.Close()
			}
			file.Close()
			return nil, err
		}
		mirrors = append(mirrors, a)
	}
	return ledger.NewMulti(file, logger, mirrors...), nil
}

func newProgressBar(total int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("verifying"),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("hash"),
		progressbar.OptionThrottle(500*time.Millisecond),
		progressbar.OptionSetWidth(30),
	)
}
