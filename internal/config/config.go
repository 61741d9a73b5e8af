package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Config drives one cracking run. Struct tags double as CLI flags; every
// flag can also come from a CRACKER_* environment variable.
type Config struct {
	Shadow string `help:"Credential file, one user:$alg$cost$salt+hash per line." type:"existingfile" env:"CRACKER_SHADOW" required:""`

	Wordlist       string `help:"Word list, one word per line (.gz accepted)." type:"existingfile" env:"CRACKER_WORDLIST" xor:"source"`
	Alphabet       string `help:"Enumerate every word over this alphabet instead of reading a word list." env:"CRACKER_ALPHABET" xor:"source"`
	MaxKeyspaceLen int    `help:"Longest word generated from --alphabet." default:"6" env:"CRACKER_MAX_KEYSPACE_LEN"`
	MinLen         int    `help:"Shortest candidate kept." default:"6" env:"CRACKER_MIN_LEN"`
	MaxLen         int    `help:"Longest candidate kept." default:"10" env:"CRACKER_MAX_LEN"`

	Workers           int `help:"Worker goroutines per record (0 = all CPUs)." default:"0" env:"CRACKER_WORKERS"`
	RecordConcurrency int `help:"Records of one cost group cracked at the same time." default:"1" env:"CRACKER_RECORD_CONCURRENCY"`

	Ledger  string `help:"Append-only progress ledger." default:"cracking_progress.csv" env:"CRACKER_LEDGER"`
	Results string `help:"Results CSV written at the end of the run (empty to skip)." default:"cracking_results.csv" env:"CRACKER_RESULTS"`

	LogLevel  string `help:"debug, info, warn or error." default:"info" env:"CRACKER_LOG_LEVEL"`
	LogFormat string `help:"console or json." default:"console" enum:"console,json" env:"CRACKER_LOG_FORMAT"`
	LogFile   string `help:"Also append JSON logs to this file." env:"CRACKER_LOG_FILE"`

	StatusAddr string `help:"Serve run status over HTTP on this address." env:"CRACKER_STATUS_ADDR"`

	MongoURI        string `help:"Mirror results into MongoDB." env:"CRACKER_MONGO_URI"`
	MongoDatabase   string `help:"MongoDB database." default:"crackhash" env:"CRACKER_MONGO_DATABASE"`
	MongoCollection string `help:"MongoDB collection." default:"results" env:"CRACKER_MONGO_COLLECTION"`
	AMQPURL         string `name:"amqp-url" help:"Publish results to an AMQP broker." env:"CRACKER_AMQP_URL"`
	AMQPQueue       string `name:"amqp-queue" help:"AMQP queue name." default:"crack.results" env:"CRACKER_AMQP_QUEUE"`

	NoProgress bool `help:"Disable the progress bar." env:"CRACKER_NO_PROGRESS"`
}

func Default() Config {
	return Config{
		MaxKeyspaceLen:    6,
		MinLen:            6,
		MaxLen:            10,
		RecordConcurrency: 1,
		Ledger:            "cracking_progress.csv",
		Results:           "cracking_results.csv",
		LogLevel:          "info",
		LogFormat:         "console",
		MongoDatabase:     "crackhash",
		MongoCollection:   "results",
		AMQPQueue:         "crack.results",
	}
}

// EffectiveWorkers resolves Workers=0 to the CPU count.
func (c Config) EffectiveWorkers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Shadow) == "" {
		errs = append(errs, errors.New("shadow file is required"))
	}
	if c.Wordlist == "" && c.Alphabet == "" {
		errs = append(errs, errors.New("one of wordlist or alphabet is required"))
	}
	if c.Wordlist != "" && c.Alphabet != "" {
		errs = append(errs, errors.New("wordlist and alphabet are mutually exclusive"))
	}
	if c.MinLen < 1 {
		errs = append(errs, fmt.Errorf("min-len must be positive, got %d", c.MinLen))
	}
	if c.MaxLen < c.MinLen {
		errs = append(errs, fmt.Errorf("max-len %d is below min-len %d", c.MaxLen, c.MinLen))
	}
	if c.Alphabet != "" && c.MaxKeyspaceLen < c.MinLen {
		errs = append(errs, fmt.Errorf("max-keyspace-len %d is below min-len %d", c.MaxKeyspaceLen, c.MinLen))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.RecordConcurrency < 1 {
		errs = append(errs, fmt.Errorf("record-concurrency must be at least 1, got %d", c.RecordConcurrency))
	}
	if strings.TrimSpace(c.Ledger) == "" {
		errs = append(errs, errors.New("ledger path is required"))
	}
	if c.AMQPURL != "" && c.AMQPQueue == "" {
		errs = append(errs, errors.New("amqp-queue is required with amqp-url"))
	}
	return errors.Join(errs...)
}
