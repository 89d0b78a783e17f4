package main

import (
	"bytes"
	"flag"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of a training or serving run.
type Config struct {
	Epochs              int     `yaml:"n_epochs" json:"n_epochs"`
	LearningRate        float64 `yaml:"learning_rate" json:"learning_rate"`
	EarlyStopPatience   int     `yaml:"early_stop_patience" json:"early_stop_patience"`
	MaxSeqLen           int     `yaml:"max_seq_len" json:"max_seq_len"`
	PredictionThreshold float64 `yaml:"prediction_threshold" json:"prediction_threshold"`
	LabelDelimiter      string  `yaml:"label_delimiter" json:"label_delimiter"`
	EmbeddingSize       int     `yaml:"embedding_size" json:"embedding_size"`
	HiddenSize          int     `yaml:"hidden_size" json:"hidden_size"`
	Seed                int64   `yaml:"seed" json:"seed"`

	TrainPath string `yaml:"train_path" json:"train_path"`
	TestPath  string `yaml:"test_path" json:"test_path"`
	OutDir    string `yaml:"out_dir" json:"out_dir"`
	Addr      string `yaml:"addr" json:"addr"`
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() Config {
	return Config{
		Epochs:              100,
		LearningRate:        0.001,
		EarlyStopPatience:   20,
		MaxSeqLen:           128,
		PredictionThreshold: 0.5,
		LabelDelimiter:      DefaultLabelDelimiter,
		EmbeddingSize:       15,
		HiddenSize:          20,
		Seed:                1337,
		TrainPath:           "data/train.csv",
		TestPath:            "data/test.csv",
		OutDir:              "model",
		Addr:                "127.0.0.1:3030",
	}
}

// LoadConfigFile overlays the YAML file at path on top of cfg. Unknown keys
// are rejected.
func LoadConfigFile(path string, cfg Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %q", path)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %q", path)
	}
	return cfg, nil
}

// bindFlags registers one flag per config field on fs, defaulting to the
// current values in cfg.
func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Epochs, "epochs", c.Epochs, "Number of epochs")
	fs.Float64Var(&c.LearningRate, "lr", c.LearningRate, "Learning rate")
	fs.IntVar(&c.EarlyStopPatience, "patience", c.EarlyStopPatience, "Non-improving epochs tolerated before stopping")
	fs.IntVar(&c.MaxSeqLen, "max-seq-len", c.MaxSeqLen, "Tokens kept per text")
	fs.Float64Var(&c.PredictionThreshold, "threshold", c.PredictionThreshold, "Probability at or above which a class is predicted")
	fs.StringVar(&c.LabelDelimiter, "delimiter", c.LabelDelimiter, "Separator between classes in a label")
	fs.IntVar(&c.EmbeddingSize, "embedding", c.EmbeddingSize, "Embedding dimension")
	fs.IntVar(&c.HiddenSize, "hidden", c.HiddenSize, "Hidden layer size")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "Random seed")
	fs.StringVar(&c.TrainPath, "train", c.TrainPath, "Training data (.csv or .parquet)")
	fs.StringVar(&c.TestPath, "test", c.TestPath, "Held-out data (.csv or .parquet)")
	fs.StringVar(&c.OutDir, "out", c.OutDir, "Model directory")
	fs.StringVar(&c.Addr, "addr", c.Addr, "Listen address for serve")
}

// ParseConfig resolves defaults, then the -config YAML file if given, then
// any flag set explicitly in args.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	flagged := DefaultConfig()
	flagged.bindFlags(fs)
	configPath := fs.String("config", "", "YAML config file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfigFile(*configPath, cfg); err != nil {
			return Config{}, err
		}
	}

	// Copy over only what was given on the command line.
	explicit := flag.NewFlagSet("explicit", flag.ContinueOnError)
	cfg.bindFlags(explicit)
	var setErr error
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" || explicit.Lookup(f.Name) == nil {
			return
		}
		if err := explicit.Set(f.Name, f.Value.String()); err != nil && setErr == nil {
			setErr = err
		}
	})
	if setErr != nil {
		return Config{}, setErr
	}

	return cfg, cfg.Validate()
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch {
	case c.Epochs <= 0:
		return errors.Wrapf(ErrInvalidConfig, "n_epochs must be positive, got %d", c.Epochs)
	case c.LearningRate <= 0:
		return errors.Wrapf(ErrInvalidConfig, "learning_rate must be positive, got %g", c.LearningRate)
	case c.EarlyStopPatience < 0:
		return errors.Wrapf(ErrInvalidConfig, "early_stop_patience must not be negative, got %d", c.EarlyStopPatience)
	case c.MaxSeqLen <= 0:
		return errors.Wrapf(ErrInvalidConfig, "max_seq_len must be positive, got %d", c.MaxSeqLen)
	case c.PredictionThreshold < 0 || c.PredictionThreshold > 1:
		return errors.Wrapf(ErrInvalidConfig, "prediction_threshold must be in [0,1], got %g", c.PredictionThreshold)
	case c.LabelDelimiter == "":
		return errors.Wrap(ErrInvalidConfig, "label_delimiter must not be empty")
	case c.EmbeddingSize <= 0 || c.HiddenSize <= 0:
		return errors.Wrapf(ErrInvalidConfig, "embedding_size and hidden_size must be positive, got %d and %d", c.EmbeddingSize, c.HiddenSize)
	}
	return nil
}

// TrainConfig extracts the settings the Trainer needs.
func (c Config) TrainConfig() TrainConfig {
	return TrainConfig{
		Epochs:       c.Epochs,
		LearningRate: c.LearningRate,
		Patience:     c.EarlyStopPatience,
		Threshold:    c.PredictionThreshold,
	}
}
