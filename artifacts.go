package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// File names inside a model directory.
const (
	VocabFile        = "vocab.json"
	IndexToClassFile = "index_to_class.json"
	CheckpointFile   = "model.gob"
	MetricsFile      = "metrics.json"
	ManifestFile     = "manifest.json"
	lockFile         = ".lock"
	stagingPrefix    = ".staging-"
)

// artifactFiles is the commit order of a model directory. The manifest goes
// last so it only ever describes a complete set.
var artifactFiles = []string{VocabFile, IndexToClassFile, CheckpointFile, MetricsFile, ManifestFile}

type vocabularyFile struct {
	Vocabulary []string `json:"vocabulary"`
}

type classMappingFile struct {
	Mapping map[string]string `json:"mapping"`
}

// Manifest records how a model directory was produced.
type Manifest struct {
	RunID        string    `json:"run_id"`
	TrainPath    string    `json:"train_path"`
	TestPath     string    `json:"test_path"`
	TrainRows    int       `json:"train_rows"`
	TestRows     int       `json:"test_rows"`
	VocabSize    int       `json:"vocab_size"`
	Classes      []string  `json:"classes"`
	Config       Config    `json:"config"`
	StopReason   string    `json:"stop_reason"`
	EpochsRun    int       `json:"epochs_run"`
	BestEpoch    int       `json:"best_epoch"`
	BestF1       float64   `json:"best_f1"`
	TrainedAt    time.Time `json:"trained_at"`
	BuildVersion string    `json:"build_version"`
}

// SaveVocabulary writes the ordered vocabulary. Serving rebuilds the exact
// training-time TokenIndex from this order.
func SaveVocabulary(path string, vocab []string) error {
	if vocab == nil {
		vocab = []string{}
	}
	return saveJSON(path, vocabularyFile{Vocabulary: vocab})
}

// LoadVocabulary reads a file written by SaveVocabulary.
func LoadVocabulary(path string) ([]string, error) {
	var v vocabularyFile
	if err := loadJSON(path, &v); err != nil {
		return nil, &VocabularyLoadError{Path: path, Err: err}
	}
	if v.Vocabulary == nil {
		return nil, &VocabularyLoadError{Path: path, Err: errors.New(`missing "vocabulary" field`)}
	}
	return v.Vocabulary, nil
}

// SaveClassMapping writes the index to class side of classes.
func SaveClassMapping(path string, classes *ClassMapping) error {
	m := make(map[string]string, classes.Len())
	for idx, class := range classes.IndexToClass() {
		m[strconv.Itoa(idx)] = class
	}
	return saveJSON(path, classMappingFile{Mapping: m})
}

// LoadClassMapping reads a file written by SaveClassMapping.
func LoadClassMapping(path string) (*ClassMapping, error) {
	var f classMappingFile
	if err := loadJSON(path, &f); err != nil {
		return nil, &VocabularyLoadError{Path: path, Err: err}
	}
	indexToClass := make(map[int]string, len(f.Mapping))
	for key, class := range f.Mapping {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 {
			return nil, &VocabularyLoadError{Path: path, Err: errors.Errorf("bad class index %q", key)}
		}
		indexToClass[idx] = class
	}
	return NewClassMappingFromIndex(indexToClass), nil
}

// orderedClasses lists class names by index.
func orderedClasses(classes *ClassMapping) []string {
	out := make([]string, classes.Len())
	for i := range out {
		out[i], _ = classes.Class(i)
	}
	return out
}

// lockDir takes an exclusive lock on dir, failing with ErrOutputLocked if
// another process holds it.
func lockDir(dir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating output directory %q", dir)
	}
	lockPath := filepath.Join(dir, lockFile)
	fileLock := flock.New(lockPath)
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "while trying to lock %q", lockPath)
	}
	if !locked {
		return nil, errors.Wrapf(ErrOutputLocked, "%q", dir)
	}
	return fileLock, nil
}

// newStagingDir creates an empty directory inside outDir for a run's
// artifacts. Staging on the same filesystem keeps the final renames atomic.
func newStagingDir(outDir string) (string, error) {
	dir, err := os.MkdirTemp(outDir, stagingPrefix)
	if err != nil {
		return "", errors.Wrapf(err, "creating staging directory in %q", outDir)
	}
	return dir, nil
}

// commitArtifacts moves a complete set of staged artifacts into outDir,
// replacing the previous run's files. Every file must be present in staging
// before anything is moved.
func commitArtifacts(staging, outDir string) error {
	for _, name := range artifactFiles {
		if _, err := os.Stat(filepath.Join(staging, name)); err != nil {
			return errors.Wrapf(err, "staged artifact %q", name)
		}
	}
	for _, name := range artifactFiles {
		if err := os.Rename(filepath.Join(staging, name), filepath.Join(outDir, name)); err != nil {
			return errors.Wrapf(err, "committing %q", name)
		}
	}
	return nil
}

func saveJSON(path string, data interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %q", path)
	}

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		f.Close()
		return errors.Wrapf(err, "encoding %q", path)
	}
	return errors.Wrapf(f.Close(), "closing %q", path)
}

func loadJSON(path string, data interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %q", path)
	}
	defer f.Close()

	return errors.Wrapf(json.NewDecoder(f).Decode(data), "decoding %q", path)
}
