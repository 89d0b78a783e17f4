package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabularyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), VocabFile)
	vocab := BuildVocabulary([]string{"zeta alpha", "mu alpha beta"})

	require.NoError(t, SaveVocabulary(path, vocab))
	loaded, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, vocab, loaded)

	before, after := NewTokenIndex(vocab), NewTokenIndex(loaded)
	assert.Equal(t, before.Size(), after.Size())
	words := append([]string{UnknownToken, "unseen"}, vocab...)
	assert.Equal(t, before.LookupMany(words), after.LookupMany(words))
}

func TestEmptyVocabularyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), VocabFile)
	require.NoError(t, SaveVocabulary(path, nil))

	loaded, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoadVocabularyErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadVocabulary(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVocabularyLoad))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = LoadVocabulary(bad)
	var loadErr *VocabularyLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, bad, loadErr.Path)

	noField := filepath.Join(dir, "nofield.json")
	require.NoError(t, os.WriteFile(noField, []byte(`{"words": []}`), 0o644))
	_, err = LoadVocabulary(noField)
	assert.True(t, errors.Is(err, ErrVocabularyLoad))
}

func TestClassMappingRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), IndexToClassFile)
	classes := BuildClassMapping([]string{"b|a", "c"}, "|")

	require.NoError(t, SaveClassMapping(path, classes))
	loaded, err := LoadClassMapping(path)
	require.NoError(t, err)
	assert.Equal(t, classes.IndexToClass(), loaded.IndexToClass())
	assert.Equal(t, []string{"b", "a", "c"}, orderedClasses(loaded))
}

func TestLoadClassMappingBadIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), IndexToClassFile)
	require.NoError(t, os.WriteFile(path, []byte(`{"mapping": {"x": "sports"}}`), 0o644))

	_, err := LoadClassMapping(path)
	assert.True(t, errors.Is(err, ErrVocabularyLoad))
}

func TestLockDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	lock, err := lockDir(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)

	_, err = lockDir(dir)
	assert.True(t, errors.Is(err, ErrOutputLocked))

	require.NoError(t, lock.Unlock())
	again, err := lockDir(dir)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}

func TestCommitArtifacts(t *testing.T) {
	out := t.TempDir()
	staging, err := newStagingDir(out)
	require.NoError(t, err)
	for _, name := range artifactFiles {
		require.NoError(t, os.WriteFile(filepath.Join(out, name), []byte("old"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(staging, name), []byte("new "+name), 0o644))
	}

	require.NoError(t, commitArtifacts(staging, out))
	for _, name := range artifactFiles {
		data, err := os.ReadFile(filepath.Join(out, name))
		require.NoError(t, err)
		assert.Equal(t, "new "+name, string(data))
	}
}

func TestCommitArtifactsIncompleteStaging(t *testing.T) {
	out := t.TempDir()
	staging, err := newStagingDir(out)
	require.NoError(t, err)
	for _, name := range artifactFiles {
		require.NoError(t, os.WriteFile(filepath.Join(out, name), []byte("old"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(staging, VocabFile), []byte("new"), 0o644))

	require.Error(t, commitArtifacts(staging, out))
	for _, name := range artifactFiles {
		data, err := os.ReadFile(filepath.Join(out, name))
		require.NoError(t, err)
		assert.Equal(t, "old", string(data))
	}
}
