// Package wordfile stores a category's word set as a JSON array of strings.
package wordfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Save writes words to path, replacing any previous file only once the new
// content is fully on disk.
func Save(path string, words []string) error {
	if words == nil {
		words = []string{}
	}
	data, err := json.MarshalIndent(words, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}

	// one temp file per call, so concurrent saves of the same path never
	// share an inode and readers only ever see a complete file
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := writeAndSync(f, data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func writeAndSync(f *os.File, data []byte) error {
	if err := f.Chmod(0o644); err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// Load reads the words stored at path. A missing file is reported with
// found == false and no error.
func Load(path string) (words []string, found bool, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&words); err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", path, err)
	}
	return words, true, nil
}
