package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dukex/flowforge/pkg/persistence"
)

// documentDir stores one JSON document per record in a single directory.
type documentDir[T any] struct {
	dir string
}

func (d documentDir[T]) path(id int64) string {
	return filepath.Join(d.dir, strconv.FormatInt(id, 10)+".json")
}

// ids lists the record ids present in the directory in ascending order.
func (d documentDir[T]) ids() ([]int64, error) {
	matches, err := fs.Glob(os.DirFS(d.dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.dir, err)
	}

	ids := make([]int64, 0, len(matches))

	for _, name := range matches {
		id, err := strconv.ParseInt(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil {
			// Foreign file, not one of ours.
			continue
		}

		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids, nil
}

// read returns (nil, nil) when the document does not exist.
func (d documentDir[T]) read(id int64) (*T, error) {
	body, err := os.ReadFile(d.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	var record T

	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("%w: %w", persistence.ErrCorruptRecord, err)
	}

	return &record, nil
}

// write replaces the document through a temporary file so readers never see a partial write.
func (d documentDir[T]) write(id int64, record *T) error {
	if err := os.MkdirAll(d.dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", d.dir, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write record: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to close record: %w", err)
	}

	return os.Rename(tmp.Name(), d.path(id))
}

func (d documentDir[T]) remove(id int64) error {
	err := os.Remove(d.path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

func (d documentDir[T]) all() ([]*T, error) {
	ids, err := d.ids()
	if err != nil {
		return nil, err
	}

	records := make([]*T, 0, len(ids))

	for _, id := range ids {
		record, err := d.read(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load record %d: %w", id, err)
		}

		if record != nil {
			records = append(records, record)
		}
	}

	return records, nil
}
