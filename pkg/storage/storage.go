package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dtnitsch/vitiscrape/models"
	"gopkg.in/yaml.v3"
)

type Storage struct{}

// FileStats holds metadata about a file without reading its contents.
type FileStats struct {
	SizeBytes int64
	ModTime   time.Time
}

func (s *Storage) SaveFile(filePath string, content []byte) error {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (s *Storage) ReadFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (s *Storage) HasFile(fn string) bool {
	_, err := os.Stat(fn)
	return err == nil
}

// GetFileStats returns metadata about a file using os.Stat (no I/O overhead).
func (s *Storage) GetFileStats(filePath string) (*FileStats, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get file stats: %w", err)
	}

	return &FileStats{
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}

func isYAML(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	return ext == ".yaml" || ext == ".yml"
}

// WriteBatches writes batches as a JSON array, or as YAML when the path ends
// in .yaml or .yml.
func (s *Storage) WriteBatches(filePath string, batches []models.Batch) error {
	if batches == nil {
		batches = []models.Batch{}
	}

	var (
		data []byte
		err  error
	)
	if isYAML(filePath) {
		data, err = yaml.Marshal(batches)
	} else {
		data, err = json.MarshalIndent(batches, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode batches: %w", err)
	}
	return s.SaveFile(filePath, data)
}

// ReadBatches loads a document written by WriteBatches.
func (s *Storage) ReadBatches(filePath string) ([]models.Batch, error) {
	data, err := s.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var batches []models.Batch
	if isYAML(filePath) {
		err = yaml.Unmarshal(data, &batches)
	} else {
		err = json.Unmarshal(data, &batches)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode batches from %s: %w", filePath, err)
	}
	return batches, nil
}
