// Package datasets loads the static bond and certificate JSON files
// produced by the offline scrapers.
package datasets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmanzanog/market-aggregator/internal/domain"
)

const (
	BondsFile        = "bonds.json"
	CertificatesFile = "certificates.json"
)

type Datasets struct {
	Bonds        []domain.Bond
	Certificates []domain.Certificate
}

// Load reads both files from dir. A missing file yields an empty list and a
// warning; a malformed file is an error.
func Load(dir string) (*Datasets, error) {
	bonds, err := loadFile[domain.Bond](filepath.Join(dir, BondsFile))
	if err != nil {
		return nil, err
	}
	certs, err := loadFile[domain.Certificate](filepath.Join(dir, CertificatesFile))
	if err != nil {
		return nil, err
	}

	slog.Info("Datasets loaded", "dir", dir, "bonds", len(bonds), "certificates", len(certs))
	return &Datasets{Bonds: bonds, Certificates: certs}, nil
}

// loadFile accepts either a bare array or an object with a "data" array,
// the two shapes the scrapers have written over time.
func loadFile[T any](path string) ([]T, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("dataset file not found, serving empty list", "path", path)
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}

	var wrapped struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if wrapped.Data == nil {
		return []T{}, nil
	}
	return wrapped.Data, nil
}
