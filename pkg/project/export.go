package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Format is an export file format.
type Format string

// Supported export formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned by ParseFormat for anything but text or json.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat parses a format name, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
}

// Export is the JSON export document.
type Export struct {
	Project     string   `json:"project"`
	DomainCount int      `json:"domain_count"`
	ExportedAt  string   `json:"exported_at"`
	Domains     []string `json:"domains"`
}

// Export writes the sorted domains to path. It returns false, leaving no
// file behind, when the project is empty, the format is unknown or the write
// fails. The file only appears at path once it is complete.
func (p *Project) Export(ctx context.Context, path string, format Format) bool {
	domains := p.Domains(ctx)
	if len(domains) == 0 {
		p.logger.Warn().Msgf("no domains found in project '%s'", p.Name)
		return false
	}

	var b []byte
	switch format {
	case FormatJSON:
		var err error
		b, err = json.MarshalIndent(Export{
			Project:     p.Name,
			DomainCount: len(domains),
			ExportedAt:  time.Now().Format(time.RFC3339),
			Domains:     domains,
		}, "", "  ")
		if err != nil {
			p.logger.Error().Err(err).Msg("failed to export domains")
			return false
		}
		b = append(b, '\n')
	case FormatText:
		b = []byte(strings.Join(domains, "\n") + "\n")
	default:
		p.logger.Error().Msgf("unsupported export format: %s", format)
		return false
	}

	if err := writeFileAtomic(path, b); err != nil {
		p.logger.Error().Err(err).Msg("failed to export domains")
		return false
	}
	p.logger.Info().Msgf("exported %d domains to %s (%s format)", len(domains), path, format)
	return true
}

// writeFileAtomic writes to a temp file next to path, then renames it into place.
func writeFileAtomic(path string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
