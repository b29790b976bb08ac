// Package project groups the operations on a single named set of domains:
// ingestion from a file, listing, counting, deletion and export.
//
// Store failures never reach callers of this package as raw errors. They are
// logged with the project name and turned into skipped lines, empty results,
// an absent count or a false return.
package project

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mosajjal/bountycatch/pkg/store"
	"github.com/mosajjal/bountycatch/pkg/validate"
	"github.com/rs/zerolog"
)

// ErrFileNotFound is returned by Ingest when the input file does not exist.
var ErrFileNotFound = errors.New("file does not exist")

// maxLineLength bounds a single input line. domains are far shorter, this
// only keeps garbage input from failing the scan.
const maxLineLength = 1024 * 1024

// Project is a named set of domains held in a SetStore.
type Project struct {
	Name   string
	store  store.SetStore
	logger zerolog.Logger
}

// New creates a Project. Nothing is written to the store until domains are added.
func New(name string, s store.SetStore, logger zerolog.Logger) *Project {
	return &Project{
		Name:   name,
		store:  s,
		logger: logger.With().Str("project", name).Logger(),
	}
}

// Report summarizes one ingestion.
type Report struct {
	// Total is the number of lines sent to the store
	Total int `json:"total"`
	// New is the number of lines the store did not have yet
	New int `json:"new"`
	// Duplicates is Total - New
	Duplicates int `json:"duplicates"`
	// DuplicatePct is Duplicates as a percentage of Total, 0 when Total is 0
	DuplicatePct float64 `json:"duplicate_pct"`
	// Invalid is the number of lines rejected by validation
	Invalid int `json:"invalid"`
	// Failed is the number of lines the store returned an error for
	Failed int `json:"failed"`
}

func (r *Report) finish() {
	r.Duplicates = r.Total - r.New
	if r.Total > 0 {
		r.DuplicatePct = float64(r.Duplicates) / float64(r.Total) * 100
	}
}

// Ingest reads path line by line and adds every domain to the project.
// Blank lines are ignored. With validateDomains set, malformed domains are counted
// as invalid and never sent to the store. A store failure on one line is
// logged and the rest of the file is still processed.
func (p *Project) Ingest(ctx context.Context, path string, validateDomains bool) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%s: %w", path, ErrFileNotFound)
		}
		p.logger.Error().Err(err).Msg("failed to open input file")
		return Report{}, err
	}
	defer f.Close()

	var report Report
	add := p.adder(ctx, validateDomains, &report)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		add(scanner.Text(), lineNum)
	}
	report.finish()
	if err := scanner.Err(); err != nil {
		p.logger.Error().Err(err).Msgf("failed to read file %s", path)
		return report, err
	}
	p.logReport(report)
	return report, nil
}

// IngestDomains is Ingest for domains that are already in memory.
func (p *Project) IngestDomains(ctx context.Context, domains []string, validateDomains bool) Report {
	var report Report
	add := p.adder(ctx, validateDomains, &report)
	for i, d := range domains {
		add(d, i+1)
	}
	report.finish()
	p.logReport(report)
	return report
}

// adder returns the per-line step shared by both ingestion paths.
func (p *Project) adder(ctx context.Context, validateDomains bool, report *Report) func(line string, lineNum int) {
	return func(line string, lineNum int) {
		domain := strings.TrimSpace(line)
		if domain == "" {
			return
		}
		if validateDomains && !validate.Domain(domain) {
			p.logger.Warn().Msgf("invalid domain '%s' on line %d, skipping", domain, lineNum)
			report.Invalid++
			return
		}
		added, err := p.store.Add(ctx, p.Name, domain)
		if err != nil {
			p.logger.Error().Err(err).Msgf("failed to add domain '%s'", domain)
			report.Failed++
			return
		}
		report.New += int(added)
		report.Total++
	}
}

func (p *Project) logReport(r Report) {
	p.logger.Info().Msgf("processed %d domains: %d new, %d duplicates (%.2f%%)",
		r.Total, r.New, r.Duplicates, r.DuplicatePct)
	if r.Invalid > 0 {
		p.logger.Warn().Msgf("skipped %d invalid domains", r.Invalid)
	}
	if r.Failed > 0 {
		p.logger.Warn().Msgf("failed to store %d domains", r.Failed)
	}
}

// Domains returns every domain in the project, sorted. A store failure is
// logged and yields an empty result.
func (p *Project) Domains(ctx context.Context) []string {
	members, err := p.store.Members(ctx, p.Name)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to get domains")
		return []string{}
	}
	sort.Strings(members)
	return members
}

// Count returns the number of domains and true, or false when the project
// does not exist. An existing project may report 0.
func (p *Project) Count(ctx context.Context) (int64, bool) {
	ok, err := p.store.Exists(ctx, p.Name)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to count domains")
		return 0, false
	}
	if !ok {
		p.logger.Error().Msgf("project '%s' does not exist", p.Name)
		return 0, false
	}
	n, err := p.store.Card(ctx, p.Name)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to count domains")
		return 0, false
	}
	p.logger.Info().Msgf("project '%s' contains %d domains", p.Name, n)
	return n, true
}

// Delete removes the project and all its domains. It returns true only if
// the store actually removed something.
func (p *Project) Delete(ctx context.Context) bool {
	p.logger.Info().Msgf("attempting to delete project '%s'", p.Name)
	n, err := p.store.Delete(ctx, p.Name)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to delete project")
		return false
	}
	if n == 0 {
		p.logger.Warn().Msgf("project '%s' did not exist", p.Name)
		return false
	}
	p.logger.Info().Msgf("project '%s' deleted successfully", p.Name)
	return true
}
