package adapter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

const (
	reportFileName    = "report.yaml"
	shardDirPrefix    = "shard_"
	currentReportsVer = 1
)

// ErrNoReports is returned when a reports directory holds no report file.
var ErrNoReports = errors.New("no reports found")

// ReportStore persists run reports between invocations.
type ReportStore interface {
	SaveReports(ctx context.Context, dir m.Path, reports []m.RunReport) error
	LoadReports(ctx context.Context, dir m.Path) ([]m.RunReport, error)
	// ShardDirs lists shard_* subdirectories of dir in lexical order.
	ShardDirs(ctx context.Context, dir m.Path) ([]m.Path, error)
}

type reportDocument struct {
	Version int           `yaml:"version"`
	Reports []m.RunReport `yaml:"reports"`
}

// YAMLReportStore stores reports as a single YAML document per directory.
type YAMLReportStore struct{}

// NewReportStore constructs a YAMLReportStore.
func NewReportStore() *YAMLReportStore {
	return &YAMLReportStore{}
}

// SaveReports writes reports to dir/report.yaml, replacing any previous file.
func (s *YAMLReportStore) SaveReports(ctx context.Context, dir m.Path, reports []m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}

	sorted := append([]m.RunReport(nil), reports...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Project < sorted[j].Project
	})

	data, err := yaml.Marshal(reportDocument{Version: currentReportsVer, Reports: sorted})
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}

	target := filepath.Join(string(dir), reportFileName)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write reports: %w", err)
	}

	return os.Rename(tmp, target)
}

// LoadReports reads dir/report.yaml.
func (s *YAMLReportStore) LoadReports(ctx context.Context, dir m.Path) ([]m.RunReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(string(dir), reportFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNoReports)
		}

		return nil, fmt.Errorf("read reports: %w", err)
	}

	var doc reportDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode reports in %s: %w", dir, err)
	}

	if doc.Version > currentReportsVer {
		return nil, fmt.Errorf("reports in %s use version %d, newest supported is %d", dir, doc.Version, currentReportsVer)
	}

	return doc.Reports, nil
}

// ShardDirs lists shard_* subdirectories of dir.
func (s *YAMLReportStore) ShardDirs(_ context.Context, dir m.Path) ([]m.Path, error) {
	entries, err := os.ReadDir(string(dir))
	if err != nil {
		return nil, fmt.Errorf("read reports dir: %w", err)
	}

	var shards []m.Path

	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), shardDirPrefix) {
			shards = append(shards, m.Path(filepath.Join(string(dir), entry.Name())))
		}
	}

	return shards, nil
}

// ShardDir returns the directory a shard writes its reports into.
func ShardDir(dir m.Path, index int) m.Path {
	return m.Path(filepath.Join(string(dir), fmt.Sprintf("%s%d", shardDirPrefix, index)))
}
