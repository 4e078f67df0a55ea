package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/guillermoBallester/querylens/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// CaseFile is the YAML document listing diagnostic cases.
//
//	threshold_ms: 100
//	cases:
//	  - name: users by email
//	    sql: SELECT * FROM users WHERE email = ?
//	    params: [alice@example.com]
type CaseFile struct {
	ThresholdMS *int64                  `yaml:"threshold_ms"` // nil when absent
	Cases       []domain.DiagnosticCase `yaml:"cases"`
}

// DefaultCases is the batch run when no case file is configured.
func DefaultCases() []domain.DiagnosticCase {
	return []domain.DiagnosticCase{
		{Name: "users by email", SQL: "SELECT * FROM users WHERE email = ?", Params: []any{"admin@example.com"}},
		{Name: "published posts", SQL: "SELECT * FROM posts WHERE status = ? ORDER BY created_at DESC LIMIT 20", Params: []any{"published"}},
		{Name: "posts by author", SQL: "SELECT * FROM posts WHERE author_id = ?", Params: []any{1}},
		{Name: "page views by path", SQL: "SELECT COUNT(*) FROM page_views WHERE path = ?", Params: []any{"/"}},
	}
}

// LoadCases reads and validates a case file. Unknown keys are rejected.
func LoadCases(path string) (*CaseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading case file: %w", err)
	}

	var cf CaseFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing case file %s: %w", path, err)
	}

	if err := cf.validate(); err != nil {
		return nil, fmt.Errorf("case file %s: %w", path, err)
	}
	return &cf, nil
}

func (cf *CaseFile) validate() error {
	if cf.ThresholdMS != nil && *cf.ThresholdMS <= 0 {
		return fmt.Errorf("threshold_ms must be a positive integer, got %d", *cf.ThresholdMS)
	}
	if len(cf.Cases) == 0 {
		return fmt.Errorf("no cases defined")
	}
	seen := make(map[string]bool, len(cf.Cases))
	for i, c := range cf.Cases {
		if c.Name == "" {
			return fmt.Errorf("case %d: name is required", i)
		}
		if c.SQL == "" {
			return fmt.Errorf("case %q: sql is required", c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("case %q: duplicate name", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// ResolveCases returns the cases to run and the threshold to use. The
// threshold precedence is env/flag, then the case file, then the built-in
// default. Every explicit source rejects values below 1, so 0 here means unset.
func (c *Config) ResolveCases() ([]domain.DiagnosticCase, int64, error) {
	threshold := c.SlowThresholdMS
	if c.CasesFile == "" {
		if threshold == 0 {
			threshold = domain.DefaultSlowQueryThresholdMS
		}
		return DefaultCases(), threshold, nil
	}

	cf, err := LoadCases(c.CasesFile)
	if err != nil {
		return nil, 0, err
	}
	if threshold == 0 && cf.ThresholdMS != nil {
		threshold = *cf.ThresholdMS
	}
	if threshold == 0 {
		threshold = domain.DefaultSlowQueryThresholdMS
	}
	return cf.Cases, threshold, nil
}
