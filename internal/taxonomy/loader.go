package taxonomy

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/roi-insights/internal/models"
)

//go:embed default_taxonomy.yaml
var defaultTaxonomy []byte

// ErrNotLoaded is returned when the taxonomy is read before loading
var ErrNotLoaded = errors.New("taxonomy not loaded")

// Loader loads the survey taxonomy once and serves it read-only
type Loader struct {
	mu       sync.RWMutex
	taxonomy *models.Taxonomy
	source   string
}

// NewLoader creates a new taxonomy loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the taxonomy from path, or the built-in taxonomy when path is empty
func (l *Loader) Load(path string) error {
	if path == "" {
		return l.LoadBytes(defaultTaxonomy, "builtin")
	}
	return l.LoadFromFile(path)
}

// LoadFromFile loads the taxonomy from a YAML file
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return l.LoadBytes(data, path)
}

// LoadBytes parses and validates YAML taxonomy data
func (l *Loader) LoadBytes(data []byte, source string) error {
	t, err := Parse(data)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.taxonomy = t
	l.source = source
	l.mu.Unlock()

	questions := 0
	for _, s := range t.Sections {
		questions += len(s.Questions)
	}
	slog.Info("taxonomy loaded", "source", source, "sections", len(t.Sections), "questions", questions)
	return nil
}

// Taxonomy returns the loaded taxonomy. Callers must not mutate it.
func (l *Loader) Taxonomy() *models.Taxonomy {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.taxonomy
}

// Sections returns the ordered sections
func (l *Loader) Sections() []models.Section {
	if t := l.Taxonomy(); t != nil {
		return t.Sections
	}
	return nil
}

// Question returns a question by id
func (l *Loader) Question(id string) *models.Question {
	return l.Taxonomy().Question(id)
}

// Source returns where the taxonomy was loaded from
func (l *Loader) Source() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.source
}

// Default parses the built-in taxonomy
func Default() *models.Taxonomy {
	t, err := Parse(defaultTaxonomy)
	if err != nil {
		panic(fmt.Sprintf("built-in taxonomy is invalid: %v", err))
	}
	return t
}

// Parse decodes and validates a YAML taxonomy
func Parse(data []byte) (*models.Taxonomy, error) {
	var t models.Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := Validate(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the structural rules of a taxonomy
func Validate(t *models.Taxonomy) error {
	if t.SectionCount() == 0 {
		return fmt.Errorf("taxonomy has no sections")
	}

	seen := make(map[string]bool)
	budgets := 0
	for i, s := range t.Sections {
		if s.Name == "" {
			return fmt.Errorf("section %d: name is required", i)
		}
		if len(s.Questions) == 0 {
			return fmt.Errorf("section %q: no questions", s.Name)
		}

		for _, q := range s.Questions {
			if q.ID == "" {
				return fmt.Errorf("section %q: question id is required", s.Name)
			}
			if seen[q.ID] {
				return fmt.Errorf("duplicate question id %q", q.ID)
			}
			seen[q.ID] = true

			if !q.Type.IsValid() {
				return fmt.Errorf("question %q: unknown type %q", q.ID, q.Type)
			}
			if q.Type.HasOptions() && len(q.Options) == 0 {
				return fmt.Errorf("question %q: %s requires options", q.ID, q.Type)
			}
			if q.Min != nil && q.Max != nil && *q.Min > *q.Max {
				return fmt.Errorf("question %q: min %v exceeds max %v", q.ID, *q.Min, *q.Max)
			}
			if !q.Category.IsValid() {
				return fmt.Errorf("question %q: unknown category %q", q.ID, q.Category)
			}
			if q.Category == models.CategoryInitialBudget {
				budgets++
			}
		}
	}

	if budgets > 1 {
		return fmt.Errorf("taxonomy declares %d initial-budget questions, at most one allowed", budgets)
	}

	return nil
}
