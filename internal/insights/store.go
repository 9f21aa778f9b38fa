// Package insights is the shared markdown hub for finished analyses.
// It only moves pre-formatted markdown in and out of category folders;
// pipeline semantics never leak in here. Reports saved with evidence
// rows produce a paired CSV next to the markdown file under the same
// base name.
package insights

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultCategory receives insights saved without an explicit category.
const DefaultCategory = "99_uncategorized"

// ErrNotFound is returned when a category or insight does not exist.
var ErrNotFound = errors.New("insight not found")

// Info describes one stored insight file.
type Info struct {
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	Modified  time.Time `json:"modified"`
	// HasEvidence reports whether a paired CSV sits next to the file.
	HasEvidence bool `json:"has_evidence"`
}

// Store is a directory-per-category file store for markdown insights.
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore opens (and creates if missing) the store root.
func NewStore(root string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create insight root: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

var (
	slugStrip    = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	slugCollapse = regexp.MustCompile(`[\s_]+`)
)

const maxSlugLen = 80

// Slugify converts a name to a lowercase filesystem-safe slug.
func Slugify(text string) string {
	return truncateSlug(slugClean(strings.ToLower(text)))
}

func titleSlug(text string) string {
	return truncateSlug(slugClean(text))
}

func slugClean(text string) string {
	s := strings.TrimSpace(text)
	s = slugStrip.ReplaceAllString(s, "")
	return slugCollapse.ReplaceAllString(s, "_")
}

// truncateSlug caps the slug at maxSlugLen runes. Byte slicing would
// split multi-byte runes in non-ASCII titles and yield invalid UTF-8
// filenames.
func truncateSlug(s string) string {
	runes := []rune(s)
	if len(runes) <= maxSlugLen {
		return s
	}
	return string(runes[:maxSlugLen])
}

// Filename builds the dated, case-preserving filename for a title:
// "Plush Bear Strategy" becomes "Plush_Bear_Strategy_2026-08-30.md".
func Filename(title string, at time.Time) string {
	return fmt.Sprintf("%s_%s.md", titleSlug(title), at.Format("2006-01-02"))
}

// resolve guards against paths escaping the store root.
func (s *Store) resolve(category, filename string) (string, error) {
	if strings.Contains(category, "..") || strings.ContainsAny(category, `/\`) {
		return "", fmt.Errorf("invalid category %q", category)
	}
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return filepath.Join(s.root, category, filename), nil
}

// Categories returns the sorted category folder names.
func (s *Store) Categories() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	var cats []string
	for _, e := range entries {
		if e.IsDir() {
			cats = append(cats, e.Name())
		}
	}
	sort.Strings(cats)
	return cats, nil
}

// CreateCategory adds a category folder, slugifying the name. It
// reports false when the folder already exists or the name slugs to
// nothing.
func (s *Store) CreateCategory(name string) (bool, error) {
	safe := Slugify(name)
	if safe == "" {
		return false, nil
	}
	dir := filepath.Join(s.root, safe)
	if _, err := os.Stat(dir); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create category %s: %w", safe, err)
	}
	return true, nil
}

// Save writes markdown under category/filename, creating the category
// when missing. Evidence rows, when given, are written as a CSV beside
// the markdown file with the same base name. The first row is the
// header.
func (s *Store) Save(category, filename, content string, evidence [][]string) error {
	if category == "" {
		category = DefaultCategory
	}
	path, err := s.resolve(category, filename)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create category dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write insight: %w", err)
	}

	if len(evidence) > 0 {
		if err := writeCSV(csvPath(path), evidence); err != nil {
			return err
		}
	}
	s.logger.Debug("Insight saved",
		zap.String("category", category),
		zap.String("filename", filename),
	)
	return nil
}

func csvPath(mdPath string) string {
	return strings.TrimSuffix(mdPath, filepath.Ext(mdPath)) + ".csv"
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write evidence: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write evidence rows: %w", err)
	}
	return nil
}

// List returns all insights grouped by category, newest filename first.
// Empty categories appear with empty lists.
func (s *Store) List() (map[string][]Info, error) {
	cats, err := s.Categories()
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]Info, len(cats))
	for _, cat := range cats {
		entries, err := os.ReadDir(filepath.Join(s.root, cat))
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", cat, err)
		}

		infos := []Info{}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, ".md") {
				continue
			}
			fi, err := e.Info()
			if err != nil {
				continue
			}
			_, evErr := os.Stat(csvPath(filepath.Join(s.root, cat, name)))
			infos = append(infos, Info{
				Filename:    name,
				SizeBytes:   fi.Size(),
				Modified:    fi.ModTime(),
				HasEvidence: evErr == nil,
			})
		}
		sort.Slice(infos, func(i, j int) bool { return infos[i].Filename > infos[j].Filename })
		grouped[cat] = infos
	}
	return grouped, nil
}

// Get reads one insight's markdown.
func (s *Store) Get(category, filename string) (string, error) {
	path, err := s.resolve(category, filename)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read insight: %w", err)
	}
	return string(data), nil
}

// Delete removes an insight and its paired evidence CSV, if present.
func (s *Store) Delete(category, filename string) error {
	path, err := s.resolve(category, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete insight: %w", err)
	}
	// Evidence is best-effort; a missing CSV is normal.
	_ = os.Remove(csvPath(path))
	return nil
}
