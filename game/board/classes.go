// Package board resolves the Daevanion boards of a character's class and
// merges their effect lists.
package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// BoardsPerClass is the number of boards every class is expected to have.
const BoardsPerClass = 6

// ErrUnknownClass is returned by lookups that find no class.
var ErrUnknownClass = errors.New("board: unknown class")

// ClassMapping associates a class with its Daevanion board ids.
type ClassMapping struct {
	ClassID             int    `json:"classId" yaml:"classId"`
	ClassName           string `json:"className" yaml:"className"`
	ClassNameSimplified string `json:"classNameSimplified" yaml:"classNameSimplified"`
	ClassNameEn         string `json:"classNameEn" yaml:"classNameEn"`
	BoardIDs            []int  `json:"boardIds" yaml:"boardIds"`
}

// ClassConfig is the versioned class-board mapping document.
type ClassConfig struct {
	Version     string         `json:"version" yaml:"version"`
	LastUpdated string         `json:"lastUpdated" yaml:"lastUpdated"`
	Classes     []ClassMapping `json:"classes" yaml:"classes"`
}

// DefaultClassConfig is served when no mapping file can be read.
func DefaultClassConfig() ClassConfig {
	return ClassConfig{
		Version:     "1.0.0",
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		Classes:     []ClassMapping{},
	}
}

// ClassStore holds the class-board mapping loaded from a file. Lookups see
// the document from the most recent Reload.
type ClassStore struct {
	mu     sync.RWMutex
	path   string
	cfg    ClassConfig
	logger *zap.Logger
}

// NewClassStore creates a store for path and loads it. A missing or invalid
// file leaves the store with DefaultClassConfig.
func NewClassStore(path string, logger *zap.Logger) *ClassStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ClassStore{path: path, cfg: DefaultClassConfig(), logger: logger}
	if err := s.Reload(); err != nil {
		logger.Warn("class board mapping not loaded, using empty config",
			zap.String("path", path), zap.Error(err))
	}
	return s
}

// NewStaticClassStore creates a store serving cfg without a backing file.
func NewStaticClassStore(cfg ClassConfig) *ClassStore {
	return &ClassStore{cfg: cfg, logger: zap.NewNop()}
}

// Reload re-reads the mapping file. On failure the error is returned and the
// previously loaded document keeps being served.
func (s *ClassStore) Reload() error {
	cfg, err := readClassConfig(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.logger.Info("class board mapping loaded",
		zap.String("version", cfg.Version),
		zap.Int("classes", len(cfg.Classes)))
	return nil
}

// Set replaces the served document.
func (s *ClassStore) Set(cfg ClassConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Config returns a copy of the current document.
func (s *ClassStore) Config() ClassConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.cfg
	out.Classes = append([]ClassMapping(nil), s.cfg.Classes...)
	return out
}

// ByClassID returns the first mapping with the given class id.
func (s *ClassStore) ByClassID(id int) (ClassMapping, bool) {
	return s.find(func(c ClassMapping) bool { return c.ClassID == id })
}

// ByEnglishName matches classNameEn exactly.
func (s *ClassStore) ByEnglishName(name string) (ClassMapping, bool) {
	return s.find(func(c ClassMapping) bool { return c.ClassNameEn == name })
}

// ByChineseName matches the traditional or the simplified class name exactly.
func (s *ClassStore) ByChineseName(name string) (ClassMapping, bool) {
	return s.find(func(c ClassMapping) bool {
		return c.ClassName == name || c.ClassNameSimplified == name
	})
}

// ByName matches any of the three class name fields exactly.
func (s *ClassStore) ByName(name string) (ClassMapping, bool) {
	return s.find(func(c ClassMapping) bool {
		return c.ClassName == name || c.ClassNameSimplified == name || c.ClassNameEn == name
	})
}

// BoardIDsByClassID returns the board ids of a class, empty when unknown.
func (s *ClassStore) BoardIDsByClassID(id int) []int {
	c, ok := s.ByClassID(id)
	if !ok {
		return nil
	}
	return c.BoardIDs
}

// BoardIDsByClassName looks the class up by its English name.
func (s *ClassStore) BoardIDsByClassName(nameEn string) []int {
	c, ok := s.ByEnglishName(nameEn)
	if !ok {
		return nil
	}
	return c.BoardIDs
}

// ClassIDByChineseName returns the class id for a traditional or simplified name.
func (s *ClassStore) ClassIDByChineseName(name string) (int, error) {
	c, ok := s.ByChineseName(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownClass, name)
	}
	return c.ClassID, nil
}

func (s *ClassStore) find(match func(ClassMapping) bool) (ClassMapping, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cfg.Classes {
		if match(c) {
			c.BoardIDs = append([]int(nil), c.BoardIDs...)
			return c, true
		}
	}
	return ClassMapping{}, false
}

func readClassConfig(path string) (ClassConfig, error) {
	var cfg ClassConfig
	if path == "" {
		return cfg, errors.New("board: no class mapping path configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("board: parse %s: %w", path, err)
	}
	return cfg, nil
}
