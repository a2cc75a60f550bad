package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-vct/pkg/artifact"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the project configuration file name.
const DefaultFile = "vapi_config.json"

// APIKeyEnv overrides the configured API key when set.
const APIKeyEnv = "VAPI_PRIVATE_API_KEY"

// ErrNoAPIKey is returned when neither the configuration nor the environment
// provides an API key.
var ErrNoAPIKey = errors.New("API key not found in configuration file")

// ErrUnchanged may be returned by an Update callback to skip saving.
var ErrUnchanged = errors.New("configuration unchanged")

// Config is the project configuration for a set of assistants.
type Config struct {
	APIKey               string            `json:"api_key,omitempty" yaml:"api_key,omitempty" jsonschema:"description=Private API key for the assistant service"`
	AssistantIDs         []string          `json:"assistant_ids" yaml:"assistant_ids" jsonschema:"description=Assistants tracked by this project"`
	AssistantDirectories map[string]string `json:"assistant_directories" yaml:"assistant_directories" jsonschema:"description=Assistant id to artifact directory"`

	// extra holds unknown keys so saving never drops them.
	extra map[string]interface{}
}

// DirectoryFor returns the artifact directory registered for id, or id itself.
func (c *Config) DirectoryFor(id string) string {
	if dir, ok := c.AssistantDirectories[id]; ok && dir != "" {
		return dir
	}
	return id
}

// HasAssistant reports whether id is tracked.
func (c *Config) HasAssistant(id string) bool {
	for _, existing := range c.AssistantIDs {
		if existing == id {
			return true
		}
	}
	return false
}

// ResolveAPIKey returns the API key, preferring the environment.
func (c *Config) ResolveAPIKey() (string, error) {
	if key := os.Getenv(APIKeyEnv); key != "" {
		return key, nil
	}
	if c.APIKey == "" {
		return "", ErrNoAPIKey
	}
	return c.APIKey, nil
}

// Store reads and writes one project configuration file. Its methods are
// safe for concurrent use within a process; nothing guards against other
// processes editing the same file.
type Store struct {
	mu sync.Mutex

	// Path is the project configuration file.
	Path string
	// DefaultPath is merged underneath Path by Load. Empty disables it.
	DefaultPath string

	log *logrus.Entry
}

var _ artifact.DirectoryRegistry = (*Store)(nil)

// NewStore creates a store for the project file at path with the per-user
// default file underneath it.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultFile
	}
	return &Store{
		Path:        path,
		DefaultPath: UserDefaultPath(),
		log:         grovelogging.NewLogger("vct.config"),
	}
}

// UserDefaultPath returns ~/.vapi_vct/vapi_config.json, or "" when the home
// directory is unknown.
func UserDefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".vapi_vct", DefaultFile)
}

// Load returns the project configuration merged over the default file.
// Top-level keys of the project file replace those of the default file.
func (s *Store) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := map[string]interface{}{}
	if s.DefaultPath != "" {
		defaults, found, err := readMap(s.DefaultPath)
		if err != nil {
			return nil, err
		}
		if found {
			for k, v := range defaults {
				merged[k] = v
			}
		}
	}

	project, err := s.loadProjectMap(true)
	if err != nil {
		return nil, err
	}
	for k, v := range project {
		merged[k] = v
	}
	return fromMap(merged)
}

// LoadProject returns only the project file, without defaults.
func (s *Store) LoadProject() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.loadProjectMap(true)
	if err != nil {
		return nil, err
	}
	return fromMap(project)
}

// Update applies fn to the project file and saves it. Defaults are never
// written into the project file.
func (s *Store) Update(fn func(*Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.loadProjectMap(false)
	if err != nil {
		return err
	}
	cfg, err := fromMap(project)
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		if errors.Is(err, ErrUnchanged) {
			return nil
		}
		return err
	}
	return s.save(cfg)
}

// RegisterDirectory records the artifact directory of an assistant.
func (s *Store) RegisterDirectory(id, dir string) error {
	return s.Update(func(c *Config) error {
		c.AssistantDirectories[id] = dir
		return nil
	})
}

// AddAssistants tracks ids, returning the ones that were new. Ids that are
// not UUIDs are accepted with a warning.
func (s *Store) AddAssistants(ids ...string) (added []string, err error) {
	err = s.Update(func(c *Config) error {
		for _, id := range ids {
			if c.HasAssistant(id) {
				continue
			}
			if _, perr := uuid.Parse(id); perr != nil {
				s.log.WithField("id", id).Warn("Assistant id is not a UUID")
			}
			c.AssistantIDs = append(c.AssistantIDs, id)
			added = append(added, id)
		}
		return nil
	})
	return added, err
}

// RemoveAssistants stops tracking ids, returning the ones that were removed.
// Directory mappings are kept so the artifacts stay findable.
func (s *Store) RemoveAssistants(ids ...string) (removed []string, err error) {
	err = s.Update(func(c *Config) error {
		drop := map[string]bool{}
		for _, id := range ids {
			if c.HasAssistant(id) && !drop[id] {
				drop[id] = true
				removed = append(removed, id)
			}
		}
		if len(removed) == 0 {
			return ErrUnchanged
		}
		kept := c.AssistantIDs[:0]
		for _, id := range c.AssistantIDs {
			if !drop[id] {
				kept = append(kept, id)
			}
		}
		c.AssistantIDs = kept
		return nil
	})
	return removed, err
}

// SetAPIKey stores key in the project file.
func (s *Store) SetAPIKey(key string) error {
	return s.Update(func(c *Config) error {
		c.APIKey = key
		return nil
	})
}

// ClearAPIKey removes the key from the project file, reporting whether one
// was present.
func (s *Store) ClearAPIKey() (bool, error) {
	had := false
	err := s.Update(func(c *Config) error {
		if c.APIKey == "" {
			return ErrUnchanged
		}
		had = true
		c.APIKey = ""
		return nil
	})
	return had, err
}

func (s *Store) loadProjectMap(warnMissing bool) (map[string]interface{}, error) {
	project, found, err := readMap(s.Path)
	if err != nil {
		return nil, err
	}
	if !found {
		if warnMissing {
			s.log.WithField("path", s.Path).Warn("Project configuration file not found")
		}
		return map[string]interface{}{}, nil
	}
	return project, nil
}

func (s *Store) save(cfg *Config) error {
	m := toMap(cfg)

	var (
		data []byte
		err  error
	)
	if isYAML(s.Path) {
		data, err = yaml.Marshal(m)
	} else {
		data, err = json.MarshalIndent(m, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := artifact.WriteAtomic(s.Path, data); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
}

// readMap decodes a JSON or YAML object file.
func readMap(path string) (map[string]interface{}, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read config file: %w", err)
	}

	m := map[string]interface{}{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return m, true, nil
	}
	if isYAML(path) {
		err = yaml.Unmarshal(data, &m)
	} else {
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, false, fmt.Errorf("invalid configuration file '%s': %w", path, err)
	}
	return m, true, nil
}

var knownKeys = []string{"api_key", "assistant_ids", "assistant_directories"}

func fromMap(m map[string]interface{}) (*Config, error) {
	known := map[string]interface{}{}
	extra := map[string]interface{}{}
	for k, v := range m {
		if isKnown(k) {
			known[k] = v
		} else {
			extra[k] = v
		}
	}

	// Round trip through JSON so YAML and JSON sources decode identically.
	data, err := json.Marshal(known)
	if err != nil {
		return nil, fmt.Errorf("normalize config: %w", err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.AssistantDirectories == nil {
		cfg.AssistantDirectories = map[string]string{}
	}
	cfg.extra = extra
	return cfg, nil
}

func toMap(cfg *Config) map[string]interface{} {
	m := map[string]interface{}{}
	for k, v := range cfg.extra {
		m[k] = v
	}
	if cfg.APIKey != "" {
		m["api_key"] = cfg.APIKey
	}
	ids := cfg.AssistantIDs
	if ids == nil {
		ids = []string{}
	}
	m["assistant_ids"] = ids
	dirs := cfg.AssistantDirectories
	if dirs == nil {
		dirs = map[string]string{}
	}
	m["assistant_directories"] = dirs
	return m
}

func isKnown(key string) bool {
	for _, k := range knownKeys {
		if k == key {
			return true
		}
	}
	return false
}
