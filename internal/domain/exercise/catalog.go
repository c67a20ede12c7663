package exercise

import (
	_ "embed"
	"fmt"
	"maps"
	"math"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/okian/kinetica/internal/domain/model"
)

//go:embed default_exercises.toml
var defaultCatalog string

// Catalog is an immutable lookup table of exercise configurations.
// It is safe for concurrent use.
type Catalog struct {
	exercises  map[string]Config
	categories map[model.ExerciseCategory]string
	fallback   Config
}

type fileEntry struct {
	Name           string   `toml:"name"`
	Category       string   `toml:"category"`
	PrimaryJoints  []string `toml:"primary_joints"`
	StartAngle     float64  `toml:"start_angle"`
	BottomAngle    float64  `toml:"bottom_angle"`
	Tolerance      float64  `toml:"tolerance"`
	TargetROM      float64  `toml:"target_rom"`
	IdealTempo     float64  `toml:"ideal_tempo"`
	TempoTolerance float64  `toml:"tempo_tolerance"`
	SymmetryWeight *float64 `toml:"symmetry_weight"`
	DepthWeight    *float64 `toml:"depth_weight"`
}

type fileCatalog struct {
	Default    *fileEntry        `toml:"default"`
	Categories map[string]string `toml:"categories"`
	Exercises  []fileEntry       `toml:"exercise"`
}

// Default returns the built-in catalogue.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("exercise: built-in catalog: %v", err))
	}
	return c
}

// Load reads a catalogue from a TOML file. An empty path yields the built-in catalogue.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadCatalog, err)
	}
	return Parse(string(data))
}

// Parse decodes a TOML catalogue document.
func Parse(doc string) (*Catalog, error) {
	var fc fileCatalog
	if _, err := toml.Decode(doc, &fc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadCatalog, err)
	}

	c := &Catalog{
		exercises:  make(map[string]Config, len(fc.Exercises)),
		categories: make(map[model.ExerciseCategory]string, len(fc.Categories)),
		fallback:   DefaultConfig(),
	}
	if fc.Default != nil {
		cfg, err := fc.Default.config()
		if err != nil {
			return nil, err
		}
		c.fallback = cfg
	}
	for _, e := range fc.Exercises {
		cfg, err := e.config()
		if err != nil {
			return nil, err
		}
		if _, dup := c.exercises[cfg.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate exercise %q", ErrInvalidCatalog, cfg.Name)
		}
		c.exercises[cfg.Name] = cfg
	}
	for cat, name := range fc.Categories {
		n := Normalize(name)
		if _, ok := c.exercises[n]; !ok {
			return nil, fmt.Errorf("%w: category %s refers to unknown exercise %q", ErrInvalidCatalog, cat, name)
		}
		c.categories[model.ParseCategory(cat)] = n
	}
	return c, nil
}

func (e fileEntry) config() (Config, error) {
	name := Normalize(e.Name)
	if name == "" {
		return Config{}, fmt.Errorf("%w: exercise name must not be empty", ErrInvalidCatalog)
	}
	if len(e.PrimaryJoints) == 0 {
		return Config{}, fmt.Errorf("%w: %s: primary_joints must not be empty", ErrInvalidCatalog, name)
	}
	if e.StartAngle == e.BottomAngle {
		return Config{}, fmt.Errorf("%w: %s: start_angle must differ from bottom_angle", ErrInvalidCatalog, name)
	}
	if e.Tolerance <= 0 || e.TargetROM <= 0 || e.IdealTempo <= 0 || e.TempoTolerance <= 0 {
		return Config{}, fmt.Errorf("%w: %s: tolerance, target_rom and tempo values must be positive", ErrInvalidCatalog, name)
	}

	joints := make([]model.JointName, 0, len(e.PrimaryJoints))
	for _, j := range e.PrimaryJoints {
		joints = append(joints, model.JointName(j))
	}
	cfg := Config{
		Name:           name,
		Category:       model.ParseCategory(e.Category),
		PrimaryJoints:  joints,
		StartAngle:     e.StartAngle,
		BottomAngle:    e.BottomAngle,
		Tolerance:      e.Tolerance,
		TargetROM:      e.TargetROM,
		IdealTempo:     seconds(e.IdealTempo),
		TempoTolerance: seconds(e.TempoTolerance),
		SymmetryWeight: 1,
		DepthWeight:    1,
	}
	if e.SymmetryWeight != nil {
		cfg.SymmetryWeight = *e.SymmetryWeight
	}
	if e.DepthWeight != nil {
		cfg.DepthWeight = *e.DepthWeight
	}
	// Zero switches a component off; the fixed components keep the total positive.
	if !validWeight(cfg.SymmetryWeight) || !validWeight(cfg.DepthWeight) {
		return Config{}, fmt.Errorf("%w: %s: symmetry_weight and depth_weight must be finite and not negative", ErrInvalidCatalog, name)
	}
	return cfg, nil
}

func validWeight(w float64) bool {
	return w >= 0 && !math.IsInf(w, 1)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Lookup resolves name to a configuration. An exact match on the normalized
// name wins; otherwise the representative exercise of the keyword category is
// used. When neither exists the default configuration is returned with false.
func (c *Catalog) Lookup(name string) (Config, bool) {
	n := Normalize(name)
	if cfg, ok := c.exercises[n]; ok {
		return cfg, true
	}
	cat := Classify(n)
	if rep, ok := c.categories[cat]; ok {
		cfg := c.exercises[rep]
		cfg.Name = n
		return cfg, true
	}
	cfg := c.fallback
	if n != "" {
		cfg.Name = n
	}
	return cfg, false
}

// Names lists the exercises in the catalogue, sorted.
func (c *Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c.exercises))
}

// Len returns the number of exercises.
func (c *Catalog) Len() int {
	return len(c.exercises)
}
