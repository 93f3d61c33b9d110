// Package catalog loads the static mission catalog and XP level thresholds.
// The catalog is read-only once loaded and safe for concurrent use.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// Criteria says how many distinct signals of Event complete a mission.
type Criteria struct {
	Event  string `yaml:"event" json:"event"`
	Target int    `yaml:"target" json:"target"`
}

type Mission struct {
	ID       string   `yaml:"id" json:"id"`
	Title    string   `yaml:"title" json:"title"`
	XPReward int64    `yaml:"xp_reward" json:"xp_reward"`
	Criteria Criteria `yaml:"criteria" json:"criteria"`
}

type file struct {
	Levels   []int64   `yaml:"levels"`
	Missions []Mission `yaml:"missions"`
}

type Catalog struct {
	missions []Mission
	byID     map[string]int
	levels   []int64
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or the default catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Missions, f.Levels)
}

// New validates and builds a catalog. Mission order is preserved.
func New(missions []Mission, levels []int64) (*Catalog, error) {
	if err := validate(missions, levels); err != nil {
		return nil, err
	}
	c := &Catalog{
		missions: append([]Mission(nil), missions...),
		byID:     make(map[string]int, len(missions)),
		levels:   append([]int64(nil), levels...),
	}
	for i, m := range c.missions {
		c.byID[m.ID] = i
	}
	return c, nil
}

func validate(missions []Mission, levels []int64) error {
	var errs []error
	if len(missions) == 0 {
		errs = append(errs, errors.New("catalog has no missions"))
	}
	seen := make(map[string]bool, len(missions))
	for i, m := range missions {
		switch {
		case strings.TrimSpace(m.ID) == "":
			errs = append(errs, fmt.Errorf("mission #%d: empty id", i))
			continue
		case seen[m.ID]:
			errs = append(errs, fmt.Errorf("mission %q: duplicate id", m.ID))
		}
		seen[m.ID] = true
		if m.XPReward <= 0 {
			errs = append(errs, fmt.Errorf("mission %q: xp_reward must be positive", m.ID))
		}
		if strings.TrimSpace(m.Criteria.Event) == "" {
			errs = append(errs, fmt.Errorf("mission %q: criteria event is empty", m.ID))
		}
		if m.Criteria.Target < 1 {
			errs = append(errs, fmt.Errorf("mission %q: criteria target must be at least 1", m.ID))
		}
	}

	if len(levels) == 0 {
		errs = append(errs, errors.New("catalog has no level thresholds"))
	} else if levels[0] != 0 {
		errs = append(errs, errors.New("first level threshold must be 0"))
	}
	for i := 1; i < len(levels); i++ {
		if levels[i] <= levels[i-1] {
			errs = append(errs, fmt.Errorf("level threshold %d (%d) is not above the previous one", i, levels[i]))
		}
	}
	return errors.Join(errs...)
}

// Mission looks up a mission by id.
func (c *Catalog) Mission(id string) (Mission, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Mission{}, false
	}
	return c.missions[i], true
}

// Missions returns a copy of all missions in catalog order.
func (c *Catalog) Missions() []Mission {
	return append([]Mission(nil), c.missions...)
}

// ForEvent returns the missions whose criteria count signals of event.
func (c *Catalog) ForEvent(event string) []Mission {
	var out []Mission
	for _, m := range c.missions {
		if m.Criteria.Event == event {
			out = append(out, m)
		}
	}
	return out
}

func (c *Catalog) Levels() []int64 {
	return append([]int64(nil), c.levels...)
}

// Level maps a total XP amount to a level, starting at 1. Negative totals
// cannot come out of the ledger but still map to level 1.
func (c *Catalog) Level(totalXP int64) int {
	n := sort.Search(len(c.levels), func(i int) bool { return c.levels[i] > totalXP })
	if n < 1 {
		return 1
	}
	return n
}
