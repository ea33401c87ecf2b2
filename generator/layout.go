// Package generator builds Brick building models from a small layout
// description: floors, air handlers with the VAV boxes they feed, and an
// optional chiller. Output is Turtle that the graph store loads directly.
package generator

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/buildsys/brick-api/brick"
	"github.com/buildsys/brick-api/errors"
)

// Layout describes one building. JSON layouts decode too, since YAML is a
// superset of JSON.
type Layout struct {
	BuildingName string   `yaml:"building_name"`
	Area         int      `yaml:"area"`
	Floors       []string `yaml:"floors"`
	AHUs         []AHU    `yaml:"ahus"`
	Chiller      bool     `yaml:"chiller"`
}

// AHU is an air handler and the VAV boxes it feeds.
type AHU struct {
	ID        string   `yaml:"id"`
	FeedsVAVs []string `yaml:"feeds_vavs"`
	FedBy     string   `yaml:"fed_by"`
	// Floor places the AHU's rooms. When empty each room is matched to a
	// floor by its number.
	Floor string `yaml:"floor"`
}

// LoadLayout reads and validates a layout file.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read layout %s", path)
	}
	return ParseLayout(data)
}

// ParseLayout decodes and validates layout YAML or JSON.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "parse layout: %v", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate checks that every name becomes a usable IRI local part.
func (l *Layout) Validate() error {
	if err := brick.ValidateID("building", l.BuildingName); err != nil {
		return err
	}
	if len(l.Floors) == 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "layout has no floors")
	}
	floors := map[string]bool{}
	for _, f := range l.Floors {
		if err := brick.ValidateID("floor", f); err != nil {
			return err
		}
		floors[f] = true
	}
	if l.Area < 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "negative area %d", l.Area)
	}
	for _, ahu := range l.AHUs {
		if err := brick.ValidateID("ahu", ahu.ID); err != nil {
			return err
		}
		if ahu.FedBy != "" {
			if err := brick.ValidateID("fed_by", ahu.FedBy); err != nil {
				return err
			}
		}
		if ahu.Floor != "" && !floors[ahu.Floor] {
			return errors.Wrapf(errors.ErrInvalidConfig, "AHU%s: unknown floor %q", ahu.ID, ahu.Floor)
		}
		for _, vav := range ahu.FeedsVAVs {
			if err := brick.ValidateID("vav", vav); err != nil {
				return err
			}
			if roomID(vav) == "" {
				return errors.Wrapf(errors.ErrInvalidConfig, "VAV %q names no room", vav)
			}
		}
	}
	return nil
}

// roomID is the room a VAV serves: its id without the VAVRM marker.
func roomID(vav string) string {
	return strings.ReplaceAll(vav, "VAVRM", "")
}

// floorFor places a room. The AHU's floor wins when set. Otherwise the
// room number minus its last two digits must name a floor exactly (101 is
// on floor 1, 1012 on floor 10); failing that the longest floor number
// prefixing the room number is used, then the top floor.
func (l *Layout) floorFor(ahu AHU, room string) string {
	if ahu.Floor != "" {
		return ahu.Floor
	}
	digits := strings.TrimLeftFunc(room, func(r rune) bool { return !isDigit(r) })
	if end := strings.IndexFunc(digits, func(r rune) bool { return !isDigit(r) }); end >= 0 {
		digits = digits[:end]
	}
	if len(digits) > 2 {
		want := digits[:len(digits)-2]
		for _, f := range l.Floors {
			if f == want {
				return f
			}
		}
	}
	best := ""
	for _, f := range l.Floors {
		if digits != "" && strings.HasPrefix(digits, f) && len(f) > len(best) {
			best = f
		}
	}
	if best == "" {
		return l.Floors[len(l.Floors)-1]
	}
	return best
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
