package catchment

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/catchment-cli/internal/model"
)

// nearestKeyword asks for the computed nearest hub, i.e. no override.
const nearestKeyword = "nearest"

// ParseOverride interprets a transfer column value: "nearest" or blank
// means no override, "none" means no transfer, anything else is a hub id.
func ParseOverride(value string) (Override, bool) {
	v := strings.TrimSpace(value)
	switch strings.ToLower(v) {
	case "", nearestKeyword:
		return Override{}, false
	case model.NoTransfer:
		return Override{None: true}, true
	default:
		return Override{HubID: v}, true
	}
}

// overrideFile is the YAML shape:
//
//	transfers:
//	  TR13HU: none
//	  PL68DH: EX25DW
type overrideFile struct {
	Transfers map[string]string `yaml:"transfers"`
}

// LoadOverrides reads transfer overrides from a YAML file.
func LoadOverrides(path string) (map[string]Override, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "catchment: open overrides")
	}
	defer f.Close() //nolint:errcheck
	return DecodeOverrides(f)
}

// DecodeOverrides reads transfer overrides in YAML form from r.
func DecodeOverrides(r io.Reader) (map[string]Override, error) {
	var file overrideFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if err == io.EOF {
			return map[string]Override{}, nil
		}
		return nil, eris.Wrap(err, "catchment: decode overrides")
	}
	out := make(map[string]Override, len(file.Transfers))
	for unit, value := range file.Transfers {
		if ov, ok := ParseOverride(value); ok {
			out[strings.TrimSpace(unit)] = ov
		}
	}
	return out, nil
}

// MergeOverrides layers later maps over earlier ones.
func MergeOverrides(layers ...map[string]Override) map[string]Override {
	out := make(map[string]Override)
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}

func sortedKeys(m map[string]Override) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
