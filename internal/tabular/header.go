package tabular

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catchment-cli/internal/model"
)

// header maps lower-cased column names to their positions.
type header struct {
	source string
	index  map[string]int
}

func newHeader(source string, row []string) (*header, error) {
	h := &header{source: source, index: make(map[string]int, len(row))}
	for i, name := range row {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if key == "" {
			continue
		}
		if _, dup := h.index[key]; dup {
			return nil, eris.Errorf("tabular: %s: duplicate column %q", source, name)
		}
		h.index[key] = i
	}
	return h, nil
}

// find returns the position of the first alias present, or -1.
func (h *header) find(aliases ...string) int {
	for _, a := range aliases {
		if i, ok := h.index[a]; ok {
			return i
		}
	}
	return -1
}

// require is find that fails with an UnknownColumnError naming the first
// alias.
func (h *header) require(aliases ...string) (int, error) {
	if i := h.find(aliases...); i >= 0 {
		return i, nil
	}
	return -1, &model.UnknownColumnError{Column: aliases[0], Source: h.source}
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseBool accepts 0/1, true/false, yes/no and numeric strings. Blank is
// false.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "0.0", "false", "no", "n":
		return false, nil
	case "1", "1.0", "true", "yes", "y":
		return true, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false, eris.Errorf("tabular: %q is not a flag", s)
	}
	return v != 0, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
