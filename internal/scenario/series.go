package scenario

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoadSeries reads series from a YAML file of the form:
//
//	scenarios:
//	  - name: gentle-fall
//	    readings: [350, 300, 260, 220]
func LoadSeries(path string) ([]Series, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var out []Series
	if err := k.UnmarshalWithConf("scenarios", &out, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for i, s := range out {
		if len(s.Readings) == 0 {
			return nil, fmt.Errorf("%s: scenario %d: %w", path, i, ErrEmptySeries)
		}
		if s.Name == "" {
			out[i].Name = "scenario-" + strconv.Itoa(i+1)
		}
	}
	return out, nil
}

// ParseReadings parses a comma separated list of readings such as "350,300,260".
func ParseReadings(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", part, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, ErrEmptySeries
	}
	return out, nil
}
