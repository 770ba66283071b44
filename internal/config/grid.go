package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Grid maps a dotted config path, e.g. rebalance.top_k, to the values a
// parameter search should try
type Grid map[string][]any

// Variant is one point of a grid applied to a base config
type Variant struct {
	Params map[string]any
	Config *Config
}

func LoadGrid(path string) (Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grid %s: %w", path, err)
	}
	return ParseGrid(data)
}

func ParseGrid(data []byte) (Grid, error) {
	grid := Grid{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&grid); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode grid: %w", err)
	}
	return grid, nil
}

// Variants expands the grid into every combination over base. paths are
// walked in sorted order with the last path varying fastest, and every
// variant is validated before any is returned
func (g Grid) Variants(base *Config) ([]Variant, error) {
	if len(g) == 0 {
		return nil, invalid("grid", "needs at least one parameter")
	}
	paths := make([]string, 0, len(g))
	for path, values := range g {
		if len(values) == 0 {
			return nil, invalid(path, "needs at least one value")
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	combos := []map[string]any{{}}
	for _, path := range paths {
		next := make([]map[string]any, 0, len(combos)*len(g[path]))
		for _, combo := range combos {
			for _, value := range g[path] {
				params := make(map[string]any, len(combo)+1)
				for k, v := range combo {
					params[k] = v
				}
				params[path] = value
				next = append(next, params)
			}
		}
		combos = next
	}

	out := make([]Variant, 0, len(combos))
	for _, params := range combos {
		cfg, err := withOverrides(base, params)
		if err != nil {
			return nil, err
		}
		out = append(out, Variant{Params: params, Config: cfg})
	}
	return out, nil
}

// withOverrides round trips base through its json document so the
// overridden config goes through the same decoding and validation as an
// api request
func withOverrides(base *Config, params map[string]any) (*Config, error) {
	body, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for path, value := range params {
		if err := setPath(doc, strings.Split(path, "."), value); err != nil {
			return nil, invalid(path, "%v", err)
		}
	}

	body, err = json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return ParseJSON(body)
}

func setPath(doc map[string]any, keys []string, value any) error {
	for _, key := range keys[:len(keys)-1] {
		next, ok := doc[key].(map[string]any)
		if !ok {
			return fmt.Errorf("%s is not a config section", key)
		}
		doc = next
	}
	last := keys[len(keys)-1]
	if _, ok := doc[last]; !ok {
		return fmt.Errorf("unknown field %s", last)
	}
	doc[last] = value
	return nil
}
