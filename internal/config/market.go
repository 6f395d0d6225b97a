package config

import (
	"bytes"
	"fmt"
	"os"

	"creatorx/internal/market"

	"gopkg.in/yaml.v3"
)

// LoadMarketParams returns the default pricing parameters overlaid with the
// YAML document at path. An empty path yields the defaults. Keys absent from
// the file keep their default values.
func LoadMarketParams(path string) (market.Params, error) {
	params := market.DefaultParams()
	if path == "" {
		return params, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseMarketParams(data)
}

// ParseMarketParams decodes a YAML overlay onto the default parameters.
func ParseMarketParams(data []byte) (market.Params, error) {
	params := market.DefaultParams()
	if len(bytes.TrimSpace(data)) == 0 {
		return params, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&params); err != nil {
		return params, fmt.Errorf("decode market params: %w", err)
	}
	if err := params.Validate(); err != nil {
		return params, fmt.Errorf("invalid market params: %w", err)
	}
	return params, nil
}
