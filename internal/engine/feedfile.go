package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseFeed decodes a YAML price file: a map from commodity name to quote.
//
//	Oil:
//	  current_price: 80
//	Iron Ore:
//	  scarcity_factor: 1.5
func ParseFeed(data []byte) (MapFeed, error) {
	feed := make(MapFeed)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&feed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse price feed: %w", err)
	}
	return feed, nil
}

// LoadFeedFile reads a YAML price file from disk.
func LoadFeedFile(path string) (MapFeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read price feed: %w", err)
	}
	return ParseFeed(data)
}
