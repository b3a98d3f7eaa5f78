package batch

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/multidl-cli/multidl/filesystem"
)

// ManifestItem is one manifest entry: a url plus the caller's source
// hint. The hint is advisory, routing falls back to the url itself when
// the hint resolves to nothing.
type ManifestItem struct {
	SourceHint string `json:"source,omitempty" yaml:"source,omitempty"`
	URL        string `json:"url" yaml:"url"`
}

// Format identifies a manifest encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// Formats lists the accepted manifest encodings.
func Formats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatYAML}
}

// DetectFormat infers the manifest encoding from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}

	return "", fmt.Errorf("cannot tell the format of %s, pass it explicitly", filepath.Base(path))
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string, format Format) ([]ManifestItem, error) {
	data, err := filesystem.API().ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return ParseManifest(bytes.NewReader(data), format)
}

// ParseManifest parses manifest content into the ordered item list the
// dispatcher consumes. Urls are trimmed and empty entries dropped; input
// order is preserved, including json and yaml mapping key order.
func ParseManifest(r io.Reader, format Format) ([]ManifestItem, error) {
	var (
		items []ManifestItem
		err   error
	)

	switch format {
	case FormatJSON:
		items, err = parseJSON(r)
	case FormatCSV:
		items, err = parseCSV(r)
	case FormatYAML:
		items, err = parseYAML(r)
	default:
		return nil, fmt.Errorf("unknown manifest format %q", format)
	}

	if err != nil {
		return nil, err
	}

	return normalize(items), nil
}

func normalize(items []ManifestItem) []ManifestItem {
	return lo.FilterMap(items, func(item ManifestItem, _ int) (ManifestItem, bool) {
		item.SourceHint = strings.TrimSpace(item.SourceHint)
		item.URL = strings.TrimSpace(item.URL)
		return item, item.URL != ""
	})
}

// parseJSON accepts both json manifest shapes: an object mapping source
// hints to url lists and an array of {url, source} entries. The object
// form is walked token by token so key order survives.
func parseJSON(r io.Reader) ([]ManifestItem, error) {
	dec := json.NewDecoder(r)

	opening, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	switch opening {
	case json.Delim('{'):
		return parseJSONObject(dec)
	case json.Delim('['):
		return parseJSONArray(dec)
	}

	return nil, errors.New("manifest must be a json object or array")
}

func parseJSONObject(dec *json.Decoder) ([]ManifestItem, error) {
	var items []ManifestItem

	for dec.More() {
		keyToken, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}

		hint, ok := keyToken.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected manifest key %v", keyToken)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("parse manifest entry %s: %w", hint, err)
		}

		urls, err := jsonURLs(value)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %s: %w", hint, err)
		}

		for _, u := range urls {
			items = append(items, ManifestItem{SourceHint: hint, URL: u})
		}
	}

	return items, nil
}

func parseJSONArray(dec *json.Decoder) ([]ManifestItem, error) {
	var items []ManifestItem

	for dec.More() {
		var item ManifestItem
		if err := dec.Decode(&item); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}

		items = append(items, item)
	}

	return items, nil
}

// jsonURLs accepts a url list, an {items: [...]} group or a single url.
func jsonURLs(raw json.RawMessage) ([]string, error) {
	var urls []string
	if err := json.Unmarshal(raw, &urls); err == nil {
		return urls, nil
	}

	var group struct {
		Items []string `json:"items"`
	}
	if err := json.Unmarshal(raw, &group); err == nil && group.Items != nil {
		return group.Items, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}

	return nil, errors.New("value must be a url, a url list or an items group")
}

// parseCSV reads rows of a source column plus an items column holding a
// comma-separated url list.
func parseCSV(r io.Reader) ([]ManifestItem, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	sourceColumn, itemsColumn := -1, -1
	for n, name := range records[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "source":
			sourceColumn = n
		case "items", "items_comma_separated":
			itemsColumn = n
		}
	}

	if sourceColumn < 0 || itemsColumn < 0 {
		return nil, errors.New("manifest csv must have source and items columns")
	}

	var items []ManifestItem
	for _, record := range records[1:] {
		if len(record) <= sourceColumn || len(record) <= itemsColumn {
			continue
		}

		for _, u := range strings.Split(record[itemsColumn], ",") {
			items = append(items, ManifestItem{SourceHint: record[sourceColumn], URL: u})
		}
	}

	return items, nil
}

// parseYAML mirrors the json shapes. Mapping manifests go through the
// yaml node tree because a plain map decode would lose key order.
func parseYAML(r io.Reader) ([]ManifestItem, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}

		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	switch node.Kind {
	case yaml.MappingNode:
		return parseYAMLMapping(node)
	case yaml.SequenceNode:
		var items []ManifestItem
		if err := node.Decode(&items); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}

		return items, nil
	}

	return nil, errors.New("manifest must be a yaml mapping or sequence")
}

func parseYAMLMapping(node *yaml.Node) ([]ManifestItem, error) {
	var items []ManifestItem

	for n := 0; n+1 < len(node.Content); n += 2 {
		hint := node.Content[n].Value

		urls, err := yamlURLs(node.Content[n+1])
		if err != nil {
			return nil, fmt.Errorf("manifest entry %s: %w", hint, err)
		}

		for _, u := range urls {
			items = append(items, ManifestItem{SourceHint: hint, URL: u})
		}
	}

	return items, nil
}

func yamlURLs(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		var urls []string
		if err := node.Decode(&urls); err != nil {
			return nil, err
		}

		return urls, nil
	case yaml.MappingNode:
		var group struct {
			Items []string `yaml:"items"`
		}
		if err := node.Decode(&group); err != nil {
			return nil, err
		}

		return group.Items, nil
	}

	return nil, errors.New("value must be a url, a url list or an items group")
}
