package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Locators are the CSS selectors that tie the filter to the host page
type Locators struct {
	// FilterGroup is the anchor the panel is inserted after.
	FilterGroup string `yaml:"filter_group"`
	// PanelFallbacks receive the panel when FilterGroup is missing.
	PanelFallbacks []string `yaml:"panel_fallbacks"`
	Listings       string   `yaml:"listings"`
	// Containers are tried in order for the element to observe.
	Containers []string `yaml:"containers"`
	ItemMarker string   `yaml:"item_marker"`
	FloorSpec  string   `yaml:"floor_spec"`
}

// DefaultLocators matches the listing page layout at the time of writing
func DefaultLocators() Locators {
	return Locators{
		FilterGroup:    "#complex_etc_type_filter",
		PanelFallbacks: []string{".filter_area", ".complex_filter_wrap", ".filter_wrap", "#wrap", "body"},
		Listings:       ".item_list .item",
		Containers: []string{
			"#listContents1 > div > div > div:nth-child(1)",
			".item_list",
			"#listContents1",
		},
		ItemMarker: ".item",
		FloorSpec:  ".spec",
	}
}

// LoadLocators reads a YAML file over the defaults. A missing file yields
// the defaults; fields absent from the file keep their default.
func LoadLocators(path string) (Locators, error) {
	loc := DefaultLocators()
	if path == "" {
		return loc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return loc, nil
		}
		return loc, fmt.Errorf("failed to read locators file: %w", err)
	}

	if err := yaml.Unmarshal(data, &loc); err != nil {
		return DefaultLocators(), fmt.Errorf("failed to parse locators file %s: %w", path, err)
	}
	if err := loc.Validate(); err != nil {
		return DefaultLocators(), fmt.Errorf("invalid locators file %s: %w", path, err)
	}
	return loc, nil
}

// Validate reports missing required selectors
func (l Locators) Validate() error {
	var errs []error
	if l.Listings == "" {
		errs = append(errs, errors.New("listings is empty"))
	}
	if l.ItemMarker == "" {
		errs = append(errs, errors.New("item_marker is empty"))
	}
	if l.FloorSpec == "" {
		errs = append(errs, errors.New("floor_spec is empty"))
	}
	if len(l.Containers) == 0 {
		errs = append(errs, errors.New("containers is empty"))
	}
	return errors.Join(errs...)
}
