package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/raffleapp/registration/internal/districts"
)

// linkFile is the seeder input:
//
//	links:
//	  - district: Левашинский район
//	    link: https://t.me/levashi
type linkFile struct {
	Links []linkRow `yaml:"links"`
}

type linkRow struct {
	District string `yaml:"district"`
	Link     string `yaml:"link"`
}

func parseLinks(data []byte, reg *districts.Registry) ([]linkRow, error) {
	var f linkFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	if len(f.Links) == 0 {
		return nil, errors.New("no links in file")
	}

	var errs []error
	seen := make(map[string]bool, len(f.Links))
	rows := make([]linkRow, 0, len(f.Links))
	for i, row := range f.Links {
		row.District = strings.TrimSpace(row.District)
		row.Link = strings.TrimSpace(row.Link)

		switch {
		case !reg.Contains(row.District):
			errs = append(errs, fmt.Errorf("row %d: unknown district %q", i+1, row.District))
			continue
		case seen[row.District]:
			errs = append(errs, fmt.Errorf("row %d: duplicate district %q", i+1, row.District))
			continue
		}
		if err := validateURL(row.Link); err != nil {
			errs = append(errs, fmt.Errorf("row %d (%s): %w", i+1, row.District, err))
			continue
		}
		seen[row.District] = true
		rows = append(rows, row)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return rows, nil
}

func validateURL(s string) error {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return fmt.Errorf("invalid link %q", s)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("link %q must be http or https", s)
	}
	if u.Host == "" {
		return fmt.Errorf("link %q has no host", s)
	}
	return nil
}
