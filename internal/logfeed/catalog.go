// v0
// internal/logfeed/catalog.go

// Package logfeed produces the synthetic activity log shown on the logs page:
// random entries drawn from a message catalog, kept in a bounded feed that
// occasionally receives a fresh entry.
package logfeed

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Category groups log entries on the logs page.
type Category string

const (
	Feeding Category = "feeding"
	Alert   Category = "alert"
	Refill  Category = "refill"
	System  Category = "system"
)

// Categories lists the categories in catalog order.
var Categories = []Category{Feeding, Alert, Refill, System}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Catalog maps each category to its message templates.
type Catalog map[Category][]string

// DefaultCatalog returns the built-in message templates.
func DefaultCatalog() Catalog {
	return Catalog{
		Feeding: {
			"Automatic feeding cycle completed",
			"Manual feeding activated",
			"Feed dispenser activated",
			"Feeding schedule updated",
		},
		Alert: {
			"Temperature above normal range",
			"Humidity levels critical",
			"Water level low",
			"Feed level critically low",
			"System maintenance required",
		},
		Refill: {
			"Water tank refilled",
			"Feed hopper refilled",
			"Water system maintenance completed",
			"Feed system cleaned",
		},
		System: {
			"Cooling system activated",
			"Ventilation system started",
			"System backup completed",
			"Sensor calibration completed",
			"Daily health check passed",
		},
	}
}

// ErrEmptyCatalog is returned when a catalog has no usable category.
var ErrEmptyCatalog = errors.New("logfeed: catalog has no messages")

// Validate rejects unknown categories and empty catalogs. Categories with no
// messages are dropped.
func (c Catalog) Validate() error {
	usable := 0
	for cat, msgs := range c {
		if !cat.Valid() {
			return fmt.Errorf("logfeed: unknown category %q", cat)
		}
		if len(msgs) > 0 {
			usable++
		}
	}
	if usable == 0 {
		return ErrEmptyCatalog
	}
	return nil
}

// categories returns the categories that have at least one message, in a
// stable order so a seeded generator is reproducible.
func (c Catalog) categories() []Category {
	out := make([]Category, 0, len(c))
	for _, cat := range Categories {
		if len(c[cat]) > 0 {
			out = append(out, cat)
		}
	}
	return out
}

// LoadCatalog reads a YAML document of the form
//
//	feeding:
//	  - Automatic feeding cycle completed
//	alert:
//	  - Water level low
//
// An empty path returns the default catalog.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read log catalog: %w", err)
	}
	var doc map[string][]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse log catalog %s: %w", path, err)
	}
	cat := make(Catalog, len(doc))
	for k, msgs := range doc {
		cat[Category(k)] = msgs
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}
