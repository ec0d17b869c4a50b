// Package categories holds the MyCareersFuture job category catalog used to
// partition listing queries below the upstream pagination ceiling.
//
// The catalog is hardcoded. If the upstream taxonomy gains a category that is
// missing here, jobs filed only under it are never observed and a "complete"
// crawl will deactivate them. There is no automatic detection of that drift.
package categories

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknown is returned when a category name is not in the catalog.
var ErrUnknown = errors.New("unknown category")

var catalog = []string{
	"Accounting / Auditing / Taxation",
	"Admin / Secretarial",
	"Advertising / Media",
	"Architecture / Interior Design",
	"Banking and Finance",
	"Building and Construction",
	"Consulting",
	"Customer Service",
	"Design",
	"Education and Training",
	"Engineering",
	"Entertainment",
	"Environment / Health",
	"Events / Promotions",
	"F&B",
	"General Management",
	"General Work",
	"Healthcare / Pharmaceutical",
	"Hospitality",
	"Human Resources",
	"Information Technology",
	"Insurance",
	"Legal",
	"Logistics / Supply Chain",
	"Manufacturing",
	"Marketing / Public Relations",
	"Medical / Therapy Services",
	"Others",
	"Personal Care / Beauty",
	"Precision Engineering",
	"Professional Services",
	"Public / Civil Service",
	"Purchasing / Merchandising",
	"Real Estate / Property Management",
	"Repair and Maintenance",
	"Risk Management",
	"Sales / Retail",
	"Sciences / Laboratory / R&D",
	"Security and Investigation",
	"Social Services",
	"Telecommunications",
	"Travel / Tourism",
	"Wholesale Trade",
}

// All returns a copy of the catalog in its canonical order.
func All() []string {
	out := make([]string, len(catalog))
	copy(out, catalog)
	return out
}

// Validate returns the canonical spelling of name (case-insensitive match).
func Validate(name string) (string, error) {
	name = strings.TrimSpace(name)
	for _, c := range catalog {
		if strings.EqualFold(c, name) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknown, name)
}

// Parse splits a comma-separated list and validates every entry.
// An empty input yields a nil slice, meaning "all categories".
func Parse(csv string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := Validate(part)
		if err != nil {
			return nil, err
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// Find returns catalog entries containing term, case-insensitive.
func Find(term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []string
	for _, c := range catalog {
		if strings.Contains(strings.ToLower(c), term) {
			out = append(out, c)
		}
	}
	return out
}
