package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mmynk/cartsaver/internal/models"
)

// listFile is the YAML document read by seed and optimize.
//
//	list_id: weekly
//	location: {latitude: 47.61, longitude: -122.33}
//	items:
//	  - name: Whole milk
//	    quantity: 1
//	    price: 4.29
//	    store: Safeway
//	constraints:
//	  Whole milk: {store_locked: true}
//
// Constraint keys may be item IDs or item names.
type listFile struct {
	ListID      string                           `yaml:"list_id"`
	Location    *models.Location                 `yaml:"location"`
	Items       []models.ShoppingItem            `yaml:"items"`
	Constraints map[string]models.ItemConstraint `yaml:"constraints"`
}

func readListFile(path string) (*listFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read list file: %w", err)
	}

	var lf listFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("failed to parse list file %s: %w", path, err)
	}
	for i := range lf.Items {
		if lf.Items[i].ListID == "" {
			lf.Items[i].ListID = lf.ListID
		}
		if lf.Items[i].Quantity == 0 {
			lf.Items[i].Quantity = 1
		}
	}
	return &lf, nil
}

// resolveConstraints rekeys constraints by item ID, matching names
// case-insensitively when the key is not an ID.
func resolveConstraints(constraints map[string]models.ItemConstraint, items []models.ShoppingItem) (map[string]models.ItemConstraint, error) {
	if len(constraints) == 0 {
		return nil, nil
	}

	byID := make(map[string]bool, len(items))
	byName := make(map[string]string, len(items))
	for _, item := range items {
		byID[item.ID] = true
		byName[strings.ToLower(item.Name)] = item.ID
	}

	resolved := make(map[string]models.ItemConstraint, len(constraints))
	for key, c := range constraints {
		switch {
		case byID[key]:
			resolved[key] = c
		case byName[strings.ToLower(key)] != "":
			resolved[byName[strings.ToLower(key)]] = c
		default:
			return nil, fmt.Errorf("constraint %q matches no item", key)
		}
	}
	return resolved, nil
}
