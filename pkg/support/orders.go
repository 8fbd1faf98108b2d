// Package support holds the datasets behind the customer support tools:
// order fixtures, tickets, and pending password resets.
package support

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed orders.yaml
var defaultOrdersYAML []byte

// ErrOrderNotFound is returned when no fixture matches an order id.
var ErrOrderNotFound = errors.New("order not found")

type Order struct {
	ID      string `yaml:"id" json:"order_id"`
	Status  string `yaml:"status" json:"status"`
	ETADays int    `yaml:"eta_days" json:"eta_days"`
	Items   int    `yaml:"items" json:"items"`
	Carrier string `yaml:"carrier" json:"carrier,omitempty"`
}

// ordersFile mirrors the fixture file layout.
type ordersFile struct {
	Orders []Order `yaml:"orders"`
}

// Orders is a read-only order lookup table.
type Orders struct {
	byID map[string]Order
}

// LoadOrders parses YAML fixtures from r.
func LoadOrders(r io.Reader) (*Orders, error) {
	var file ordersFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	o := &Orders{byID: make(map[string]Order, len(file.Orders))}
	for _, order := range file.Orders {
		id := NormalizeOrderID(order.ID)
		if id == "" {
			return nil, errors.New("decode orders: order without id")
		}
		if _, dup := o.byID[id]; dup {
			return nil, fmt.Errorf("decode orders: duplicate order %s", id)
		}
		order.ID = id
		order.Status = strings.ToLower(strings.TrimSpace(order.Status))
		o.byID[id] = order
	}
	return o, nil
}

// DefaultOrders returns the embedded demo fixtures.
func DefaultOrders() *Orders {
	o, err := LoadOrders(strings.NewReader(string(defaultOrdersYAML)))
	if err != nil {
		panic(err)
	}
	return o
}

// NormalizeOrderID upper-cases id and strips a leading '#'.
func NormalizeOrderID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "#")
	return strings.ToUpper(strings.TrimSpace(id))
}

// Lookup returns the order for id or ErrOrderNotFound.
func (o *Orders) Lookup(id string) (Order, error) {
	norm := NormalizeOrderID(id)
	order, ok := o.byID[norm]
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, strings.TrimSpace(id))
	}
	return order, nil
}

// IDs lists the known order ids in sorted order.
func (o *Orders) IDs() []string {
	ids := make([]string, 0, len(o.byID))
	for id := range o.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
