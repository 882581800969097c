package classtree

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Device maps a responsive-breakpoint prefix to a label and a sort priority.
type Device struct {
	Prefix   string `json:"prefix"`
	Label    string `json:"label"`
	Priority int    `json:"priority"`
}

// Devices is an ordered descriptor table. Order matters: Describe joins
// labels in table order and Priority uses the first match.
type Devices []Device

// DefaultDevices is the built-in phone/tablet/laptop/desktop/wide table.
func DefaultDevices() Devices {
	return Devices{
		{Prefix: "ph", Label: "Phone", Priority: 1},
		{Prefix: "tb", Label: "Tablet", Priority: 2},
		{Prefix: "lp", Label: "Laptop", Priority: 3},
		{Prefix: "dk", Label: "Desktop", Priority: 4},
		{Prefix: "wd", Label: "Wide", Priority: 5},
	}
}

// Describe returns the space-joined labels of every descriptor whose prefix
// occurs anywhere in name.
func (d Devices) Describe(name string) string {
	var labels []string
	for _, dev := range d {
		if dev.Prefix != "" && strings.Contains(name, dev.Prefix) {
			labels = append(labels, dev.Label)
		}
	}
	return strings.Join(labels, " ")
}

// Priority returns the priority of the first descriptor matching name, or 0.
func (d Devices) Priority(name string) int {
	for _, dev := range d {
		if dev.Prefix != "" && strings.Contains(name, dev.Prefix) {
			return dev.Priority
		}
	}
	return 0
}

// sortNodes orders siblings by device priority, then by collated name.
// Ties keep insertion order.
func (d Devices) sortNodes(nodes []*Node, col *collate.Collator) {
	sort.SliceStable(nodes, func(i, j int) bool {
		pi, pj := d.Priority(nodes[i].Name), d.Priority(nodes[j].Name)
		if pi != pj {
			return pi < pj
		}
		return col.CompareString(nodes[i].Name, nodes[j].Name) < 0
	})
	for _, n := range nodes {
		if len(n.Children) > 0 {
			d.sortNodes(n.Children, col)
		}
	}
}

func newCollator() *collate.Collator {
	return collate.New(language.Und)
}
