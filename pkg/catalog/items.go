package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/handle"
)

// Item is one entry of a per-item list (a switch case, a branch, a status code).
type Item struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// ItemList describes where a kind keeps its items and which handle each one owns.
type ItemList struct {
	Key    string // payload key holding the list
	Noun   string // singular, for messages
	Handle func(id string) string

	next func(items []Item) string
}

var (
	caseList = &ItemList{Key: "cases", Noun: "case", Handle: handle.Case,
		next: sequentialID("case-")}
	branchList = &ItemList{Key: "branches", Noun: "branch", Handle: handle.Branch,
		next: sequentialID("branch-")}
	statusList = &ItemList{Key: "statusCodes", Noun: "status code", Handle: handle.Status,
		next: nextStatusCode}
)

// Read decodes the item list from a node payload. Entries may be objects with
// an "id" field or bare strings; entries without an id are skipped.
func (l *ItemList) Read(data map[string]any) []Item {
	raw, ok := data[l.Key]
	if !ok {
		return nil
	}
	var entries []any
	switch v := raw.(type) {
	case []any:
		entries = v
	case []map[string]any:
		for _, m := range v {
			entries = append(entries, m)
		}
	case []string:
		for _, s := range v {
			entries = append(entries, s)
		}
	default:
		return nil
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		switch v := e.(type) {
		case string:
			if v != "" {
				items = append(items, Item{ID: v, Label: v})
			}
		case map[string]any:
			id := scalarString(v["id"])
			if id == "" {
				continue
			}
			label, _ := v["label"].(string)
			items = append(items, Item{ID: id, Label: label})
		}
	}
	return items
}

// Write returns a copy of data with the list replaced by items.
func (l *ItemList) Write(data map[string]any, items []Item) map[string]any {
	out := flow.CopyData(data)
	if out == nil {
		out = map[string]any{}
	}
	list := make([]any, len(items))
	for i, it := range items {
		m := map[string]any{"id": it.ID}
		if it.Label != "" {
			m["label"] = it.Label
		}
		list[i] = m
	}
	out[l.Key] = list
	return out
}

// NextID picks an id for a new item that collides with none of items.
func (l *ItemList) NextID(items []Item) string {
	return l.next(items)
}

// Owner returns the item whose handle is h, if any.
func (l *ItemList) Owner(items []Item, h string) (Item, bool) {
	h = handle.Normalize(h)
	for _, it := range items {
		if l.Handle(it.ID) == h {
			return it, true
		}
	}
	return Item{}, false
}

// ItemsOf returns the item list and its descriptor for a node, or false if
// the node's kind has no items.
func ItemsOf(n flow.Node) (*ItemList, []Item, bool) {
	p, ok := profiles[n.Type]
	if !ok || p.Items == nil {
		return nil, nil, false
	}
	return p.Items, p.Items.Read(n.Data), true
}

func sequentialID(prefix string) func([]Item) string {
	return func(items []Item) string {
		used := make(map[string]bool, len(items))
		highest := 0
		for _, it := range items {
			used[it.ID] = true
			if n, err := strconv.Atoi(strings.TrimPrefix(it.ID, prefix)); err == nil && strings.HasPrefix(it.ID, prefix) && n > highest {
				highest = n
			}
		}
		for n := highest + 1; ; n++ {
			id := prefix + strconv.Itoa(n)
			if !used[id] {
				return id
			}
		}
	}
}

var commonStatusCodes = []int{200, 201, 204, 400, 401, 403, 404, 500}

func nextStatusCode(items []Item) string {
	used := make(map[string]bool, len(items))
	highest := 0
	for _, it := range items {
		used[it.ID] = true
		if n, err := strconv.Atoi(it.ID); err == nil && n > highest {
			highest = n
		}
	}
	for _, c := range commonStatusCodes {
		if id := strconv.Itoa(c); !used[id] {
			return id
		}
	}
	return strconv.Itoa(highest + 1)
}

func itemSeed(ids ...string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = map[string]any{"id": id, "label": id}
	}
	return out
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
