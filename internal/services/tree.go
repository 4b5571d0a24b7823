package services

import (
	"sort"

	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
)

type ItemView struct {
	*types.SectionItem
	Configs map[string]string `json:"configs"`
}

type SectionNode struct {
	*types.Section
	Items    []*ItemView    `json:"items"`
	Children []*SectionNode `json:"children"`
}

// buildTree assembles the section forest of one activity. Sections whose
// parent is missing are treated as roots. Siblings keep position order.
func buildTree(sections []*types.Section, items []*types.SectionItem, configs []*types.ItemConfig) []*SectionNode {
	cfgByItem := map[int64]map[string]string{}
	for _, c := range configs {
		if cfgByItem[c.ItemID] == nil {
			cfgByItem[c.ItemID] = map[string]string{}
		}
		cfgByItem[c.ItemID][c.Name] = c.Value
	}

	nodes := make(map[int64]*SectionNode, len(sections))
	for _, s := range sections {
		nodes[s.ID] = &SectionNode{Section: s, Items: []*ItemView{}, Children: []*SectionNode{}}
	}
	for _, it := range items {
		n := nodes[it.SectionID]
		if n == nil {
			continue
		}
		cfg := cfgByItem[it.ID]
		if cfg == nil {
			cfg = map[string]string{}
		}
		n.Items = append(n.Items, &ItemView{SectionItem: it, Configs: cfg})
	}

	roots := []*SectionNode{}
	for _, s := range sections {
		n := nodes[s.ID]
		if s.ParentSection != nil {
			if p := nodes[*s.ParentSection]; p != nil && p != n {
				p.Children = append(p.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	var sortNodes func(list []*SectionNode, seen map[int64]bool)
	sortNodes = func(list []*SectionNode, seen map[int64]bool) {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Position != list[j].Position {
				return list[i].Position < list[j].Position
			}
			return list[i].ID < list[j].ID
		})
		for _, n := range list {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			sort.SliceStable(n.Items, func(i, j int) bool {
				if n.Items[i].Position != n.Items[j].Position {
					return n.Items[i].Position < n.Items[j].Position
				}
				return n.Items[i].ID < n.Items[j].ID
			})
			sortNodes(n.Children, seen)
		}
	}
	sortNodes(roots, map[int64]bool{})
	return roots
}

// subtreeIDs returns rootID and every descendant of it.
func subtreeIDs(sections []*types.Section, rootID int64) []int64 {
	children := map[int64][]int64{}
	for _, s := range sections {
		if s.ParentSection != nil {
			children[*s.ParentSection] = append(children[*s.ParentSection], s.ID)
		}
	}
	out := []int64{}
	seen := map[int64]bool{}
	stack := []int64{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		stack = append(stack, children[id]...)
	}
	return out
}

// isDescendant reports whether candidate sits in rootID's subtree.
func isDescendant(sections []*types.Section, rootID, candidate int64) bool {
	for _, id := range subtreeIDs(sections, rootID) {
		if id == candidate {
			return true
		}
	}
	return false
}
