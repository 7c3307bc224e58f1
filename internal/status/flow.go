package status

import "github.com/andre-martiini/diretoria-adm-bsf/internal/model"

// FlowLink counts movements from one unit to another.
type FlowLink struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Value  int `json:"value"`
}

// FlowGraph is the unit-to-unit movement graph across a set of items, in node-index form.
type FlowGraph struct {
	Nodes []string   `json:"nodes"`
	Links []FlowLink `json:"links"`
}

// Flow aggregates the movements of every linked case in items. Movements are walked
// oldest first; self-moves and moves with an empty unit are ignored. Nodes and links are
// ordered by first appearance.
func Flow(items []model.PlanItem) FlowGraph {
	g := FlowGraph{Nodes: []string{}, Links: []FlowLink{}}
	nodeIdx := map[string]int{}
	linkIdx := map[[2]int]int{}

	node := func(name string) int {
		if i, ok := nodeIdx[name]; ok {
			return i
		}
		nodeIdx[name] = len(g.Nodes)
		g.Nodes = append(g.Nodes, name)
		return nodeIdx[name]
	}

	for _, it := range items {
		if it.CaseData == nil {
			continue
		}
		movs := it.CaseData.Movements
		for i := len(movs) - 1; i >= 0; i-- {
			m := movs[i]
			if m.OriginUnit == "" || m.DestinationUnit == "" || m.OriginUnit == m.DestinationUnit {
				continue
			}
			key := [2]int{node(m.OriginUnit), node(m.DestinationUnit)}
			if li, ok := linkIdx[key]; ok {
				g.Links[li].Value++
				continue
			}
			linkIdx[key] = len(g.Links)
			g.Links = append(g.Links, FlowLink{Source: key[0], Target: key[1], Value: 1})
		}
	}
	return g
}
