package service

import (
	"sort"

	"github.com/claimflow/backend/internal/models"
	"github.com/claimflow/backend/internal/utils"
)

type AgentLoad struct {
	Agent string `json:"agent"`
	Open  int    `json:"open"`
}

// AgentLoads counts undecided appeals per roster agent. Agents outside the
// roster are ignored.
func AgentLoads(roster []string, appeals []models.Appeal) []AgentLoad {
	open := make(map[string]int, len(roster))
	for _, a := range appeals {
		if a.FinalDecisionDate == nil {
			open[a.AssignedAgent]++
		}
	}
	loads := make([]AgentLoad, 0, len(roster))
	for _, name := range roster {
		loads = append(loads, AgentLoad{Agent: name, Open: open[name]})
	}
	return loads
}

// PickAgent returns the least-loaded agent. Ties are broken by hashing the
// appeal id so the same appeal always lands on the same agent. The second
// return value is the tied candidate set.
func PickAgent(appealID string, loads []AgentLoad) (AgentLoad, []AgentLoad) {
	if len(loads) == 0 {
		return AgentLoad{}, nil
	}
	sorted := append([]AgentLoad(nil), loads...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Open == sorted[j].Open {
			return sorted[i].Agent < sorted[j].Agent
		}
		return sorted[i].Open < sorted[j].Open
	})

	n := 1
	for n < len(sorted) && sorted[n].Open == sorted[0].Open {
		n++
	}
	tied := sorted[:n]
	idx := utils.StableIndex(appealID, len(tied))
	return tied[idx], tied
}
