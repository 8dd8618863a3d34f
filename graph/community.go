// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graph

import (
	"slices"

	"github.com/poiesic/tessera/core"
)

// defaultPropagationRounds bounds label propagation; graphs that have not
// converged by then are close enough for summarization grouping.
const defaultPropagationRounds = 20

// PropagateLabels clusters nodes by synchronous label propagation over
// the undirected adjacency. Nodes are visited in ascending ID order and ties
// resolve to the smallest label, so the outcome is deterministic for a given
// adjacency. Isolated nodes form singleton communities.
func PropagateLabels(adjacency map[core.ID][]core.ID, maxRounds int) []Community {
	if maxRounds < 1 {
		maxRounds = defaultPropagationRounds
	}

	nodes := make([]core.ID, 0, len(adjacency))
	for node := range adjacency {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)

	labels := make(map[core.ID]core.ID, len(nodes))
	for _, node := range nodes {
		labels[node] = node
	}

	for round := 0; round < maxRounds; round++ {
		changed := false
		for _, node := range nodes {
			neighbors := adjacency[node]
			if len(neighbors) == 0 {
				continue
			}

			counts := make(map[core.ID]int, len(neighbors))
			for _, neighbor := range neighbors {
				counts[labels[neighbor]]++
			}

			best := labels[node]
			bestCount := 0
			for label, count := range counts {
				if count > bestCount || (count == bestCount && label < best) {
					best = label
					bestCount = count
				}
			}

			if best != labels[node] {
				labels[node] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	// Group members and canonicalize: each community is labeled by its
	// smallest member ID.
	groups := make(map[core.ID][]core.ID)
	for _, node := range nodes {
		label := labels[node]
		groups[label] = append(groups[label], node)
	}

	communities := make([]Community, 0, len(groups))
	for _, members := range groups {
		slices.Sort(members)
		communities = append(communities, Community{
			Label:     members[0],
			EntityIds: members,
		})
	}
	slices.SortFunc(communities, func(a, b Community) int {
		switch {
		case a.Label < b.Label:
			return -1
		case a.Label > b.Label:
			return 1
		default:
			return 0
		}
	})
	return communities
}
