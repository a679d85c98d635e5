package index

import (
	"context"

	"github.com/engramhq/engram/internal/store"
)

// SupersessionChain back-walks from rootID via supersedes[0] links (first
// parent only) to the earliest ancestor, then forward-walks via the
// supersededBy fan-out to produce the chain oldest→newest (§4.5). A
// visited-set cycle guard stops traversal on any revisit in either
// direction (§9 "Supersession cycles").
func SupersessionChain(ctx context.Context, rootID string, storage store.Store) ([]string, error) {
	earliest, err := walkToEarliestAncestor(ctx, rootID, storage)
	if err != nil {
		return nil, err
	}
	return walkForwardFromEarliest(ctx, earliest, storage)
}

func walkToEarliestAncestor(ctx context.Context, rootID string, storage store.Store) (string, error) {
	visited := map[string]struct{}{rootID: {}}
	cur := rootID

	for {
		ep, err := storage.GetEpisode(ctx, cur)
		if err != nil {
			return "", err
		}
		if ep == nil || len(ep.Supersedes) == 0 {
			return cur, nil
		}
		parent := ep.Supersedes[0]
		if _, seen := visited[parent]; seen {
			return cur, nil
		}
		visited[parent] = struct{}{}
		cur = parent
	}
}

func walkForwardFromEarliest(ctx context.Context, earliest string, storage store.Store) ([]string, error) {
	visited := map[string]struct{}{earliest: {}}
	order := []string{earliest}
	queue := []string{earliest}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		ep, err := storage.GetEpisode(ctx, id)
		if err != nil {
			return nil, err
		}
		if ep == nil {
			continue
		}
		for _, next := range ep.SupersededBy {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			order = append(order, next)
			queue = append(queue, next)
		}
	}

	return order, nil
}

// WouldCreateCycle reports whether recording newID as superseding
// candidateParentID would create a cycle in the supersession graph: walking
// candidateParentID's ancestors via supersedes (the direction a chain
// already points), does newID appear (§9)? If newID already precedes
// candidateParentID in the chain, having it also supersede
// candidateParentID would close a loop. Callers reject the supersedes edge
// when this is true.
func WouldCreateCycle(ctx context.Context, newID, candidateParentID string, storage store.Store) (bool, error) {
	visited := map[string]struct{}{}
	queue := []string{candidateParentID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == newID {
			return true, nil
		}
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}

		ep, err := storage.GetEpisode(ctx, id)
		if err != nil {
			return false, err
		}
		if ep == nil {
			continue
		}
		queue = append(queue, ep.Supersedes...)
	}

	return false, nil
}
