package enrich

import "github.com/mailpane/conversations/internal/model"

// dedupe collapses the physical folder copies of each logical message
// down to one representative. Groups keep their first-occurrence order;
// the final date sort runs afterwards.
func dedupe(msgs []model.EnrichedMessage) []model.EnrichedMessage {
	order := make([]string, 0, len(msgs))
	groups := make(map[string][]model.EnrichedMessage, len(msgs))
	for _, m := range msgs {
		key := m.LogicalID()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}

	out := make([]model.EnrichedMessage, 0, len(order))
	for _, key := range order {
		out = append(out, pickRepresentative(groups[key]))
	}
	return out
}

// pickRepresentative chooses which folder copy stands in for a logical
// message: the copy the user is already looking at, then inbox, sent
// and archives, then first in input order.
func pickRepresentative(group []model.EnrichedMessage) model.EnrichedMessage {
	if len(group) == 1 {
		return group[0]
	}

	rules := []func(model.EnrichedMessage) bool{
		func(m model.EnrichedMessage) bool { return m.FolderName == "" },
		func(m model.EnrichedMessage) bool { return m.IsInbox },
		func(m model.EnrichedMessage) bool { return m.IsSent },
		func(m model.EnrichedMessage) bool { return m.IsArchives },
	}
	for _, matches := range rules {
		for _, m := range group {
			if matches(m) {
				return m
			}
		}
	}
	return group[0]
}
