package tui

import (
	"strings"
)

// applyFilter filters items by the header filter and the search query
func (m *MainModel) applyFilter() {
	filter := m.header.GetFilter()
	query := strings.ToLower(strings.TrimSpace(m.searchQuery))

	filtered := make([]Item, 0, len(m.items))
	for _, item := range m.items {
		switch filter {
		case FilterFailing:
			if !item.Failing() {
				continue
			}
		case FilterPassing:
			if item.Failing() {
				continue
			}
		}
		if query != "" && !item.Matches(query) {
			continue
		}
		filtered = append(filtered, item)
	}

	m.listView.SetItems(filtered)
	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		m.updateDetailContent(selectedItem)
	} else {
		m.detailViewport.SetContent("")
	}
}
