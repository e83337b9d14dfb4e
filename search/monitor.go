package search

import (
	"github.com/poiesic/cruisekb/core"
	"github.com/poiesic/cruisekb/storage"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(req Request)
	AfterDateValidation(window core.DateWindow)
	AfterDateFilter(candidates []string)
	AfterVectorSearch(matches []*storage.Match)
	Finish(results []*core.EnrichedResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Request)                       {}
func (n *noopMonitor) AfterDateValidation(_ core.DateWindow) {}
func (n *noopMonitor) AfterDateFilter(_ []string)            {}
func (n *noopMonitor) AfterVectorSearch(_ []*storage.Match)  {}
func (n *noopMonitor) Finish(_ []*core.EnrichedResult)       {}
