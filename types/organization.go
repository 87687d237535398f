package types

import (
	"sort"
	"strings"
	"time"
)

// Organization is a node of the organization tree. Direction nodes are
// the top level units reported in the organizations column.
type Organization struct {
	ID        int64
	Name      string
	ParentID  int64 // 0 for roots
	Direction bool
	UpdatedAt time.Time
}

// OrganizationSet is an ordered, indexed view of the organization tree
type OrganizationSet struct {
	orgs     []Organization
	byID     map[int64]*Organization
	children map[int64][]int64
}

// NewOrganizationSet indexes a list of organizations
func NewOrganizationSet(orgs []Organization) *OrganizationSet {
	set := &OrganizationSet{
		orgs:     make([]Organization, len(orgs)),
		byID:     make(map[int64]*Organization, len(orgs)),
		children: make(map[int64][]int64),
	}

	copy(set.orgs, orgs)

	for i := range set.orgs {
		org := &set.orgs[i]
		set.byID[org.ID] = org
		if org.ParentID != 0 {
			set.children[org.ParentID] = append(set.children[org.ParentID], org.ID)
		}
	}

	return set
}

// Get returns an organization by id
func (s *OrganizationSet) Get(id int64) (*Organization, bool) {
	org, ok := s.byID[id]
	return org, ok
}

// All returns all organizations in their original order
func (s *OrganizationSet) All() []Organization {
	return s.orgs
}

// Directions returns the direction organizations sorted by name
func (s *OrganizationSet) Directions() []Organization {
	var result []Organization
	for _, org := range s.orgs {
		if org.Direction {
			result = append(result, org)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// ancestry returns the path from the root down to id. Cycles are cut.
func (s *OrganizationSet) ancestry(id int64) []*Organization {
	var path []*Organization
	seen := make(map[int64]bool)
	for cur, ok := s.byID[id]; ok && !seen[cur.ID]; cur, ok = s.byID[cur.ParentID] {
		seen[cur.ID] = true
		path = append([]*Organization{cur}, path...)
	}
	return path
}

// FullName returns the slash separated path of names from the root
func (s *OrganizationSet) FullName(id int64) string {
	path := s.ancestry(id)
	names := make([]string, len(path))
	for i, org := range path {
		names[i] = org.Name
	}
	return strings.Join(names, "/")
}

// Direction returns the nearest direction organization at or above id
func (s *OrganizationSet) Direction(id int64) (*Organization, bool) {
	path := s.ancestry(id)
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].Direction {
			return path[i], true
		}
	}
	return nil, false
}

// Descendants returns the given ids plus every organization below them
func (s *OrganizationSet) Descendants(ids ...int64) []int64 {
	seen := make(map[int64]bool)
	var result []int64
	queue := append([]int64(nil), ids...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := s.byID[id]; ok {
			result = append(result, id)
		}
		queue = append(queue, s.children[id]...)
	}
	return result
}
