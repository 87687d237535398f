package format

import (
	"context"
	"strings"
	"time"

	"github.com/arthur-debert/projectquery/projectquery/cache"
	"github.com/arthur-debert/projectquery/types"
)

// Aggregates is the store collaborator computing the per project maps
// columns are rendered from. *store.Store implements it.
type Aggregates interface {
	ProjectMembers(ctx context.Context) (map[int64][]int64, error)
	ProjectOrganizations(ctx context.Context) (map[int64][]int64, error)
	OrganizationsByRole(ctx context.Context) (map[int64]map[int64][]int64, error)
	OrganizationsByFunction(ctx context.Context) (map[int64]map[int64][]int64, error)
	LastIssueDates(ctx context.Context) (map[int64]map[int64]time.Time, error)
	LatestActivity(ctx context.Context) (map[int64]time.Time, error)
	IssueCounts(ctx context.Context) (map[int64]types.IssueCounts, error)
	ActorRoles(ctx context.Context, actor types.Actor) (map[int64][]string, error)
	Principals(ctx context.Context, ids []int64) ([]types.Principal, error)
	Organizations(ctx context.Context) ([]types.Organization, error)
	Freshness(table, column string) cache.Probe
}

// Keyed freshness probes
func (f *Formatter) membersProbe() cache.Probe { return f.data.Freshness("members", "created_on") }
func (f *Formatter) orgsProbe() cache.Probe    { return f.data.Freshness("organizations", "updated_at") }
func (f *Formatter) issuesProbe() cache.Probe  { return f.data.Freshness("issues", "created_on") }

// membersMap returns the names of the active member users of each project
func (f *Formatter) membersMap(ctx context.Context) (map[int64][]string, error) {
	key := cache.NewKey("projects-members", f.membersProbe())
	return cache.Fetch(ctx, f.cache, key, func(ctx context.Context) (map[int64][]string, error) {
		members, err := f.data.ProjectMembers(ctx)
		if err != nil {
			return nil, err
		}

		var ids []int64
		seen := make(map[int64]bool)
		for _, userIDs := range members {
			for _, id := range userIDs {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
		principals, err := f.data.Principals(ctx, ids)
		if err != nil {
			return nil, err
		}
		names := make(map[int64]string, len(principals))
		for _, p := range principals {
			if p.Type == types.PrincipalUser && p.Status == types.StatusActive {
				names[p.ID] = p.Name()
			}
		}

		result := make(map[int64][]string, len(members))
		for projectID, userIDs := range members {
			for _, id := range userIDs {
				if name, ok := names[id]; ok {
					result[projectID] = append(result[projectID], name)
				}
			}
		}
		return result, nil
	})
}

// organizationsMap returns, per project, the full names of the member
// organizations keyed by role and function column id
func (f *Formatter) organizationsMap(ctx context.Context) (map[int64]map[string][]string, error) {
	key := cache.NewKey("all-organizations", f.membersProbe(), f.orgsProbe(), 2)
	return cache.Fetch(ctx, f.cache, key, func(ctx context.Context) (map[int64]map[string][]string, error) {
		orgs, err := f.data.Organizations(ctx)
		if err != nil {
			return nil, err
		}
		set := types.NewOrganizationSet(orgs)

		byRole, err := f.data.OrganizationsByRole(ctx)
		if err != nil {
			return nil, err
		}
		byFunction, err := f.data.OrganizationsByFunction(ctx)
		if err != nil {
			return nil, err
		}

		result := make(map[int64]map[string][]string)
		add := func(kind types.SourceKind, m map[int64]map[int64][]int64) {
			for projectID, byKey := range m {
				if result[projectID] == nil {
					result[projectID] = make(map[string][]string)
				}
				for id, orgIDs := range byKey {
					column := types.FormatSourceID(kind, id)
					for _, orgID := range orgIDs {
						result[projectID][column] = append(result[projectID][column], set.FullName(orgID))
					}
				}
			}
		}
		add(types.SourceRole, byRole)
		add(types.SourceFunction, byFunction)
		return result, nil
	})
}

// directionsMap returns, per project, the direction names of its member
// organizations. Ignored directions are dropped when there is more than one.
func (f *Formatter) directionsMap(ctx context.Context) (map[int64][]string, error) {
	key := cache.NewKey("all-directions", f.membersProbe(), f.orgsProbe(), strings.Join(f.ignored, ","))
	return cache.Fetch(ctx, f.cache, key, func(ctx context.Context) (map[int64][]string, error) {
		orgs, err := f.data.Organizations(ctx)
		if err != nil {
			return nil, err
		}
		set := types.NewOrganizationSet(orgs)

		byProject, err := f.data.ProjectOrganizations(ctx)
		if err != nil {
			return nil, err
		}

		ignored := make(map[string]bool, len(f.ignored))
		for _, name := range f.ignored {
			ignored[name] = true
		}

		result := make(map[int64][]string, len(byProject))
		for projectID, orgIDs := range byProject {
			var names []string
			for _, orgID := range orgIDs {
				if direction, ok := set.Direction(orgID); ok {
					names = append(names, direction.Name)
				}
			}
			names = unique(names)
			if len(names) > 1 {
				kept := names[:0]
				for _, name := range names {
					if !ignored[name] {
						kept = append(kept, name)
					}
				}
				names = kept
			}
			result[projectID] = names
		}
		return result, nil
	})
}

func (f *Formatter) lastIssueDates(ctx context.Context) (map[int64]map[int64]time.Time, error) {
	key := cache.NewKey("last-issue-dates", f.issuesProbe())
	return cache.Fetch(ctx, f.cache, key, f.data.LastIssueDates)
}

func (f *Formatter) latestActivity(ctx context.Context) (map[int64]time.Time, error) {
	key := cache.NewKey("latest-activity", f.issuesProbe(), f.data.Freshness("projects", "updated_on"))
	return cache.Fetch(ctx, f.cache, key, f.data.LatestActivity)
}

func (f *Formatter) issueCounts(ctx context.Context) (map[int64]types.IssueCounts, error) {
	key := cache.NewKey("issue-counts", f.issuesProbe(), f.data.Freshness("issues", "closed_on"))
	return cache.Fetch(ctx, f.cache, key, f.data.IssueCounts)
}

// actorRoles is request scoped, so it is memoized on the formatter
func (f *Formatter) actorRoles(ctx context.Context) (map[int64][]string, error) {
	if f.memberships != nil {
		return f.memberships, nil
	}
	roles, err := f.data.ActorRoles(ctx, f.actor)
	if err != nil {
		return nil, err
	}
	f.memberships = roles
	return roles, nil
}

// unique drops repeated values, keeping the first occurrence
func unique(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}
