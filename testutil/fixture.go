package testutil

import (
	"context"
	_ "embed"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/arthur-debert/projectquery/projectquery/store"
	"github.com/arthur-debert/projectquery/types"
)

//go:embed universe.yaml
var universeYAML []byte

// Now is the reference time of the universe; tests resolve relative
// dates against it
var Now = time.Date(2024, time.May, 15, 10, 30, 0, 0, time.UTC)

// Entity ids of the universe
const (
	// Projects
	ProjectArchive  int64 = 1 // archived, member: dave (locked)
	ProjectIntranet int64 = 2 // private child of Website
	ProjectResearch int64 = 3 // no members, no issues
	ProjectWebsite  int64 = 7 // alice (Manager, Developer), bob
	ProjectMobile   int64 = 8 // bob, carol, the Developers group

	// Principals
	UserAlice  int64 = 3 // Platform
	UserBob    int64 = 4 // Field Sales
	UserCarol  int64 = 5 // CPII
	UserDave   int64 = 6 // Storage, locked
	GroupDevs  int64 = 7
	UserNobody int64 = 99

	// Organizations: Engineering > Platform > Storage, Sales > Field Sales, CPII
	OrgEngineering int64 = 5
	OrgSales       int64 = 6
	OrgPlatform    int64 = 9
	OrgStorage     int64 = 10
	OrgFieldSales  int64 = 11
	OrgCPII        int64 = 12

	// Trackers
	TrackerBug     int64 = 1 // Website: open issue two days ago
	TrackerFeature int64 = 2 // Mobile App only
	TrackerSupport int64 = 3 // Archive only, last year

	// Roles
	RoleManager   int64 = 1
	RoleDeveloper int64 = 2
	RoleReporter  int64 = 3

	// Functions
	FunctionLead     int64 = 1
	FunctionReviewer int64 = 2
)

// AllProjects lists every project id of the universe, sorted
var AllProjects = []int64{ProjectArchive, ProjectIntranet, ProjectResearch, ProjectWebsite, ProjectMobile}

// Alice is the actor most scenarios run as
var Alice = types.Actor{ID: UserAlice}

// Fixture returns the parsed universe
func Fixture(t testing.TB) *store.Fixture {
	t.Helper()
	f, err := store.ParseFixture(universeYAML)
	if err != nil {
		t.Fatalf("failed to parse universe: %v", err)
	}
	return f
}

// OpenStore creates an empty store in a temporary directory
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "projects.db")
	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// LoadUniverse returns a store seeded with the universe
func LoadUniverse(t testing.TB) *store.Store {
	t.Helper()
	s := OpenStore(t)
	if err := s.Seed(context.Background(), Fixture(t)); err != nil {
		t.Fatalf("failed to seed universe: %v", err)
	}
	return s
}

// IDs returns the sorted ids of projects
func IDs(projects []types.Project) []int64 {
	ids := make([]int64, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
