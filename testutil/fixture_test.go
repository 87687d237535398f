package testutil

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/projectquery/projectquery/store"
)

func TestLoadUniverse(t *testing.T) {
	s := LoadUniverse(t)
	ctx := context.Background()

	projects, err := s.FindWhere(ctx, nil, store.FindOptions{})
	if err != nil {
		t.Fatalf("failed to list projects: %v", err)
	}
	if diff := cmp.Diff(AllProjects, IDs(projects)); diff != "" {
		t.Errorf("project ids mismatch (-want +got):\n%s", diff)
	}

	trackers, err := s.Trackers(ctx)
	if err != nil {
		t.Fatalf("failed to list trackers: %v", err)
	}
	if len(trackers) != 3 {
		t.Errorf("expected 3 trackers, got %d", len(trackers))
	}

	f := Fixture(t)
	if len(f.Members) != 7 {
		t.Errorf("expected 7 memberships, got %d", len(f.Members))
	}
}
