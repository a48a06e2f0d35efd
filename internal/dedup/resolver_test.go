package dedup_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"palette/internal/dedup"
	"palette/internal/immich"
	"palette/internal/services"
)

var resolver = dedup.Resolver{
	LibraryPrefix:  "/mnt/pictures/",
	InternalPrefix: "/usr/src/app/upload/",
}

func asset(id, path string, size int64) immich.Asset {
	return immich.Asset{ID: id, OriginalPath: path, SizeBytes: size}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want dedup.Tier
	}{
		{"/mnt/pictures/2024/a.jpg", dedup.TierPrimary},
		{"/usr/src/app/upload/library/a.jpg", dedup.TierInternal},
		{"/external/a.jpg", dedup.TierExternal},
		{"", dedup.TierExternal},
	}
	for _, tc := range cases {
		if got := resolver.Classify(tc.path); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}

	var empty dedup.Resolver
	if got := empty.Classify("/anything"); got != dedup.TierExternal {
		t.Fatalf("empty prefixes should match nothing, got %v", got)
	}
}

func TestResolvePrefersLibraryRegardlessOfSize(t *testing.T) {
	groups := []immich.DuplicateGroup{{
		ID: "g1",
		Assets: []immich.Asset{
			asset("lib", "/mnt/pictures/a.jpg", 500),
			asset("int", "/usr/src/app/upload/a.jpg", 2000),
			asset("ext", "/external/a.jpg", 1000),
		},
	}}

	decisions := resolver.Resolve(groups)
	if len(decisions) != 1 {
		t.Fatalf("expected one decision, got %d", len(decisions))
	}
	if decisions[0].Survivor.ID != "lib" || decisions[0].Tier != dedup.TierPrimary {
		t.Fatalf("unexpected survivor %+v", decisions[0])
	}
	ids := dedup.DeleteIDs(decisions)
	slices.Sort(ids)
	if !slices.Equal(ids, []string{"ext", "int"}) {
		t.Fatalf("DeleteIDs = %v", ids)
	}
}

func TestResolveSingleTierKeepsLargest(t *testing.T) {
	groups := []immich.DuplicateGroup{{
		ID: "g1",
		Assets: []immich.Asset{
			asset("small", "/usr/src/app/upload/a.jpg", 1000),
			asset("large", "/usr/src/app/upload/b.jpg", 5000),
		},
	}}
	ids := dedup.DeleteIDs(resolver.Resolve(groups))
	if !slices.Equal(ids, []string{"small"}) {
		t.Fatalf("DeleteIDs = %v", ids)
	}
}

func TestResolveInternalBeatsExternal(t *testing.T) {
	groups := []immich.DuplicateGroup{{
		Assets: []immich.Asset{
			asset("e1", "/external/a.jpg", 9000),
			asset("i1", "/usr/src/app/upload/a.jpg", 100),
			asset("i2", "/usr/src/app/upload/b.jpg", 200),
		},
	}}
	d := resolver.Resolve(groups)[0]
	if d.Survivor.ID != "i2" || d.Tier != dedup.TierInternal {
		t.Fatalf("unexpected survivor %+v", d)
	}
	if len(d.Delete) != 2 {
		t.Fatalf("expected 2 deletions, got %+v", d.Delete)
	}
}

func TestResolveTieBreaksByIDIndependentOfOrder(t *testing.T) {
	a := asset("b-id", "/external/1.jpg", 700)
	b := asset("a-id", "/external/2.jpg", 700)

	first := resolver.Resolve([]immich.DuplicateGroup{{Assets: []immich.Asset{a, b}}})
	second := resolver.Resolve([]immich.DuplicateGroup{{Assets: []immich.Asset{b, a}}})
	if first[0].Survivor.ID != "a-id" || second[0].Survivor.ID != "a-id" {
		t.Fatalf("expected a-id to survive both orders, got %q and %q",
			first[0].Survivor.ID, second[0].Survivor.ID)
	}
}

func TestResolveSkipsSingletonGroups(t *testing.T) {
	groups := []immich.DuplicateGroup{
		{ID: "solo", Assets: []immich.Asset{asset("x", "/external/x.jpg", 1)}},
		{ID: "empty"},
	}
	if got := resolver.Resolve(groups); len(got) != 0 {
		t.Fatalf("expected no decisions, got %+v", got)
	}
}

type fakeRemote struct {
	groups    []immich.DuplicateGroup
	listErr   error
	deleteErr error
	trashErr  error

	deleted    []string
	trashCalls int
}

func (f *fakeRemote) ListDuplicateGroups(context.Context) ([]immich.DuplicateGroup, error) {
	return f.groups, f.listErr
}

func (f *fakeRemote) DeleteAssets(_ context.Context, ids []string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeRemote) EmptyTrash(context.Context) error {
	f.trashCalls++
	return f.trashErr
}

func sampleGroups() []immich.DuplicateGroup {
	return []immich.DuplicateGroup{
		{ID: "g1", Assets: []immich.Asset{
			asset("keep", "/mnt/pictures/a.jpg", 10),
			asset("drop", "/external/a.jpg", 20),
		}},
	}
}

func TestProcessorDeletesThenEmptiesTrash(t *testing.T) {
	remote := &fakeRemote{groups: sampleGroups()}
	report, err := dedup.NewProcessor(remote, resolver, nil).Execute(context.Background(), false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !report.Deleted || !report.TrashEmptied {
		t.Fatalf("unexpected report %+v", report)
	}
	if !slices.Equal(remote.deleted, []string{"drop"}) || remote.trashCalls != 1 {
		t.Fatalf("deleted=%v trash=%d", remote.deleted, remote.trashCalls)
	}
}

func TestProcessorDryRunTouchesNothing(t *testing.T) {
	remote := &fakeRemote{groups: sampleGroups()}
	report, err := dedup.NewProcessor(remote, resolver, nil).Execute(context.Background(), true)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !report.DryRun || report.Deleted || len(report.DeleteIDs) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(remote.deleted) != 0 || remote.trashCalls != 0 {
		t.Fatal("dry run must not call the server")
	}
}

func TestProcessorSkipsTrashWhenDeleteFails(t *testing.T) {
	remote := &fakeRemote{groups: sampleGroups(), deleteErr: services.ErrUnreachable}
	report, err := dedup.NewProcessor(remote, resolver, nil).Execute(context.Background(), false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !errors.Is(report.DeleteErr, services.ErrUnreachable) || report.Deleted {
		t.Fatalf("unexpected report %+v", report)
	}
	if remote.trashCalls != 0 {
		t.Fatal("trash must not be emptied after a failed delete")
	}
}

func TestProcessorReportsTrashFailure(t *testing.T) {
	remote := &fakeRemote{groups: sampleGroups(), trashErr: errors.New("nope")}
	report, err := dedup.NewProcessor(remote, resolver, nil).Execute(context.Background(), false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !report.Deleted || report.TrashEmptied || report.TrashErr == nil {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestProcessorReturnsListFailure(t *testing.T) {
	remote := &fakeRemote{listErr: services.ErrUnreachable}
	if _, err := dedup.NewProcessor(remote, resolver, nil).Execute(context.Background(), false); !errors.Is(err, services.ErrUnreachable) {
		t.Fatalf("expected unreachable, got %v", err)
	}
}
