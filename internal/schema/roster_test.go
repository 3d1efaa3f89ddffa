package schema

import "testing"

func samplePage() CollectionPage {
	return CollectionPage{
		Users: []User{
			{ID: "u-1", Name: "Ada", Status: StatusActive, Groups: []Group{{ID: "g-1", Name: "ops"}}},
			{ID: "u-2", Name: "Lin", Status: StatusInactive},
			{ID: "u-3", Name: "Kai", Status: StatusActive},
		},
		TotalCount: 42,
	}
}

func TestParseUserStatus(t *testing.T) {
	if status, ok := ParseUserStatus(" Active "); !ok || status != StatusActive {
		t.Fatalf("expected active, got %q ok=%v", status, ok)
	}
	if _, ok := ParseUserStatus("banned"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if _, ok := ParseUserStatus(""); ok {
		t.Fatal("expected empty status to be rejected")
	}
}

func TestCloneIsDeep(t *testing.T) {
	page := samplePage()
	clone := page.Clone()

	clone.Users[0].Status = StatusInactive
	clone.Users[0].Groups[0].Name = "renamed"

	if page.Users[0].Status != StatusActive {
		t.Fatal("clone mutation leaked into source status")
	}
	if page.Users[0].Groups[0].Name != "ops" {
		t.Fatal("clone mutation leaked into source groups")
	}
}

func TestWithUserStatusTouchesOnlyTarget(t *testing.T) {
	page := samplePage()
	updated := page.WithUserStatus("u-2", StatusActive)

	if updated.Users[1].Status != StatusActive {
		t.Fatalf("expected u-2 status replaced, got %q", updated.Users[1].Status)
	}
	if updated.Users[0].Status != StatusActive || updated.Users[2].Status != StatusActive {
		t.Fatal("unrelated records changed")
	}
	if updated.TotalCount != page.TotalCount {
		t.Fatalf("total count changed: %d != %d", updated.TotalCount, page.TotalCount)
	}
	if page.Users[1].Status != StatusInactive {
		t.Fatal("source page mutated in place")
	}
}

func TestWithUserStatusUnknownIDIsNoop(t *testing.T) {
	page := samplePage()
	updated := page.WithUserStatus("u-404", StatusInactive)

	for i := range page.Users {
		if updated.Users[i].Status != page.Users[i].Status {
			t.Fatalf("record %d changed for unknown target", i)
		}
	}
}

func TestReplaceUser(t *testing.T) {
	page := samplePage()
	replacement := User{ID: "u-3", Name: "Kai Rename", Status: StatusInactive}
	updated := page.ReplaceUser(replacement)

	got, ok := updated.FindUser("u-3")
	if !ok {
		t.Fatal("expected u-3 present after replace")
	}
	if got.Name != "Kai Rename" || got.Status != StatusInactive {
		t.Fatalf("replacement not applied: %+v", got)
	}
	if page.Users[2].Name != "Kai" {
		t.Fatal("source page mutated in place")
	}
}
