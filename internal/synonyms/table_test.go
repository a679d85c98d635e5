package synonyms

import (
	"reflect"
	"sort"
	"testing"
)

func TestAddGroup_IgnoresGroupsSmallerThanTwo(t *testing.T) {
	tbl := New()
	tbl.AddGroup([]string{"solo"})

	if len(tbl.Groups()) != 0 {
		t.Fatalf("expected no groups to be stored, got %v", tbl.Groups())
	}
}

func TestAddGroup_BuildsBidirectionalLookup(t *testing.T) {
	tbl := New()
	tbl.AddGroup([]string{"fast", "quick", "rapid"})

	result := tbl.Expand("a rapid fix")

	sort.Strings(result.Expanded)
	want := []string{"fast", "quick"}
	if !reflect.DeepEqual(result.Expanded, want) {
		t.Errorf("got %v, want %v", result.Expanded, want)
	}
}

func TestAddGroup_IsAdditiveAcrossCalls(t *testing.T) {
	tbl := New()
	tbl.AddGroup([]string{"start", "begin"})
	tbl.AddGroup([]string{"stop", "end"})

	if len(tbl.Groups()) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(tbl.Groups()))
	}
}

func TestExpand_ExcludesWordsAlreadyInOriginal(t *testing.T) {
	tbl := New()
	tbl.AddGroup([]string{"create", "add", "make"})

	result := tbl.Expand("add a new widget")

	for _, w := range result.Expanded {
		if w == "add" {
			t.Errorf("expanded should not contain %q, already in original", w)
		}
	}
}

func TestExpand_MatchesMultiWordPhrasesAsSubstrings(t *testing.T) {
	tbl := New()
	tbl.AddGroup([]string{"flare xrp", "fxrp"})

	result := tbl.Expand("opened a new flare xrp position")

	if len(result.Expanded) != 1 || result.Expanded[0] != "fxrp" {
		t.Errorf("expected [fxrp], got %v", result.Expanded)
	}
}

func TestExpand_LongerAndShorterOverlappingKeysBothContribute(t *testing.T) {
	tbl := New()
	tbl.AddGroup([]string{"flare xrp", "fxrp"})
	tbl.AddGroup([]string{"flare", "network-token"})

	result := tbl.Expand("a flare xrp allocation")

	sort.Strings(result.Expanded)
	want := []string{"fxrp", "network-token"}
	sort.Strings(want)
	if !reflect.DeepEqual(result.Expanded, want) {
		t.Errorf("got %v, want %v", result.Expanded, want)
	}
}

func TestExpand_NoMatchingGroups_ReturnsEmptyExpansion(t *testing.T) {
	tbl := New()
	tbl.AddGroup([]string{"fast", "quick"})

	result := tbl.Expand("a slow morning")

	if len(result.Expanded) != 0 {
		t.Errorf("expected no expansion, got %v", result.Expanded)
	}
}

func TestNewWithDefaults_LoadsBundledGroups(t *testing.T) {
	tbl := NewWithDefaults()

	if len(tbl.Groups()) == 0 {
		t.Fatal("expected bundled default groups to be loaded")
	}
}
