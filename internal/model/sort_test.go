package model

import "testing"

func groupNames(groups []DuplicateGroup) []string {
	out := make([]string, len(groups))
	for i := range groups {
		out[i] = firstPath(&groups[i])
	}
	return out
}

func TestSortGroups(t *testing.T) {
	base := func() []DuplicateGroup {
		return []DuplicateGroup{
			{Size: 10, Files: []FileRecord{{Path: "file10"}, {Path: "x"}}},
			{Size: 3, Files: []FileRecord{{Path: "file2"}, {Path: "x"}, {Path: "y"}, {Path: "z"}}},
			{Size: 50, Files: []FileRecord{{Path: "File1"}, {Path: "x"}}},
		}
	}

	tests := []struct {
		name string
		cfg  SortConfig
		want []string
	}{
		{"wasted desc", SortConfig{Field: SortByWasted, Order: SortDesc}, []string{"File1", "file10", "file2"}},
		{"size asc", SortConfig{Field: SortBySize, Order: SortAsc}, []string{"file2", "file10", "File1"}},
		{"count desc", SortConfig{Field: SortByCount, Order: SortDesc}, []string{"file2", "file10", "File1"}},
		{"path asc natural", SortConfig{Field: SortByPath, Order: SortAsc}, []string{"File1", "file2", "file10"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			groups := base()
			SortGroups(groups, tc.cfg)
			got := groupNames(groups)
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("order = %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestSortGroups_StableForTies(t *testing.T) {
	groups := []DuplicateGroup{
		{Size: 1, Files: []FileRecord{{Path: "b"}, {Path: "x"}}},
		{Size: 1, Files: []FileRecord{{Path: "a"}, {Path: "x"}}},
	}
	SortGroups(groups, DefaultSort())
	if firstPath(&groups[0]) != "b" {
		t.Fatalf("expected tie to keep report order, got %v", groupNames(groups))
	}
}

func TestSortFiles(t *testing.T) {
	files := []FileRecord{{Path: "/r/img10.png"}, {Path: "/r/img2.png"}, {Path: "/r/IMG1.png"}}
	SortFiles(files)
	if files[0].Path != "/r/IMG1.png" || files[1].Path != "/r/img2.png" || files[2].Path != "/r/img10.png" {
		t.Fatalf("unexpected order: %+v", files)
	}
}
