package storage

import "testing"

func TestBuildExportPath(t *testing.T) {
	path, err := BuildExportPath("/exports/", "prj_123", "website-2024-05-01.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "exports/projects/prj_123/website-2024-05-01.json"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}
}

func TestBuildExportPathWithoutPrefix(t *testing.T) {
	path, err := BuildExportPath("", "prj_123", "site.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "projects/prj_123/site.json" {
		t.Fatalf("unexpected path %s", path)
	}
}

func TestBuildExportPathRejectsInvalidSegment(t *testing.T) {
	cases := []struct{ prefix, project, file string }{
		{"exports", "../bad", "site.json"},
		{"exports", "prj_1", "a/b.json"},
		{"exports", "", "site.json"},
		{"../up", "prj_1", "site.json"},
	}
	for _, tc := range cases {
		if _, err := BuildExportPath(tc.prefix, tc.project, tc.file); err == nil {
			t.Fatalf("expected error for %+v", tc)
		}
	}
}
