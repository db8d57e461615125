package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "b-1", BuildID("b-1")},
		{"BuildMode", KeyBuildMode, "partial", BuildMode("partial")},
		{"Stage", KeyStage, "process", Stage("process")},
		{"SubStage", KeySubStage, "transform", SubStage("transform")},
		{"Processor", KeyProcessor, "layout", Processor("layout")},
		{"URL", KeyURL, "/a/", URL("/a/")},
		{"Path", KeyPath, "content/a.md", Path("content/a.md")},
		{"Layout", KeyLayout, "post", Layout("post")},
		{"Kind", KeyKind, "single", Kind("single")},
		{"ContentType", KeyType, "markdown", ContentType("markdown")},
		{"Method", KeyMethod, "GET", Method("GET")},
		{"RemoteAddr", KeyRemoteAddr, "127.0.0.1:9", RemoteAddr("127.0.0.1:9")},
		{"Error", KeyError, "boom", Error(errors.New("boom"))},
		{"NilError", KeyError, "", Error(nil)},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if v := Items(3).Value.Int64(); v != 3 {
		t.Fatalf("expected 3 items, got %d", v)
	}
	if v := Changes(2).Value.Int64(); v != 2 {
		t.Fatalf("expected 2 changes, got %d", v)
	}
	if v := Status(404).Value.Int64(); v != 404 {
		t.Fatalf("expected status 404, got %d", v)
	}
	if v := DurationMS(1.5).Value.Float64(); v != 1.5 {
		t.Fatalf("expected 1.5ms, got %v", v)
	}
}
