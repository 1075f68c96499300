package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"playstore-analytics/models"
	"playstore-analytics/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerWithLevel("error") }

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<b>Great</b> app &amp; fun", "Great app & fun"},
		{"<p>Line one</p><p>Line two</p>", "Line oneLine two"},
		{"plain text", "plain text"},
		{"  spaced\n\nout\ttext  ", "spaced out text"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestTransformOneDescription(t *testing.T) {
	tr := NewAppTransformer(newTestLogger())

	out := tr.transformOne(models.RawApp{"descriptionHTML": "<i>Take</i> notes &amp; sync"})
	if out["description_text"] != "Take notes & sync" {
		t.Errorf("description_text = %v; want %q", out["description_text"], "Take notes & sync")
	}

	// Falls back to plain description when HTML is absent.
	out = tr.transformOne(models.RawApp{"description": "Plain words"})
	if out["description_text"] != "Plain words" {
		t.Errorf("description_text fallback = %v; want %q", out["description_text"], "Plain words")
	}
}

func TestTransformOneInstalls(t *testing.T) {
	tr := NewAppTransformer(newTestLogger())

	tests := []struct {
		name string
		app  models.RawApp
		want any
	}{
		{"numeric preferred", models.RawApp{"minInstalls": float64(5000), "installs": "10,000+"}, int64(5000)},
		{"parsed from string", models.RawApp{"installs": "10,000+"}, int64(10000)},
		{"unparseable string", models.RawApp{"installs": "lots"}, nil},
		{"missing entirely", models.RawApp{}, nil},
		{"negative count nulled", models.RawApp{"minInstalls": float64(-5)}, nil},
		{"negative falls back to string", models.RawApp{"minInstalls": float64(-5), "installs": "10,000+"}, int64(10000)},
	}
	for _, tt := range tests {
		out := tr.transformOne(tt.app)
		if got := out["minInstalls"]; got != tt.want {
			t.Errorf("%s: minInstalls = %v; want %v", tt.name, got, tt.want)
		}
	}

	out := tr.transformOne(models.RawApp{"realInstalls": float64(12345)})
	if out["realInstalls"] != int64(12345) {
		t.Errorf("realInstalls = %v; want 12345", out["realInstalls"])
	}

	out = tr.transformOne(models.RawApp{"realInstalls": float64(-7)})
	if out["realInstalls"] != nil {
		t.Errorf("realInstalls = %v; want nil for negative count", out["realInstalls"])
	}
}

func TestTransformOneUpdatedEpoch(t *testing.T) {
	tr := NewAppTransformer(newTestLogger())

	out := tr.transformOne(models.RawApp{"updated": float64(1762610054)})
	if out["updated_iso"] != "2025-11-08T13:54:14+00:00" {
		t.Errorf("updated_iso = %v; want 2025-11-08T13:54:14+00:00", out["updated_iso"])
	}

	out = tr.transformOne(models.RawApp{"updated": "not an epoch"})
	if out["updated_iso"] != nil {
		t.Errorf("updated_iso = %v; want nil for invalid epoch", out["updated_iso"])
	}
}

func TestTransformOneHumanDates(t *testing.T) {
	tr := NewAppTransformer(newTestLogger())

	out := tr.transformOne(models.RawApp{
		"released":      "Jan 5, 2026",
		"lastUpdatedOn": "some day",
	})
	if out["released_iso"] != "2026-01-05T00:00:00+00:00" {
		t.Errorf("released_iso = %v; want 2026-01-05T00:00:00+00:00", out["released_iso"])
	}
	// Unparseable dates keep the raw trimmed string.
	if out["lastUpdatedOn_iso"] != "some day" {
		t.Errorf("lastUpdatedOn_iso = %v; want %q", out["lastUpdatedOn_iso"], "some day")
	}

	out = tr.transformOne(models.RawApp{})
	if out["released_iso"] != nil {
		t.Errorf("released_iso = %v; want nil when absent", out["released_iso"])
	}
}

func TestTransformOneCategories(t *testing.T) {
	tr := NewAppTransformer(newTestLogger())

	out := tr.transformOne(models.RawApp{
		"categories": []any{
			map[string]any{"id": "PRODUCTIVITY", "name": "Productivity"},
			"malformed entry",
			map[string]any{"id": "", "name": "Nameless"},
			map[string]any{"id": "TOOLS"},
		},
	})

	ids := out["category_ids"].([]string)
	names := out["category_names"].([]string)
	if len(ids) != 2 || ids[0] != "PRODUCTIVITY" || ids[1] != "TOOLS" {
		t.Errorf("category_ids = %v; want [PRODUCTIVITY TOOLS]", ids)
	}
	if len(names) != 2 || names[0] != "Productivity" || names[1] != "Nameless" {
		t.Errorf("category_names = %v; want [Productivity Nameless]", names)
	}
}

func TestTransformAppsFile(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "apps_raw.json")
	outPath := filepath.Join(dir, "apps_processed.json")

	rawJSON := `[
		{"appId": "com.a", "descriptionHTML": "<b>A</b>", "installs": "1,000+"},
		{"appId": "com.b", "title": "B"}
	]`
	if err := os.WriteFile(inPath, []byte(rawJSON), 0644); err != nil {
		t.Fatal(err)
	}

	tr := NewAppTransformer(newTestLogger())
	n, err := tr.Transform(inPath, outPath)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if n != 2 {
		t.Fatalf("processed %d apps; want 2", n)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	var processed []map[string]any
	if err := json.Unmarshal(data, &processed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(processed) != 2 {
		t.Fatalf("output has %d records; want 2", len(processed))
	}
	// Order preserved.
	if processed[0]["appId"] != "com.a" || processed[1]["appId"] != "com.b" {
		t.Errorf("record order not preserved: %v, %v", processed[0]["appId"], processed[1]["appId"])
	}
	// Original fields survive alongside derived ones.
	if processed[1]["title"] != "B" {
		t.Errorf("original field lost: title = %v", processed[1]["title"])
	}
	if processed[0]["minInstalls"] != float64(1000) {
		t.Errorf("minInstalls = %v; want 1000", processed[0]["minInstalls"])
	}
	// Absence is null, not zero.
	if processed[1]["minInstalls"] != nil {
		t.Errorf("minInstalls = %v; want null", processed[1]["minInstalls"])
	}
}

func TestTransformAppsCSVInput(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "apps_raw.csv")
	outPath := filepath.Join(dir, "apps_processed.json")

	csvData := "appId,description,installs\ncom.c,Hello world,\"5,000+\"\n"
	if err := os.WriteFile(inPath, []byte(csvData), 0644); err != nil {
		t.Fatal(err)
	}

	tr := NewAppTransformer(newTestLogger())
	if _, err := tr.Transform(inPath, outPath); err != nil {
		t.Fatalf("Transform: %v", err)
	}

	data, _ := os.ReadFile(outPath)
	var processed []map[string]any
	if err := json.Unmarshal(data, &processed); err != nil {
		t.Fatal(err)
	}
	if processed[0]["description_text"] != "Hello world" {
		t.Errorf("description_text = %v; want %q", processed[0]["description_text"], "Hello world")
	}
	if processed[0]["minInstalls"] != float64(5000) {
		t.Errorf("minInstalls = %v; want 5000", processed[0]["minInstalls"])
	}
}

func TestTransformAppsMissingInput(t *testing.T) {
	tr := NewAppTransformer(newTestLogger())
	if _, err := tr.Transform(filepath.Join(t.TempDir(), "nope.json"), "out.json"); err == nil {
		t.Error("expected error for missing input file")
	}
}
