package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"regexp"
	"strconv"
	"strings"

	"playstore-analytics/models"
	"playstore-analytics/utils"
)

var (
	// htmlTagRegexp matches markup tags for stripping store descriptions.
	htmlTagRegexp = regexp.MustCompile(`<[^>]+>`)
	// whitespaceRegexp collapses whitespace runs left behind by tag removal.
	whitespaceRegexp = regexp.MustCompile(`\s+`)
	// nonDigitRegexp strips everything but digits from install strings
	// like "10,000+".
	nonDigitRegexp = regexp.MustCompile(`[^0-9]`)
)

// AppTransformer turns raw app-metadata records into processed records with
// derived fields. The whole catalog is held in memory for one pass — fine
// for catalogs of hundreds of apps, reviews are the volume and they stream
// elsewhere.
type AppTransformer struct {
	logger *utils.Logger
}

// NewAppTransformer creates an AppTransformer with the given logger.
func NewAppTransformer(logger *utils.Logger) *AppTransformer {
	return &AppTransformer{logger: logger}
}

// Transform reads the raw apps file (JSON array or CSV with header), derives
// the processed fields for every record, and writes the full collection as
// one indented JSON array. Cardinality and order are preserved: every input
// record maps to exactly one output record. Returns the record count.
func (t *AppTransformer) Transform(inPath, outPath string) (int, error) {
	t.logger.Info("[apps] Reading apps from %s", inPath)

	raw, err := loadRawApps(inPath)
	if err != nil {
		return 0, err
	}

	processed := make([]models.ProcessedApp, 0, len(raw))
	for _, r := range raw {
		processed = append(processed, t.transformOne(r))
	}

	data, err := json.MarshalIndent(processed, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("apps: encode processed: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return 0, fmt.Errorf("apps: write %q: %w", outPath, err)
	}

	t.logger.Info("[apps] Wrote %d apps to %s", len(processed), outPath)
	return len(processed), nil
}

// transformOne copies the record and adds the derived fields. Absent source
// fields come out as JSON null, never a misleading default.
func (t *AppTransformer) transformOne(app models.RawApp) models.ProcessedApp {
	out := make(models.ProcessedApp, len(app)+8)
	for k, v := range app {
		out[k] = v
	}

	out["description_text"] = StripHTML(firstString(app, "descriptionHTML", "description"))

	minInstalls, realInstalls := normalizeInstalls(app)
	out["minInstalls"] = intOrNull(minInstalls)
	out["realInstalls"] = intOrNull(realInstalls)

	out["updated_iso"] = stringOrNull(EpochToISO(CoerceInt(app["updated"])))

	out["released_iso"] = stringOrNull(ParseHumanDate(asString(app["released"])))
	out["lastUpdatedOn_iso"] = stringOrNull(ParseHumanDate(asString(app["lastUpdatedOn"])))

	ids, names := flattenCategories(app["categories"])
	out["category_ids"] = ids
	out["category_names"] = names

	return out
}

// StripHTML unescapes entities, removes tags, collapses whitespace runs to
// single spaces and trims. Regex-level stripping is all store descriptions
// need; they carry formatting tags, not documents.
func StripHTML(s string) string {
	s = html.UnescapeString(s)
	s = htmlTagRegexp.ReplaceAllString(s, "")
	s = whitespaceRegexp.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// normalizeInstalls prefers the numeric install fields and otherwise parses
// the digits out of the human-readable installs string ("10,000+").
// Missing, unparseable or negative counts stay nil, not zero: an install
// count below zero is corrupt input, not data.
func normalizeInstalls(app models.RawApp) (*int64, *int64) {
	minInstalls := nonNegative(CoerceInt(app["minInstalls"]))
	realInstalls := nonNegative(CoerceInt(app["realInstalls"]))

	if minInstalls == nil || *minInstalls == 0 {
		if s, ok := app["installs"].(string); ok {
			digits := nonDigitRegexp.ReplaceAllString(s, "")
			if digits != "" {
				if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
					minInstalls = &n
				}
			}
		}
	}
	return minInstalls, realInstalls
}

func nonNegative(p *int64) *int64 {
	if p != nil && *p < 0 {
		return nil
	}
	return p
}

// flattenCategories turns a list of {id, name} mappings into two parallel
// ordered slices of non-empty strings, silently skipping malformed entries.
func flattenCategories(v any) ([]string, []string) {
	ids := make([]string, 0)
	names := make([]string, 0)

	list, ok := v.([]any)
	if !ok {
		return ids, names
	}
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := m["id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
		if name, ok := m["name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return ids, names
}

func loadRawApps(path string) ([]models.RawApp, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("apps: raw apps file not found: %q: %w", path, err)
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		reader := csv.NewReader(f)
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("apps: read csv %q: %w", path, err)
		}
		if len(rows) == 0 {
			return nil, nil
		}
		header := rows[0]
		apps := make([]models.RawApp, 0, len(rows)-1)
		for _, row := range rows[1:] {
			app := make(models.RawApp, len(header))
			for i, col := range header {
				if i < len(row) {
					app[col] = row[i]
				}
			}
			apps = append(apps, app)
		}
		return apps, nil
	}

	var apps []models.RawApp
	if err := json.NewDecoder(f).Decode(&apps); err != nil {
		return nil, fmt.Errorf("apps: decode json %q: %w", path, err)
	}
	return apps, nil
}

func firstString(app models.RawApp, keys ...string) string {
	for _, k := range keys {
		if s, ok := app[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func intOrNull(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringOrNull(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
