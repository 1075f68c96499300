package models

// RawApp is one app-metadata record from the store API. The schema is open:
// whatever fields the source sent are kept as-is.
type RawApp map[string]any

// ProcessedApp is a RawApp with the derived fields added by the app
// transformer: description_text, minInstalls/realInstalls (int or null),
// updated_iso, released_iso, lastUpdatedOn_iso, category_ids and
// category_names. It stays a map so every original field survives the
// round trip untouched.
type ProcessedApp map[string]any
