package synonyms

// defaultGroups are bundled into every table before any file- or
// config-based layer loads. Kept small and domain-neutral; project- or
// agent-specific vocabulary belongs in a per-store or config-path file.
var defaultGroups = [][]string{
	{"create", "add", "make", "new"},
	{"delete", "remove", "drop"},
	{"update", "modify", "change", "edit"},
	{"fix", "repair", "resolve"},
	{"error", "failure", "bug", "issue"},
	{"config", "configuration", "settings"},
	{"start", "begin", "launch"},
	{"stop", "halt", "end", "terminate"},
	{"fast", "quick", "rapid"},
	{"slow", "sluggish", "delayed"},
	{"fxrp", "flare xrp"},
	{"position", "allocation", "holding"},
	{"trade", "swap", "exchange"},
	{"bridge", "bridging"},
	{"gas fees", "transaction fees", "gas"},
}

// NewWithDefaults returns a table pre-loaded with the bundled default groups.
func NewWithDefaults() *Table {
	t := New()
	t.AddGroups(defaultGroups)
	return t
}
