package model

// TrialRecord is one raw trial as scraped or loaded. Fields are free-form;
// anything absent reads as the empty string.
type TrialRecord map[string]string

func (t TrialRecord) Get(key string) string {
	if t == nil {
		return ""
	}
	return t[key]
}

// Identifier returns the trial identifier, preferring nct_id over system_id.
func (t TrialRecord) Identifier() string {
	if id := t.Get("nct_id"); id != "" {
		return id
	}
	return t.Get("system_id")
}
