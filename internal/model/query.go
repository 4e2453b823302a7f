package model

// QueryResult is one chunk-level hit. Distance is 1 minus cosine similarity,
// so it sits in [0,2] and lower means more relevant.
type QueryResult struct {
	ID       string        `json:"id"`
	Document string        `json:"document"`
	Metadata ChunkMetadata `json:"metadata"`
	Distance float64       `json:"distance"`
}

// SearchResult is the public per-trial shape served by the search API.
type SearchResult struct {
	NCTID                 string  `json:"nct_id"`
	Title                 string  `json:"title"`
	PrincipalInvestigator string  `json:"principal_investigator"`
	Phase                 string  `json:"phase"`
	Gender                string  `json:"gender"`
	AgeRange              string  `json:"age_range"`
	HealthyVolunteers     string  `json:"healthy_volunteers"`
	Conditions            string  `json:"conditions"`
	Interventions         string  `json:"interventions"`
	SourceURL             string  `json:"source_url"`
	RelevanceScore        float64 `json:"relevance_score"`
}

// Evidence is the citation shape handed to and returned by the generator.
type Evidence struct {
	NCTID                 string `json:"nct_id"`
	Title                 string `json:"title"`
	PrincipalInvestigator string `json:"principal_investigator,omitempty"`
	Phase                 string `json:"phase,omitempty"`
	SourceURL             string `json:"source_url"`
}

// FilterOptions lists the distinct values present in indexed metadata.
type FilterOptions struct {
	Phases            []string `json:"phases"`
	Genders           []string `json:"genders"`
	HealthyVolunteers []string `json:"healthy_volunteers"`
}
