package model

const (
	ChunkTypeDescription = "description"
	ChunkTypeEligibility = "eligibility"
	ChunkTypeOverview    = "overview"
)

type ChunkMetadata struct {
	NCTID                 string `json:"nct_id"`
	IRBNumber             string `json:"irb_number"`
	Title                 string `json:"title"`
	PrincipalInvestigator string `json:"principal_investigator"`
	Phase                 string `json:"phase"`
	Gender                string `json:"gender"`
	AgeRange              string `json:"age_range"`
	HealthyVolunteers     string `json:"healthy_volunteers"`
	Conditions            string `json:"conditions"`
	Interventions         string `json:"interventions"`
	Keywords              string `json:"keywords"`
	SourceURL             string `json:"source_url"`
	ChunkType             string `json:"chunk_type"`
}

// Field resolves a metadata value by its wire name. Filterable keys only;
// the second return reports whether the key is known.
func (m ChunkMetadata) Field(key string) (string, bool) {
	switch key {
	case "nct_id":
		return m.NCTID, true
	case "phase":
		return m.Phase, true
	case "gender":
		return m.Gender, true
	case "healthy_volunteers":
		return m.HealthyVolunteers, true
	case "chunk_type":
		return m.ChunkType, true
	default:
		return "", false
	}
}

type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}
