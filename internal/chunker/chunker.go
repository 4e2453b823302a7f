package chunker

import (
	"fmt"
	"strings"

	"github.com/trialrag/trialrag/internal/model"
)

const sourceURLTemplate = "https://clinicaltrials.gov/ct2/show/study/%s"

// acceptingPhrase is the sole signal for the healthy-volunteers flag. No
// other phrasing is recognized.
const acceptingPhrase = "accepting healthy volunteers"

// Build turns one trial record into its retrievable chunks: a description
// chunk and an eligibility chunk when the source fields carry text, plus an
// overview chunk always. Every chunk carries the full trial metadata and a
// chunk_type tag.
func Build(trial model.TrialRecord) []model.Chunk {
	meta := buildMetadata(trial)

	chunks := make([]model.Chunk, 0, 3)
	if desc := trial.Get("description"); desc != "" {
		m := meta
		m.ChunkType = model.ChunkTypeDescription
		chunks = append(chunks, model.Chunk{
			Text:     "DESCRIPTION: " + desc,
			Metadata: m,
		})
	}

	inclusion := trial.Get("inclusion_criteria")
	exclusion := trial.Get("exclusion_criteria")
	if inclusion != "" || exclusion != "" {
		var sb strings.Builder
		sb.WriteString("ELIGIBILITY CRITERIA:\n")
		if inclusion != "" {
			sb.WriteString("INCLUSION CRITERIA: " + inclusion + "\n\n")
		}
		if exclusion != "" {
			sb.WriteString("EXCLUSION CRITERIA: " + exclusion)
		}
		m := meta
		m.ChunkType = model.ChunkTypeEligibility
		chunks = append(chunks, model.Chunk{
			Text:     sb.String(),
			Metadata: m,
		})
	}

	m := meta
	m.ChunkType = model.ChunkTypeOverview
	chunks = append(chunks, model.Chunk{
		Text:     overviewText(meta),
		Metadata: m,
	})
	return chunks
}

func buildMetadata(trial model.TrialRecord) model.ChunkMetadata {
	id := trial.Identifier()
	return model.ChunkMetadata{
		NCTID:                 id,
		IRBNumber:             trial.Get("irb_number"),
		Title:                 trial.Get("title"),
		PrincipalInvestigator: trial.Get("principal_investigator"),
		Phase:                 model.CanonicalPhase(trial.Get("phase")),
		Gender:                trial.Get("gender"),
		AgeRange:              ageRange(trial),
		HealthyVolunteers:     healthyVolunteers(trial),
		Conditions:            trial.Get("conditions"),
		Interventions:         trial.Get("interventions"),
		Keywords:              trial.Get("keywords"),
		SourceURL:             fmt.Sprintf(sourceURLTemplate, id),
	}
}

func overviewText(meta model.ChunkMetadata) string {
	accepts := "No"
	if meta.HealthyVolunteers == "yes" {
		accepts = "Yes"
	}
	lines := []string{
		"CLINICAL TRIAL OVERVIEW:",
		"Title: " + meta.Title,
		"NCT ID: " + meta.NCTID,
		"Phase: " + meta.Phase,
		"Principal Investigator: " + meta.PrincipalInvestigator,
		"Conditions: " + meta.Conditions,
		"Interventions: " + meta.Interventions,
		"Gender eligibility: " + meta.Gender,
		"Age eligibility: " + meta.AgeRange,
		"Accepts healthy volunteers: " + accepts,
	}
	return strings.Join(lines, "\n")
}

func ageRange(trial model.TrialRecord) string {
	if v := trial.Get("age_range"); v != "" {
		return v
	}
	return trial.Get("age")
}

func healthyVolunteers(trial model.TrialRecord) string {
	if strings.Contains(strings.ToLower(trial.Get("healthy_volunteers")), acceptingPhrase) {
		return "yes"
	}
	return "no"
}
