package llm

import (
	"fmt"
	"strings"
)

// Entities the auditor treats as the facility and its funding bodies.
var Entities = []string{
	"CMCA",
	"UWA",
	"Microscopy Australia",
	"NCRIS",
}

const promptTemplate = `You are a research compliance auditor checking whether a scientific paper acknowledges the Centre for Microscopy, Characterisation and Analysis (CMCA) at The University of Western Australia (UWA), or its national programs Microscopy Australia and NCRIS.

Sentence from the paper:
"%s"

Closest known acknowledgement phrasing (cosine similarity %.2f):
"%s"

Decision criteria:
- Answer Yes if the sentence credits %s for facility access, instrumentation, funding, or scientific and technical assistance.
- Answer No if an entity appears only as an author affiliation, postal address, or bibliographic citation.
- Answer No if none of the entities are acknowledged.

Respond in exactly this format:
Answer: [Yes or No]
Reason: <one to three lines>`

// BuildPrompt renders the adjudication prompt for one sentence and its best
// retrieved reference phrase.
func BuildPrompt(sentenceText, bestMatch string, similarity float64) string {
	return fmt.Sprintf(promptTemplate,
		sentenceText,
		similarity,
		bestMatch,
		strings.Join(Entities, ", "))
}
