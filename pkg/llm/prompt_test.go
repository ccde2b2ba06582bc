package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(
		"We thank the CMCA for access to the SEM.",
		"The authors acknowledge the facilities of CMCA at UWA.",
		0.8675,
	)

	assert.Contains(t, p, `"We thank the CMCA for access to the SEM."`)
	assert.Contains(t, p, `"The authors acknowledge the facilities of CMCA at UWA."`)
	assert.Contains(t, p, "0.87")
	for _, e := range Entities {
		assert.Contains(t, p, e)
	}
	assert.Contains(t, p, "Answer: [Yes or No]")
	assert.True(t, strings.HasPrefix(p, "You are a research compliance auditor"))
}
