package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_CLIBias(t *testing.T) {
	cli := Classify("help me with this task", "cli")
	assert.Equal(t, CategoryCodeGeneration, cli.Category)

	web := Classify("help me with this task", "web")
	assert.Equal(t, CategoryGeneralQA, web.Category)
	assert.Equal(t, 1.0, web.Confidence)
}

func TestClassify_CodeKeywords(t *testing.T) {
	res := Classify("write a function in python to parse this regex", "web")
	assert.Equal(t, CategoryCodeGeneration, res.Category)
	assert.Greater(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
}

func TestClassify_PhrasesOutweighKeywords(t *testing.T) {
	// One phrase (3) beats a single keyword (1).
	res := Classify("please draft a memo about the invoice", "web")
	assert.Equal(t, CategoryDocumentCreation, res.Category)
	assert.Equal(t, CategoryAccountingFinance, res.Secondary)
}

func TestClassify_AmpersandKeywordMatchesAsSubstring(t *testing.T) {
	res := Classify("please review the p&l for this quarter", "web")
	assert.Equal(t, CategoryAccountingFinance, res.Category)
}

func TestClassify_GovContracting(t *testing.T) {
	res := Classify("respond to the rfp solicitation from the federal agency", "web")
	assert.Equal(t, CategoryBusinessDevelopment, res.Category)
}

func TestClassify_HumanResources(t *testing.T) {
	res := Classify("write a performance review for the new employee", "web")
	assert.Equal(t, CategoryHumanResources, res.Category)
}

func TestClassify_NoSignal(t *testing.T) {
	res := Classify("what is the capital of France", "web")
	assert.Equal(t, CategoryGeneralQA, res.Category)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Empty(t, res.Secondary)
}

func TestClassify_ConfidenceSplit(t *testing.T) {
	// code: "code" + "python" = 2; docs: "document" = 1 -> 2/3 ≈ 0.67.
	res := Classify("code a python document", "web")
	assert.Equal(t, CategoryCodeGeneration, res.Category)
	assert.Equal(t, CategoryDocumentCreation, res.Secondary)
	assert.InDelta(t, 0.67, res.Confidence, 0.001)
}

func TestClassify_NormalizationStripsPunctuation(t *testing.T) {
	res := Classify("Debug!!! this??? stack-trace", "web")
	assert.Equal(t, CategoryCodeGeneration, res.Category)
}
