package classifier

import (
	"math"
	"regexp"
	"strings"
)

// Categories.
const (
	CategoryCodeGeneration      = "code_generation"
	CategoryDocumentCreation    = "document_creation"
	CategoryBusinessDevelopment = "business_development"
	CategoryHumanResources      = "human_resources"
	CategoryAccountingFinance   = "accounting_finance"
	CategoryGeneralQA           = "general_qa"
)

// Result is the classification outcome. Secondary is set only when a second
// category also scored above zero.
type Result struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Secondary  string  `json:"secondary,omitempty"`
}

type categoryDef struct {
	name     string
	phrases  []string
	keywords []string
}

// Iteration order breaks score ties, so the definitions below are a fixed
// priority list, not a map.
var categories = []categoryDef{
	{
		name: CategoryCodeGeneration,
		phrases: []string{
			"write a function", "write a script", "fix this bug", "code review",
			"unit test", "pull request", "stack trace", "error message",
			"refactor this", "debug this",
		},
		keywords: []string{
			"code", "function", "python", "javascript", "typescript", "java",
			"golang", "sql", "api", "bug", "debug", "compile", "script",
			"regex", "algorithm", "repository", "git", "refactor", "class",
			"variable", "exception", "terminal", "bash", "docker", "kubernetes",
		},
	},
	{
		name: CategoryDocumentCreation,
		phrases: []string{
			"write a document", "draft a memo", "executive summary",
			"meeting notes", "write an email", "edit this draft",
			"talking points",
		},
		keywords: []string{
			"document", "memo", "report", "draft", "summary", "proposal",
			"presentation", "slides", "letter", "outline", "proofread",
			"rewrite", "formatting", "newsletter",
		},
	},
	{
		name: CategoryBusinessDevelopment,
		phrases: []string{
			"request for proposal", "statement of work", "past performance",
			"capture plan", "teaming agreement", "basis of estimate",
			"price to win",
		},
		keywords: []string{
			"rfp", "rfi", "rfq", "contract", "bid", "solicitation", "gsa",
			"naics", "teaming", "subcontract", "capture", "award", "federal",
			"agency", "idiq", "sow", "proposal", "pricing", "incumbent",
		},
	},
	{
		name: CategoryHumanResources,
		phrases: []string{
			"performance review", "job description", "offer letter",
			"employee handbook", "exit interview", "new hire",
		},
		keywords: []string{
			"hr", "hiring", "recruiting", "onboarding", "employee",
			"benefits", "payroll", "pto", "interview", "candidate",
			"termination", "promotion", "compensation", "timesheet",
		},
	},
	{
		name: CategoryAccountingFinance,
		phrases: []string{
			"profit and loss", "balance sheet", "cash flow",
			"accounts payable", "accounts receivable", "journal entry",
			"indirect rates",
		},
		keywords: []string{
			"invoice", "accounting", "budget", "expense", "revenue", "tax",
			"audit", "ledger", "reconciliation", "quickbooks", "p&l", "gaap",
			"depreciation", "forecast", "margin",
		},
	},
}

var reNonWord = regexp.MustCompile(`[^A-Za-z0-9_&\s]`)

func normalize(text string) string {
	return strings.ToLower(reNonWord.ReplaceAllString(text, " "))
}

// Classify scores the text against every category. Phrases weigh 3, keyword
// whole-word hits weigh 1, and a cli source adds 4 to code_generation.
func Classify(text, source string) Result {
	norm := normalize(text)

	words := map[string]bool{}
	for _, w := range strings.Fields(norm) {
		words[w] = true
	}

	scores := make([]int, len(categories))
	for i, cat := range categories {
		score := 0
		for _, p := range cat.phrases {
			if strings.Contains(norm, p) {
				score += 3
			}
		}
		for _, k := range cat.keywords {
			if strings.Contains(k, "&") {
				if strings.Contains(norm, k) {
					score++
				}
			} else if words[k] {
				score++
			}
		}
		if cat.name == CategoryCodeGeneration && source == "cli" {
			score += 4
		}
		scores[i] = score
	}

	top, second := -1, -1
	for i := range categories {
		if top < 0 || scores[i] > scores[top] {
			second = top
			top = i
		} else if second < 0 || scores[i] > scores[second] {
			second = i
		}
	}

	if scores[top] == 0 {
		return Result{Category: CategoryGeneralQA, Confidence: 1}
	}

	res := Result{Category: categories[top].name, Confidence: 1}
	if second >= 0 && scores[second] > 0 {
		total := scores[top] + scores[second]
		res.Confidence = math.Round(float64(scores[top])/float64(total)*100) / 100
		res.Secondary = categories[second].name
	}
	return res
}
