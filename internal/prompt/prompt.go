// Package prompt renders the instructions sent to the text generator for each
// quiz category and difficulty.
package prompt

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/stemsi/toefl-quiz-backend/internal/model"
)

// Prompt is a rendered pair of instructions for one generation request.
type Prompt struct {
	System string
	Task   string
}

// input is the data every category template is executed against.
type input struct {
	Difficulty model.Difficulty
	Count      int
	// Band is the difficulty-dependent parameter of the category:
	// passage length, grammar focus, vocabulary tier or transcript style.
	Band string
}

const systemPrompt = `You are a TOEFL test preparation expert. Generate high-quality practice questions that match the style and difficulty of the real TOEFL exam.

IMPORTANT:
- Return ONLY valid JSON, no markdown and no commentary
- All text must be in English
- Questions must match the requested difficulty level
- Explanations must teach the student why the correct answer is correct`

type categoryTemplate struct {
	bands map[model.Difficulty]string
	tmpl  *template.Template
}

var templates = map[model.Category]categoryTemplate{
	model.CategoryReading: {
		bands: map[model.Difficulty]string{
			model.DifficultyEasy:   "100-150",
			model.DifficultyMedium: "150-200",
			model.DifficultyHard:   "200-250",
		},
		tmpl: mustParse("reading", readingTask),
	},
	model.CategoryGrammar: {
		bands: map[model.Difficulty]string{
			model.DifficultyEasy:   "basic verb tenses, articles, simple prepositions",
			model.DifficultyMedium: "complex tenses, conditionals, relative clauses",
			model.DifficultyHard:   "advanced grammar, subtle errors, complex structures",
		},
		tmpl: mustParse("grammar", grammarTask),
	},
	model.CategoryVocabulary: {
		bands: map[model.Difficulty]string{
			model.DifficultyEasy:   "common academic words (B1-B2 level)",
			model.DifficultyMedium: "intermediate academic vocabulary (B2-C1 level)",
			model.DifficultyHard:   "advanced academic vocabulary (C1-C2 level)",
		},
		tmpl: mustParse("vocabulary", vocabularyTask),
	},
	model.CategoryListening: {
		bands: map[model.Difficulty]string{
			model.DifficultyEasy:   "a simple conversation between two students",
			model.DifficultyMedium: "an academic discussion or short lecture excerpt",
			model.DifficultyHard:   "a complex lecture with multiple speakers or dense academic content",
		},
		tmpl: mustParse("listening", listeningTask),
	},
	model.CategoryMixed: {
		tmpl: mustParse("mixed", mixedTask),
	},
}

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Option("missingkey=zero").Parse(text))
}

// Build renders the system and task instructions for a quiz. Unknown
// categories fall back to the mixed template; an unknown difficulty uses the
// medium band. The result is deterministic for identical inputs.
func Build(category model.Category, difficulty model.Difficulty, count int) Prompt {
	ct, ok := templates[category]
	if !ok {
		ct = templates[model.CategoryMixed]
	}

	band, ok := ct.bands[difficulty]
	if !ok {
		band = ct.bands[model.DifficultyMedium]
	}

	var b bytes.Buffer
	// Templates are static and only reference fields of input.
	_ = ct.tmpl.Execute(&b, input{Difficulty: difficulty, Count: count, Band: band})

	return Prompt{
		System: systemPrompt,
		Task:   strings.TrimSpace(b.String()),
	}
}
