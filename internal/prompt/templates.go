package prompt

const readingTask = `
Generate a TOEFL-style reading comprehension exercise.

Difficulty: {{.Difficulty}}
Write an academic passage of {{.Band}} words on a topic such as science, history or social studies.
Generate {{.Count}} multiple choice questions about the passage.

Each question must test one of these skills:
- Main idea comprehension
- Detail identification
- Inference
- Vocabulary in context

Return JSON in this format:
{
  "questions": [
    {
      "question_type": "reading_comprehension",
      "passage": "The full passage text...",
      "question_text": "Question about the passage...",
      "options": ["A) First option", "B) Second option", "C) Third option", "D) Fourth option"],
      "correct_answer": "A",
      "explanation": "Why this answer is correct..."
    }
  ]
}

Use the SAME passage for every question and repeat it in each question object.
`

const grammarTask = `
Generate {{.Count}} TOEFL-style grammar questions.

Difficulty: {{.Difficulty}}
Focus on: {{.Band}}

Include both question types:
1. Error identification: find the grammatical error in the sentence
2. Sentence completion: fill in the blank with the correct form

Return JSON in this format:
{
  "questions": [
    {
      "question_type": "error_identification",
      "passage": null,
      "question_text": "Identify the error: The students [A) has been] working [B) on their] project [C) since] three [D) hours].",
      "options": ["A) has been", "B) on their", "C) since", "D) hours"],
      "correct_answer": "C",
      "explanation": "'Since' should be 'for'. Use 'for' with a duration and 'since' with a point in time."
    },
    {
      "question_type": "sentence_completion",
      "passage": null,
      "question_text": "If I _____ about the meeting, I would have attended.",
      "options": ["A) knew", "B) had known", "C) have known", "D) would know"],
      "correct_answer": "B",
      "explanation": "Third conditional: the if-clause takes 'had' plus the past participle for unreal past situations."
    }
  ]
}
`

const vocabularyTask = `
Generate {{.Count}} TOEFL-style vocabulary questions.

Difficulty: {{.Difficulty}}
Vocabulary level: {{.Band}}

Each question must:
- Present the word in context, inside a sentence
- Ask for its meaning or a synonym
- Offer plausible distractors

Return JSON in this format:
{
  "questions": [
    {
      "question_type": "multiple_choice",
      "passage": null,
      "question_text": "The scientist's hypothesis was subsequently validated by multiple experiments. The word 'validated' is closest in meaning to:",
      "options": ["A) questioned", "B) confirmed", "C) rejected", "D) modified"],
      "correct_answer": "B",
      "explanation": "'Validated' means confirmed or shown to be correct."
    }
  ]
}
`

const listeningTask = `
Generate a TOEFL-style listening comprehension exercise as a text transcript.

Difficulty: {{.Difficulty}}
Write {{.Band}} as a transcript of 100-200 words with speaker labels.
Generate {{.Count}} comprehension questions.

Cover these question types:
- Main idea or purpose
- Details
- Speaker attitude or opinion
- Inference

Return JSON in this format:
{
  "questions": [
    {
      "question_type": "multiple_choice",
      "passage": "[Transcript]\nProfessor: Today we'll discuss...\nStudent: So you mean that...",
      "question_text": "What is the main purpose of the lecture?",
      "options": ["A) To explain...", "B) To describe...", "C) To compare...", "D) To argue..."],
      "correct_answer": "A",
      "explanation": "The professor mainly..."
    }
  ]
}

Use the SAME transcript for every question and repeat it in each question object.
`

const mixedTask = `
Generate {{.Count}} mixed TOEFL-style questions covering different skills.

Difficulty: {{.Difficulty}}

Include a variety of:
- Reading comprehension with short passages
- Grammar: error identification and sentence completion
- Vocabulary in context

Spread the questions across these types. Each question must be self-contained.

Return JSON in this format:
{
  "questions": [
    {
      "question_type": "multiple_choice | error_identification | sentence_completion | reading_comprehension",
      "passage": "Short passage if needed, otherwise null",
      "question_text": "The question...",
      "options": ["A) ...", "B) ...", "C) ...", "D) ..."],
      "correct_answer": "A",
      "explanation": "Why this is correct..."
    }
  ]
}
`
