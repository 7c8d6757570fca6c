package ai

// questionSchema is the JSON Schema every generated quiz must satisfy after
// answer normalization. Unknown properties are tolerated and dropped on decode.
const questionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["question_type", "question_text", "options", "correct_answer", "explanation"],
        "properties": {
          "question_type": {
            "type": "string",
            "enum": ["multiple_choice", "error_identification", "sentence_completion", "reading_comprehension"]
          },
          "passage": { "type": ["string", "null"] },
          "question_text": { "type": "string", "minLength": 1 },
          "options": {
            "type": "array",
            "minItems": 4,
            "maxItems": 4,
            "items": { "type": "string" }
          },
          "correct_answer": { "type": "string", "enum": ["A", "B", "C", "D"] },
          "explanation": { "type": "string", "minLength": 1 }
        }
      }
    }
  }
}`
