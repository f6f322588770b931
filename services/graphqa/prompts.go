package graphqa

import "github.com/tmc/langchaingo/prompts"

// The two prompt stages have fixed input names: query generation sees
// {question} and {schema}, answer synthesis sees {question} and
// {context}. Custom templates must use the same placeholders.
var (
	generationInputVariables = []string{"question", "schema"}
	synthesisInputVariables  = []string{"question", "context"}
)

// Literal braces are doubled: the templates use f-string placeholders,
// so {{ renders a single { in the GraphQL example.
const generationTemplateText = `Task: Generate a GraphQL query that answers a question using a graph database.
Instructions:
Use only the classes, properties, and references listed in the schema below.
Do not use any class, property, or reference that is not listed.
Write the query in the database's Get form, for example:
{{
  Get {{
    Station(limit: 5) {{
      name
    }}
  }}
}}
Schema:
{schema}
Note: Do not include any explanations or apologies in your response.
Do not include any text except the generated GraphQL query.

The question is:
{question}`

const synthesisTemplateText = `You are an assistant that forms clear, human-readable answers.
The information section contains authoritative data retrieved from a graph database.
Use it as the only basis for your answer; never doubt it or correct it from your own knowledge.
Phrase the answer as a direct response to the question. Do not mention that it is based on the provided information.
If the information is empty, say that you do not know the answer.
Information:
{context}

Question: {question}
Helpful Answer:`

// DefaultGenerationPrompt returns the built-in query-generation template.
func DefaultGenerationPrompt() prompts.PromptTemplate {
	return GenerationPromptFromText(generationTemplateText)
}

// DefaultSynthesisPrompt returns the built-in answer-synthesis template.
func DefaultSynthesisPrompt() prompts.PromptTemplate {
	return SynthesisPromptFromText(synthesisTemplateText)
}

// GenerationPromptFromText wraps custom template text with the fixed
// generation input variables.
func GenerationPromptFromText(text string) prompts.PromptTemplate {
	return newFStringTemplate(text, generationInputVariables)
}

// SynthesisPromptFromText wraps custom template text with the fixed
// synthesis input variables.
func SynthesisPromptFromText(text string) prompts.PromptTemplate {
	return newFStringTemplate(text, synthesisInputVariables)
}

// newFStringTemplate builds a template in f-string format.
// prompts.NewPromptTemplate defaults to Go templates, which would
// choke on the {placeholder} syntax the stages use.
func newFStringTemplate(text string, inputVariables []string) prompts.PromptTemplate {
	return prompts.PromptTemplate{
		Template:       text,
		InputVariables: inputVariables,
		TemplateFormat: prompts.TemplateFormatFString,
	}
}
