package question

// Both backends render the same instruction. The runner writes it to the
// child's stdin, the llm backend sends it as the chat prompt.
const questionPromptTemplate = `Generate a simple question based on the following summary:

{{.Summary}}

Question:`

type QuestionPromptTemplateData struct {
	Summary string
}
