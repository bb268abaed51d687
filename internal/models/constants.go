package models

const (
	// InferenceModel is the Ollama model every answer is generated with.
	InferenceModel = "llama2:7b"
	// EmbeddingModel is the local Ollama model used for chunks and queries.
	EmbeddingModel = "all-minilm"

	ContextSeparator = "\n\n"
)

// QAPromptTemplate uses f-string slots filled by the QA chain.
var QAPromptTemplate = `Use the following pieces of context to answer the question at the end.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
Use three sentences maximum and keep the answer as concise as possible.
{context}
Question: {question}
Helpful Answer:`
