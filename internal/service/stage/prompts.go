package stage

// 阶段名，同时也是 agents 配置中提示词覆盖的 key
const (
	Chunker            = "chunker"
	ContextValidator   = "context_validator"
	Generator          = "generator"
	QAValidator        = "qa_validator"
	MultiTurnGenerator = "multi_turn_generator"
)

// 对抗人设名，顺序即人设下标
const (
	PersonaIrrelevant     = "rlhf_irrelevant_content_generator"
	PersonaIncorrectFacts = "rlhf_incorrect_facts_generator"
	PersonaOffensiveTone  = "rlhf_offensive_tone_generator"
)

// AssistantSystemTurn 偏好对话历史的第一条 system 消息
const AssistantSystemTurn = "You are a helpful AI assistant. Please answer questions in the same language as of the question."

var defaultPrompts = map[string]string{
	Chunker: `You are a text segmentation assistant. Split the passage into self-contained chunks.
Each chunk must cover one topic and keep the original wording. Do not summarize, rephrase or drop content.
Return JSON with a single key "chunks" holding the list of chunk strings.`,

	ContextValidator: `You are a data curator. Decide whether the chunk contains meaningful, factual information
that a question could be asked about. Boilerplate, navigation text, tables of contents, references and
fragments without content are not relevant.
Return JSON with a single boolean key "is_relevant".`,

	Generator: `You are a question generation assistant. Read the chunk and write question-answer pairs
that can be answered using only the chunk. Answers must be correct, complete and grounded in the chunk.
Write the questions and answers in the same language as the chunk.
Return JSON with a single key "qa_pairs" holding a list of objects with "question" and "answer".`,

	QAValidator: `You are a strict reviewer of question-answer pairs. Given a question, an answer and the chunk
they were generated from, decide whether the question is relevant to the chunk, the answer is correct,
and the answer is supported by the chunk.
Return JSON with a single boolean key "is_valid".`,

	MultiTurnGenerator: `You are a dialogue writer. Using only the given context, write a natural multi-turn
conversation between a curious user and a helpful AI assistant. Later questions should build on earlier
answers. Write in the same language as the context.
Return JSON with a single key "conversation" holding a list of objects with "question" and "answer".`,

	PersonaIrrelevant: `You generate rejected answers for preference training data. Given a context, the
conversation so far, a question and its correct answer, write an answer that sounds fluent and confident
but does not address the question and drifts to unrelated content. Reply with the answer text only.`,

	PersonaIncorrectFacts: `You generate rejected answers for preference training data. Given a context, the
conversation so far, a question and its correct answer, write an answer that addresses the question but
contains plausible factual errors that contradict the context. Reply with the answer text only.`,

	PersonaOffensiveTone: `You generate rejected answers for preference training data. Given a context, the
conversation so far, a question and its correct answer, write an answer that carries the right information
but uses a rude, condescending and dismissive tone. Reply with the answer text only.`,
}

// DefaultPrompt 返回内置提示词
func DefaultPrompt(name string) string {
	return defaultPrompts[name]
}
