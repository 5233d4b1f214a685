package rag

import "strings"

// 回答生成使用的提示词模板集合
// {context} 与 {question} 为占位符，由 BuildPrompt 填充。
const (
	// DefaultRAGPrompt 标准文档问答模板，要求仅依据来源作答并带引用
	DefaultRAGPrompt = `You are Olivia, an AI research assistant. Answer the user's question based ONLY on the document sources provided below.

## Instructions
1. Base your answer EXCLUSIVELY on the provided sources
2. Cite sources using [Source: filename] format after relevant information
3. If the sources don't contain relevant information, clearly state this
4. Use clear structure with headings and bullet points where appropriate
5. Keep answers concise and focused

## Sources
{context}

## Question
{question}

## Your Answer (based only on the sources above)`

	// NoContextPrompt 无检索命中时的模板，强制固定的拒答话术
	NoContextPrompt = `You are Olivia, an AI research assistant for document Q&A.

The user asked a question, but no relevant information was found in the uploaded documents.

You MUST respond with exactly this message:
"I couldn't find any information about this topic in your uploaded documents.

To get better results, you could:
• Check that your documents contain the topic you're asking about
• Try rephrasing your question with different keywords
• Upload additional documents on this topic"

Do NOT mention domains like Technical, Commercial, Mathematical, or HR unless the user specifically asks about them.
Do NOT ask "who Krishna refers to" - just explain that no relevant information was found.`

	// LightweightPrompt 不挂接文档的快速对话模板
	LightweightPrompt = `You are Olivia, a helpful AI assistant.

Question: {question}

Answer helpfully and concisely:`

	// FallbackPrompt 最小兜底模板，自定义模板缺少占位符时使用
	FallbackPrompt = "Context:\n{context}\n\nQuestion: {question}\n\nAnswer:"

	// DetailedRAGPrompt 复杂解释类问题的详细模板
	DetailedRAGPrompt = `You are Olivia, an expert AI research assistant. Analyze the provided documents and answer the user's question thoroughly.

## Analysis Requirements
1. Carefully read all provided sources
2. Identify the most relevant information for the question
3. Synthesize information from multiple sources when available
4. Note any contradictions or gaps in the information
5. Provide a comprehensive, well-structured answer

## Document Sources
{context}

## User's Question
{question}

## Detailed Answer (cite sources with [Source: filename])`

	// ConciseRAGPrompt 短事实类问题的简洁模板
	ConciseRAGPrompt = `Based on your documents:

{context}

Question: {question}

Answer (brief, with source citations):`

	// AnalyticalRAGPrompt 比较与分析类问题的结构化模板
	AnalyticalRAGPrompt = `You are Olivia, an AI research analyst. Analyze the provided documents to answer the question analytically.

## Sources
{context}

## Question
{question}

## Analysis
Provide a structured analysis with:
1. Key findings
2. Supporting evidence from sources [Source: filename]
3. Any limitations or gaps in the information

## Conclusion`
)

// PromptType 提示词模板类型
type PromptType string

// 提示词模板类型常量
const (
	PromptDefault    PromptType = "default"
	PromptDetailed   PromptType = "detailed"
	PromptConcise    PromptType = "concise"
	PromptAnalytical PromptType = "analytical"
)

var promptTemplates = map[PromptType]string{
	PromptDefault:    DefaultRAGPrompt,
	PromptDetailed:   DetailedRAGPrompt,
	PromptConcise:    ConciseRAGPrompt,
	PromptAnalytical: AnalyticalRAGPrompt,
}

var analyticalKeywords = []string{"compare", "analyze", "difference", "relationship", "why"}

var detailedKeywords = []string{"explain", "describe", "how does", "what is the"}

// SelectPromptType 按查询特征选择模板类型
// 分析类关键词优先；其次解释类；长上下文配短查询用简洁模板；
// 其余走默认模板。
func SelectPromptType(query string, contextLength int) PromptType {
	lower := strings.ToLower(query)

	for _, kw := range analyticalKeywords {
		if strings.Contains(lower, kw) {
			return PromptAnalytical
		}
	}
	for _, kw := range detailedKeywords {
		if strings.Contains(lower, kw) {
			return PromptDetailed
		}
	}
	if len(strings.Fields(query)) <= 5 && contextLength > 5000 {
		return PromptConcise
	}
	return PromptDefault
}

// BuildPrompt 组装最终提示词
// 规则：自定义模板优先（缺少占位符则回退到兜底模板）；
// 上下文为空时切到无上下文模板；否则按查询特征选模板。
func BuildPrompt(query, context, customPrompt string) string {
	if customPrompt != "" {
		tmpl := customPrompt
		if !strings.Contains(tmpl, "{context}") || !strings.Contains(tmpl, "{question}") {
			tmpl = FallbackPrompt
		}
		return renderPrompt(tmpl, context, query)
	}

	if strings.TrimSpace(context) == "" {
		return renderPrompt(NoContextPrompt, context, query)
	}

	tmpl := promptTemplates[SelectPromptType(query, len(context))]
	return renderPrompt(tmpl, context, query)
}

// BuildLightweightPrompt 组装无文档的快速对话提示词
func BuildLightweightPrompt(query, customPrompt string) string {
	tmpl := LightweightPrompt
	if customPrompt != "" {
		tmpl = customPrompt
		if !strings.Contains(tmpl, "{question}") {
			tmpl = LightweightPrompt
		}
	}
	return renderPrompt(tmpl, "", query)
}

func renderPrompt(tmpl, context, question string) string {
	out := strings.ReplaceAll(tmpl, "{context}", context)
	return strings.ReplaceAll(out, "{question}", question)
}
