package llm

import "github.com/capitalize-ai/thinking-workspace/internal/model"

func systemPrompt(mode model.ResponseMode) string {
	switch mode {
	case model.ResponseModeQuick:
		return "Answer briefly, in a few sentences at most."
	case model.ResponseModeDeep:
		return "Give a thorough, well-structured analysis."
	case model.ResponseModeStepByStep:
		return "Work through the problem step by step, numbering each step."
	case model.ResponseModeQuestions:
		return "Respond with clarifying questions that help the user sharpen their thinking."
	default:
		return ""
	}
}

func maxTokens(mode model.ResponseMode) int {
	switch mode {
	case model.ResponseModeQuick:
		return 512
	case model.ResponseModeDeep, model.ResponseModeStepByStep:
		return 4096
	default:
		return 2048
	}
}
