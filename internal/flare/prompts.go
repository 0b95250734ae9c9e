package flare

import "strings"

const finishedMarker = "FINISHED"

const responsePrompt = `Respond to the user message using any relevant context. If context is provided, you should ground your answer in that context. Once you're done responding return FINISHED.

>>> CONTEXT: {context}
>>> USER INPUT: {user_input}
>>> RESPONSE: {response}`

const questionPrompt = `Given a user input and an existing partial response as context, ask a question to which the answer is the given term/entity/phrase:

>>> USER INPUT: {user_input}
>>> EXISTING PARTIAL RESPONSE: {current_response}

The question to which the answer is the term/entity/phrase "{uncertain_span}" is:`

// fill substitutes {name} placeholders in a single pass, so values that
// themselves contain braces are left untouched.
func fill(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func buildResponsePrompt(userInput, context, response string) string {
	return fill(responsePrompt, map[string]string{
		"context":    context,
		"user_input": userInput,
		"response":   response,
	})
}

func buildQuestionPrompt(userInput, currentResponse, span string) string {
	return fill(questionPrompt, map[string]string{
		"user_input":       userInput,
		"current_response": currentResponse,
		"uncertain_span":   span,
	})
}

// parseFinished trims text and reports whether it carried the marker, which
// is removed.
func parseFinished(text string) (string, bool) {
	cleaned := strings.TrimSpace(text)
	finished := strings.Contains(cleaned, finishedMarker)
	return strings.ReplaceAll(cleaned, finishedMarker, ""), finished
}
