package invoker

import "unicode/utf8"

// DefaultMaxPromptChars bounds the analyzed text sent to a backend.
const DefaultMaxPromptChars = 12000

// Generation parameters shared by every backend.
const (
	DefaultMaxTokens   = 300
	DefaultTemperature = 0.1
)

const systemPrompt = `You are a media analyst who rates the political bias of text.
Score the text from -1 (strongly left-leaning, liberal) through 0 (neutral) to 1 (strongly right-leaning, conservative).
Left-leaning signals: emphasis on regulation, social equity, collective welfare, labor and minority rights, climate action, critique of corporations or the wealthy.
Right-leaning signals: emphasis on free markets, tradition, limited government, lower taxes, national security, law and order, individual responsibility, religious or family values.
In the explanation, say why the text leans left or right: point to framing, word choice, and which viewpoints are included or left out.
Reply with exactly one JSON object and nothing else:
{"score": <number between -1 and 1>, "explanation": "<one or two sentences>"}`

func buildPrompt(text string, maxChars int) string {
	return "Text to analyze:\n\"\"\"\n" + truncateRunes(text, maxChars) + "\n\"\"\""
}

func truncateRunes(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i]
		}
		n++
	}
	return s
}
