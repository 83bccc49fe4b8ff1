package bench

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// SummarizeTask produces a short summary of the input in a fixed language.
type SummarizeTask struct {
	Lang    string
	DataDir string // directory holding xlsum_<lang>.jsonl eval data
}

// NewSummarizeTask builds a summarize task for the given language.
func NewSummarizeTask(lang, dataDir string) *SummarizeTask {
	if dataDir == "" {
		dataDir = "data"
	}
	return &SummarizeTask{Lang: lang, DataDir: dataDir}
}

func (t *SummarizeTask) Name() string { return "summarize" }

func (t *SummarizeTask) Run(ctx context.Context, text string, cfg *Config) (*TaskResult, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.HTTPTimeout())
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(
					"Summarize the user's text in one or two sentences, in %s. "+
						"Output only the summary.", t.Lang),
			},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	}

	start := time.Now()
	resp, err := cfg.chatClient().CreateChatCompletion(ctx, req)
	duration := time.Since(start)
	if err != nil {
		return nil, classifyRequestError(err, cfg.HTTPTimeout())
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in completion response")
	}

	return &TaskResult{
		Output:   resp.Choices[0].Message.Content,
		Timing:   ParseTimingHeaders(resp.Header()),
		Duration: duration,
	}, nil
}

func (t *SummarizeTask) LoadEvalData(n int) ([]Sample, error) {
	path := filepath.Join(t.DataDir, fmt.Sprintf("xlsum_%s.jsonl", t.Lang))
	return loadJSONLSamples(path, n)
}

func (t *SummarizeTask) ComputeScores(samples []Sample, outputs []string) ([]*float64, error) {
	scores := make([]*float64, len(samples))
	for i, s := range samples {
		if i >= len(outputs) || outputs[i] == "" {
			continue
		}
		v := ChrF(outputs[i], s.Reference)
		scores[i] = &v
	}
	return scores, nil
}

func (t *SummarizeTask) CacheKey() string {
	return "summarize_" + t.Lang
}

func (t *SummarizeTask) Params() map[string]any {
	return map[string]any{"lang": t.Lang}
}

func (t *SummarizeTask) MetricName() string { return "chrf" }

func (t *SummarizeTask) FormatProgress() string { return t.Lang }
