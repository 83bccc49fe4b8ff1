package bench

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// TranslateTask translates text between a fixed language pair through a
// chat-completions endpoint.
type TranslateTask struct {
	Src     string
	Tgt     string
	DataDir string // directory holding flores_<src>-<tgt>.jsonl eval data
}

// NewTranslateTask builds a translate task for the given language pair.
func NewTranslateTask(src, tgt, dataDir string) *TranslateTask {
	if dataDir == "" {
		dataDir = "data"
	}
	return &TranslateTask{Src: src, Tgt: tgt, DataDir: dataDir}
}

func (t *TranslateTask) Name() string { return "translate" }

func (t *TranslateTask) Run(ctx context.Context, text string, cfg *Config) (*TaskResult, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.HTTPTimeout())
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(
					"You are a professional translator. Translate the user's text from %s to %s. "+
						"Output only the translation, with no commentary.", t.Src, t.Tgt),
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

func (t *TranslateTask) LoadEvalData(n int) ([]Sample, error) {
	path := filepath.Join(t.DataDir, fmt.Sprintf("flores_%s-%s.jsonl", t.Src, t.Tgt))
	return loadJSONLSamples(path, n)
}

func (t *TranslateTask) ComputeScores(samples []Sample, outputs []string) ([]*float64, error) {
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

func (t *TranslateTask) CacheKey() string {
	return fmt.Sprintf("translate_%s_%s", t.Src, t.Tgt)
}

func (t *TranslateTask) Params() map[string]any {
	return map[string]any{"source_lang": t.Src, "target_lang": t.Tgt}
}

func (t *TranslateTask) MetricName() string { return "chrf" }

func (t *TranslateTask) FormatProgress() string {
	return fmt.Sprintf("%s->%s", t.Src, t.Tgt)
}

// classifyRequestError rewraps endpoint errors so timeout failures carry
// the "timeout" substring the outcome classifier looks for.
func classifyRequestError(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timeout after %s: %w", timeout, err)
	}
	return fmt.Errorf("completion request failed: %w", err)
}
