package bench

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// SplitChunks splits text into word-boundary chunks of approximately
// chunkLength characters. Words longer than chunkLength get a chunk of
// their own.
func SplitChunks(text string, chunkLength int) []string {
	var chunks []string
	var current []string
	currentLen := 0

	for _, word := range strings.Fields(strings.TrimSpace(text)) {
		wordLen := len(word) + 1
		if currentLen+wordLen > chunkLength && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = []string{word}
			currentLen = wordLen
		} else {
			current = append(current, word)
			currentLen += wordLen
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// DownloadText fetches a plain-text corpus over HTTP.
func DownloadText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", url, err)
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	logrus.Debugf("downloaded %d bytes from %s", len(body), url)
	return string(body), nil
}

// LogQuery is one request extracted from a proxy request log.
type LogQuery struct {
	TargetLang string
	Texts      []string
}

var httpRequestRe = regexp.MustCompile(`<HTTP_REQUEST[^>]*>(.*?)</HTTP_REQUEST>`)

// ParseRequestLog extracts translation queries from a request log: lines
// carrying an escaped JSON chat payload between HTTP_REQUEST tags, whose
// user message is itself JSON with target_lang and texts. Undecodable
// lines are skipped.
func ParseRequestLog(path string) ([]LogQuery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	var queries []LogQuery
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		m := httpRequestRe.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		payload, err := strconv.Unquote(`"` + m[1] + `"`)
		if err != nil {
			continue
		}

		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.Unmarshal([]byte(payload), &body); err != nil {
			continue
		}

		var userContent string
		for _, msg := range body.Messages {
			if msg.Role == "user" {
				userContent = msg.Content
				break
			}
		}
		if userContent == "" {
			continue
		}

		var inner struct {
			TargetLang string `json:"target_lang"`
			Texts      []struct {
				Text string `json:"text"`
			} `json:"texts"`
		}
		if err := json.Unmarshal([]byte(userContent), &inner); err != nil {
			continue
		}
		if len(inner.Texts) == 0 {
			continue
		}

		q := LogQuery{TargetLang: inner.TargetLang}
		if q.TargetLang == "" {
			q.TargetLang = "Unknown"
		}
		for _, t := range inner.Texts {
			q.Texts = append(q.Texts, t.Text)
		}
		queries = append(queries, q)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log %s: %w", path, err)
	}
	return queries, nil
}

// loadJSONLSamples reads evaluation samples from a JSONL file with
// {"input": ..., "reference": ...} rows, up to n (0 = all).
func loadJSONLSamples(path string, n int) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open eval data %s: %w", path, err)
	}
	defer f.Close()

	var samples []Sample
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row struct {
			Input     string         `json:"input"`
			Reference string         `json:"reference"`
			Meta      map[string]any `json:"meta"`
		}
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("parse eval data %s: %w", path, err)
		}
		samples = append(samples, Sample{Input: row.Input, Reference: row.Reference, Meta: row.Meta})
		if n > 0 && len(samples) >= n {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan eval data %s: %w", path, err)
	}
	return samples, nil
}
