package tagger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/brunobiangulo/bizextract/graph"
	"github.com/brunobiangulo/bizextract/llm"
)

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 2000
)

// entityPrompt asks the model for entity surface forms only; offsets are
// recovered locally by searching the text.
const entityPrompt = `Ты система извлечения именованных сущностей из деловых документов на русском языке.
Найди в тексте все именованные сущности.

ТИПЫ (используй ровно эти значения):
- PER  : человек (фамилия, имя, инициалы)
- ORG  : организация, компания, государственный орган
- LOC  : город, регион, страна, адрес
- MISC : прочие имена собственные (продукты, мероприятия, документы с названием)

Верни JSON-объект с одним ключом:
  "entities" : массив {"text": string, "type": string}

Правила:
- "text" должен в точности совпадать с фрагментом исходного текста.
- Не изменяй регистр и падеж.
- Если сущностей нет, верни пустой массив.
- Не добавляй ничего вне JSON-объекта.

ТЕКСТ:
%s`

// codeBlockRe strips markdown code fences from LLM output.
var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

type llmEntity struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

type llmResult struct {
	Entities []llmEntity `json:"entities"`
}

// LLM is the statistical backend: a chat model behind an OpenAI-compatible
// endpoint labels the spans.
type LLM struct {
	chat        llm.Provider
	model       string
	temperature float64
	maxTokens   int
}

// NewLLM creates the LLM backend around an existing provider. A nil
// temperature and zero max tokens take their defaults; an explicit zero
// temperature is kept.
func NewLLM(provider llm.Provider, cfg Config) *LLM {
	t := &LLM{
		chat:        provider,
		model:       cfg.LLM.Model,
		temperature: defaultTemperature,
		maxTokens:   cfg.MaxTokens,
	}
	if cfg.Temperature != nil {
		t.temperature = *cfg.Temperature
	}
	if t.maxTokens <= 0 {
		t.maxTokens = defaultMaxTokens
	}
	return t
}

// Name implements Tagger.
func (t *LLM) Name() string { return BackendLLM }

// Tag implements Tagger.
func (t *LLM) Tag(ctx context.Context, text string) ([]graph.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	temperature := t.temperature
	resp, err := t.chat.Chat(ctx, llm.ChatRequest{
		Model: t.model,
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf(entityPrompt, text)},
		},
		Temperature:    &temperature,
		MaxTokens:      t.maxTokens,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return nil, fmt.Errorf("entity tagging llm chat: %w", err)
	}

	jsonStr, err := extractJSON(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing entity tagging result: %w", err)
	}
	var result llmResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("unmarshalling entity tagging result: %w", err)
	}

	var cands []span
	for _, e := range result.Entities {
		name := strings.TrimSpace(e.Text)
		if name == "" {
			continue
		}
		typ := normalizeType(e.Type)
		found := false
		for from := 0; from < len(text); {
			i := strings.Index(text[from:], name)
			if i < 0 {
				break
			}
			start, end := from+i, from+i+len(name)
			if !wholeWord(text, start, end) {
				_, size := utf8.DecodeRuneInString(text[start:])
				from = start + size
				continue
			}
			cands = append(cands, span{start: start, end: end, typ: typ})
			found = true
			from = end
		}
		if !found {
			slog.Debug("tagger: llm entity not found in text", "text", name, "type", typ)
		}
	}
	return resolveSpans(text, cands), nil
}

// normalizeType maps the model's label onto the tag set. Unknown labels
// become MISC.
func normalizeType(t string) string {
	switch strings.ToUpper(strings.TrimSpace(t)) {
	case "PER", "PERSON":
		return graph.TypePerson
	case "ORG", "ORGANIZATION", "ORGANISATION":
		return graph.TypeOrg
	case "LOC", "LOCATION", "GPE":
		return graph.TypeLocation
	default:
		return graph.TypeMisc
	}
}

// extractJSON attempts to extract a JSON object from an LLM response that
// may contain markdown code blocks or surrounding text.
func extractJSON(raw string) (string, error) {
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}

	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		return raw, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}

	return "", fmt.Errorf("no JSON object found in response")
}
