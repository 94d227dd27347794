package translator

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/embergate-hq/ember-news-sync/internal/domain"
	"github.com/embergate-hq/ember-news-sync/internal/logger"
)

// Texts shorter than this are returned as-is without a vendor call.
const minTranslatableRunes = 5

const (
	plainSystemPrompt = "You are a professional translator. Translate the user's text " +
		"into Spanish. Keep proper nouns, game titles and product names untranslated. " +
		"Use natural, fluent Spanish phrasing rather than a literal word-for-word rendering. " +
		"Reply with the translation only, no commentary."

	htmlSystemPrompt = "You are a professional translator. Translate the user's HTML fragment " +
		"into Spanish. Preserve every HTML tag, attribute and entity exactly as in the input; " +
		"translate only the human-readable text between tags. Keep proper nouns, game titles " +
		"and product names untranslated. Use natural, fluent Spanish phrasing. " +
		"Reply with the translated HTML only, no commentary."
)

// chatClient is the subset of the vendor client the engine uses; openai.Client
// satisfies it, and tests substitute fakes.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Options tunes the vendor requests issued per field.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = openai.GPT4oMini
	}
	if o.Temperature <= 0 {
		o.Temperature = 0.3
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 4096
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	return o
}

// Engine translates single fields through a chat-completion vendor. It never
// surfaces vendor errors: every failure degrades to the untranslated input.
type Engine struct {
	client chatClient
	opts   Options
}

// New builds an engine backed by the configured vendor endpoint.
func New(apiKey, baseURL string, opts Options) *Engine {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
	return NewWithClient(openai.NewClientWithConfig(cfg), opts)
}

// NewWithClient builds an engine around an existing vendor client.
func NewWithClient(client chatClient, opts Options) *Engine {
	return &Engine{client: client, opts: opts.withDefaults()}
}

// Translate sends one vendor request for the given field and returns the
// translation, or text unchanged on short input or any vendor failure.
func (e *Engine) Translate(ctx context.Context, text string, isHTML bool) string {
	if utf8.RuneCountInString(text) < minTranslatableRunes {
		return text
	}

	system := plainSystemPrompt
	if isHTML {
		system = htmlSystemPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.opts.Model,
		Temperature: e.opts.Temperature,
		MaxTokens:   e.opts.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		logger.WarnObj("translation request failed, keeping original text", "translate_error", map[string]any{
			"is_html": isHTML,
			"error":   err.Error(),
		})
		return text
	}
	if len(resp.Choices) == 0 {
		logger.WarnObj("translation response had no choices, keeping original text", "translate_error", map[string]any{
			"is_html": isHTML,
		})
		return text
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return text
	}
	return out
}

// TranslateItem translates title and content with two concurrent vendor calls.
func (e *Engine) TranslateItem(ctx context.Context, item domain.NewsItem) domain.TranslatedNewsItem {
	out := domain.TranslatedNewsItem{NewsItem: item}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		out.TitleES = e.Translate(ctx, item.Title, false)
	}()
	go func() {
		defer wg.Done()
		out.ContentES = e.Translate(ctx, item.Content, true)
	}()
	wg.Wait()

	out.TranslatedAt = time.Now().UTC()
	return out
}

// TranslateBatch translates all items concurrently as one unordered batch and
// joins before returning; a failed field never cancels its siblings.
func (e *Engine) TranslateBatch(ctx context.Context, items []domain.NewsItem) []domain.TranslatedNewsItem {
	out := make([]domain.TranslatedNewsItem, len(items))

	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = e.TranslateItem(ctx, items[i])
		}(i)
	}
	wg.Wait()

	return out
}
