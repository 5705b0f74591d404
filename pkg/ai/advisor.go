// Package ai answers free-text questions about tracked stocks through an
// OpenRouter-hosted chat model. It degrades to a canned reply when no API
// key is configured, so the rest of the service never depends on it.
package ai

import (
    "context"
    "fmt"
    "regexp"
    "strings"

    openai "github.com/sashabaranov/go-openai"
    "go.uber.org/zap"

    "stockdash/pkg/logger"
    "stockdash/pkg/metrics"
    "stockdash/pkg/models"
)

const (
    openRouterBaseURL = "https://openrouter.ai/api/v1"
    DefaultModel      = "deepseek/deepseek-chat"

    // historyWindow bounds how many past exchanges are replayed as context.
    historyWindow = 5

    unavailableReply = "AI chat is not configured. Set OPENROUTER_API_KEY to enable it."
)

var tickerInText = regexp.MustCompile(`\b[A-Z]{1,5}\b`)

// Advisor produces chat replies grounded in current quote data.
type Advisor struct {
    client *openai.Client
    model  string
}

// NewAdvisor builds an Advisor. An empty apiKey yields a disabled Advisor
// whose Reply always returns the unavailable message.
func NewAdvisor(apiKey, model string) *Advisor {
    if model == "" {
        model = DefaultModel
    }
    a := &Advisor{model: model}
    if apiKey != "" {
        cfg := openai.DefaultConfig(apiKey)
        cfg.BaseURL = openRouterBaseURL
        a.client = openai.NewClientWithConfig(cfg)
    }
    return a
}

// Enabled reports whether an upstream model is configured.
func (a *Advisor) Enabled() bool {
    return a.client != nil
}

// Reply answers one user message. Current quotes and the recent session
// history are folded into the prompt; history arrives oldest first.
func (a *Advisor) Reply(ctx context.Context, userMessage string, quotes []models.Quote, history []models.ChatMessage) (string, error) {
    if a.client == nil {
        metrics.ChatRequests.WithLabelValues("disabled").Inc()
        return unavailableReply, nil
    }

    messages := []openai.ChatCompletionMessage{{
        Role:    openai.ChatMessageRoleSystem,
        Content: systemPrompt(quotes),
    }}

    if len(history) > historyWindow {
        history = history[len(history)-historyWindow:]
    }
    for _, h := range history {
        messages = append(messages,
            openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: h.UserMessage},
            openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: h.AIResponse},
        )
    }
    messages = append(messages, openai.ChatCompletionMessage{
        Role:    openai.ChatMessageRoleUser,
        Content: userMessage,
    })

    resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
        Model:     a.model,
        Messages:  messages,
        MaxTokens: 500,
    })
    if err != nil {
        metrics.ChatRequests.WithLabelValues("error").Inc()
        logger.Log.Error("chat completion failed", zap.Error(err))
        return "", fmt.Errorf("chat completion: %w", err)
    }
    if len(resp.Choices) == 0 {
        metrics.ChatRequests.WithLabelValues("error").Inc()
        return "", fmt.Errorf("chat completion: empty response")
    }

    metrics.ChatRequests.WithLabelValues("success").Inc()
    return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// systemPrompt folds live quote data into the assistant instructions.
func systemPrompt(quotes []models.Quote) string {
    var b strings.Builder
    b.WriteString("You are a helpful stock market assistant. ")
    b.WriteString("Answer concisely using the market data below when relevant. ")
    b.WriteString("Do not give personalized financial advice.\n\nCurrent data:\n")
    for _, q := range quotes {
        fmt.Fprintf(&b, "- %s (%s): $%.2f, %+.2f%% today, volume %d\n",
            q.Symbol, q.CompanyName, q.Price, q.ChangePercent, q.Volume)
    }
    if len(quotes) == 0 {
        b.WriteString("(no quote data available)\n")
    }
    return b.String()
}

// ExtractSymbol picks the first known ticker mentioned in a message, so
// handlers can attach quote context and tag the stored exchange. Common
// English words that collide with tickers are skipped unless the message
// mentions them in obvious ticker form.
func ExtractSymbol(message string, known []string) string {
    knownSet := make(map[string]struct{}, len(known))
    for _, s := range known {
        knownSet[strings.ToUpper(s)] = struct{}{}
    }

    upper := strings.ToUpper(message)
    for _, candidate := range tickerInText.FindAllString(upper, -1) {
        if _, ok := knownSet[candidate]; ok {
            return candidate
        }
    }

    // $AAPL style mentions win even for unknown tickers.
    if i := strings.Index(upper, "$"); i >= 0 && i+1 < len(upper) {
        rest := upper[i+1:]
        if m := tickerInText.FindString(rest); m != "" && strings.HasPrefix(rest, m) {
            return m
        }
    }
    return ""
}
