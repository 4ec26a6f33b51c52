// Package ai adapts the OpenAI SDK to the narrative annotator interface.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"chiron/internal/domain/technical"
	"chiron/pkg/errors"
	"chiron/pkg/logger"
)

// Compile-time check
var _ technical.NarrativeAnnotator = (*NarrativeAnnotator)(nil)

const systemPrompt = `You are a market technician writing for retail investors.
Given a technical-analysis snapshot, write 2-4 plain sentences explaining what
the indicators collectively suggest. Mention the strongest support or
resistance level when one exists. Never give financial advice, never invent
numbers not present in the snapshot.`

// NarrativeAnnotator produces best-effort prose for a computed bundle using
// the official OpenAI Go SDK. It never contributes numbers; callers treat
// any failure as a degraded-but-valid outcome.
type NarrativeAnnotator struct {
	client  openai.Client
	model   openai.ChatModel
	timeout time.Duration
	log     *logger.Logger
}

// NewNarrativeAnnotator creates the annotator
func NewNarrativeAnnotator(apiKey, model string, timeout time.Duration) (*NarrativeAnnotator, error) {
	if apiKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "openai API key is required")
	}
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &NarrativeAnnotator{
		client:  client,
		model:   openai.ChatModel(model),
		timeout: timeout,
		log:     logger.Get().With("component", "narrative_annotator", "model", model),
	}, nil
}

// Explain turns the technical picture into human-readable text
func (a *NarrativeAnnotator) Explain(ctx context.Context, nc technical.NarrativeContext) (*technical.Annotation, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	response, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(renderContext(nc)),
		},
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNarrativeUnavailable, "openai API call failed: %v", err)
	}
	if len(response.Choices) == 0 {
		return nil, errors.Wrapf(errors.ErrNarrativeUnavailable, "no completion returned")
	}

	text := strings.TrimSpace(response.Choices[0].Message.Content)
	if text == "" {
		return nil, errors.Wrapf(errors.ErrNarrativeUnavailable, "empty completion")
	}

	a.log.Debugw("narrative generated",
		"instrument_id", nc.InstrumentID,
		"tokens_used", response.Usage.TotalTokens,
	)

	return &technical.Annotation{Text: text}, nil
}

// renderContext flattens the snapshot into a compact prompt. Only computed
// indicators are mentioned.
func renderContext(nc technical.NarrativeContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Instrument: %s\n", nc.InstrumentID)
	fmt.Fprintf(&b, "Current price: %.4f\n", nc.CurrentPrice)
	fmt.Fprintf(&b, "Overall signal: %s\n", nc.Signal)

	r := nc.Readings
	if r.RSI != nil {
		fmt.Fprintf(&b, "RSI(14): %.2f (%s)\n", r.RSI.Value, r.RSI.Signal)
	}
	if r.Stochastic != nil {
		fmt.Fprintf(&b, "Stochastic: K=%.2f D=%.2f (%s)\n", r.Stochastic.K, r.Stochastic.D, r.Stochastic.Signal)
	}
	if r.MACD != nil {
		fmt.Fprintf(&b, "MACD: %.4f signal=%.4f histogram=%.4f\n", r.MACD.MACD, r.MACD.Signal, r.MACD.Histogram)
	}
	if r.MovingAverages != nil {
		fmt.Fprintf(&b, "SMA50: %.4f SMA200: %.4f\n", r.MovingAverages.SMA50, r.MovingAverages.SMA200)
	}
	if r.Bollinger != nil {
		fmt.Fprintf(&b, "Bollinger: lower=%.4f middle=%.4f upper=%.4f\n", r.Bollinger.Lower, r.Bollinger.Middle, r.Bollinger.Upper)
	}
	if r.Ichimoku != nil {
		fmt.Fprintf(&b, "Ichimoku: tenkan=%.4f kijun=%.4f spanA=%.4f spanB=%.4f\n",
			r.Ichimoku.TenkanSen, r.Ichimoku.KijunSen, r.Ichimoku.SenkouSpanA, r.Ichimoku.SenkouSpanB)
	}

	if s := nc.Levels.StrongestSupport(); s != nil {
		fmt.Fprintf(&b, "Strongest support: %.4f (%d touches)\n", s.Price, s.Touches)
	}
	if res := nc.Levels.StrongestResistance(); res != nil {
		fmt.Fprintf(&b, "Strongest resistance: %.4f (%d touches)\n", res.Price, res.Touches)
	}

	return b.String()
}
