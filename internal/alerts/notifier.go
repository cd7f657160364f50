package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dennisdiepolder/calldesk/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

const notifyTimeout = 10 * time.Second

// Notifier delivers an alert to people
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// SlackNotifier posts alerts to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{webhookURL: webhookURL}
}

func (n *SlackNotifier) Notify(ctx context.Context, alert Alert) error {
	icon := ":warning:"
	if alert.Severity == SeverityCritical {
		icon = ":rotating_light:"
	}

	msg := &slack.WebhookMessage{
		Text: alert.Message,
		Blocks: &slack.Blocks{BlockSet: []slack.Block{
			slack.NewHeaderBlock(
				slack.NewTextBlockObject(slack.PlainTextType, "Call desk alert", false, false),
			),
			slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("%s %s", icon, alert.Message), false, false),
				[]*slack.TextBlockObject{
					slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Rule*\n%s", alert.Rule), false, false),
					slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Employee*\n%d", alert.EmployeeID), false, false),
				},
				nil,
			),
		}},
	}

	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return fmt.Errorf("failed to post slack webhook: %w", err)
	}
	return nil
}

// LogNotifier only logs alerts; used when no webhook is configured
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, alert Alert) error {
	n.logger.Warn().
		Str("rule", alert.Rule).
		Str("severity", string(alert.Severity)).
		Uint("call_id", alert.CallID).
		Msg(alert.Message)
	return nil
}

// Dispatcher sends alerts in the background so mutations never wait on Slack
type Dispatcher struct {
	notifier Notifier
	logger   zerolog.Logger
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		logger:   logger.With().Str("component", "alerts").Logger(),
	}
}

// Dispatch delivers alerts asynchronously; failures are logged and counted
func (d *Dispatcher) Dispatch(ctx context.Context, alerts []Alert) {
	if len(alerts) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, alert := range alerts {
			sendCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
			err := d.notifier.Notify(sendCtx, alert)
			cancel()

			if err != nil {
				metrics.Get().RecordAlert(alert.Rule, "error")
				d.logger.Error().Err(err).Str("rule", alert.Rule).Uint("call_id", alert.CallID).Msg("alert delivery failed")
				continue
			}
			metrics.Get().RecordAlert(alert.Rule, "sent")
			d.logger.Info().Str("rule", alert.Rule).Uint("call_id", alert.CallID).Msg("alert sent")
		}
	}()
}

// Wait blocks until every dispatched alert has been handled
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
