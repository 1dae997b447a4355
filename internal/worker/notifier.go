package worker

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// ReplaySummary describes one completed queue pass.
type ReplaySummary struct {
	Succeeded int
	Failed    int
	Dropped   []QueuedOperation // retries exhausted or terminal failure
}

// Notifier is told about finished queue passes. The queue emits one summary
// per pass and at most one per-operation detail for each dropped operation,
// never a message per retry attempt.
type Notifier interface {
	ReplayFinished(summary ReplaySummary)
}

// LogNotifier writes summaries to the structured log. Default when no mailer
// is configured.
type LogNotifier struct{}

func (LogNotifier) ReplayFinished(s ReplaySummary) {
	if s.Succeeded == 0 && s.Failed == 0 && len(s.Dropped) == 0 {
		return
	}
	log.Info().
		Int("succeeded", s.Succeeded).
		Int("failed", s.Failed).
		Int("dropped", len(s.Dropped)).
		Msg("queue: replay finished")
	for _, op := range s.Dropped {
		log.Warn().
			Str("op_id", op.ID).
			Str("type", op.Type).
			Int("retries", op.RetryCount).
			Msg("queue: operation dropped")
	}
}

// AlertSender is the outbound mail dependency, satisfied by infra.Mailer.
type AlertSender interface {
	SendAlert(subject, body string) error
}

// MailNotifier emails the operator when a pass dropped operations, on top of
// the structured log. Successful passes only log.
type MailNotifier struct {
	sender AlertSender
}

func NewMailNotifier(sender AlertSender) *MailNotifier {
	return &MailNotifier{sender: sender}
}

func (n *MailNotifier) ReplayFinished(s ReplaySummary) {
	LogNotifier{}.ReplayFinished(s)

	if len(s.Dropped) == 0 {
		return
	}
	body := fmt.Sprintf("Sync selesai: %d berhasil, %d gagal, %d operasi dibuang.\n\n", s.Succeeded, s.Failed, len(s.Dropped))
	for _, op := range s.Dropped {
		body += fmt.Sprintf("- %s (%s) dicoba %d kali\n", op.ID, op.Type, op.RetryCount)
	}
	if err := n.sender.SendAlert("Operasi sinkronisasi dibuang", body); err != nil {
		log.Error().Err(err).Msg("queue: alert mail failed")
	}
}
