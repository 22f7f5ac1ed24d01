// Package slackhook announces freshly posted answers on a Slack channel.
// Announcing is best-effort and happens after the answer's transaction
// committed; a Slack failure never undoes an answer.
package slackhook

import (
	"fmt"

	"github.com/jhchabran/quorum"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

type Hook struct {
	client  *slack.Client
	channel string
	logger  zerolog.Logger
}

func New(token string, channel string, logger zerolog.Logger) *Hook {
	return &Hook{
		client:  slack.New(token),
		channel: channel,
		logger:  logger,
	}
}

// AnswerHook returns a hook posting a short announce for each new answer.
func (h *Hook) AnswerHook() quorum.AnswerHook {
	return func(question *quorum.Question, answer *quorum.Answer) error {
		text := fmt.Sprintf("New answer on %q by %s", question.Title, answer.Author)

		_, _, err := h.client.PostMessage(h.channel, slack.MsgOptionText(text, false))
		if err != nil {
			return err
		}

		h.logger.Debug().Str("channel", h.channel).Int64("answer_id", answer.ID).Msg("Announced answer")
		return nil
	}
}
