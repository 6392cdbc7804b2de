package Slack

import (
	"context"
	"strings"

	"ClinOps/Chatbot"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"
)

// Listener answers "!<bot> <message>" in the channel using the chatbot
// registry.
type Listener struct {
	api     *slack.Client
	socket  *socketmode.Client
	channel string
	bots    *Chatbot.Registry
	log     *zap.Logger
}

func NewListener(botToken, appToken, channel string, bots *Chatbot.Registry, log *zap.Logger) (*Listener, error) {
	if botToken == "" || appToken == "" || channel == "" {
		return nil, ErrNotConfigured
	}
	api := slack.New(botToken, slack.OptionAppLevelToken(appToken), slack.OptionDebug(false))
	return &Listener{
		api:     api,
		socket:  socketmode.New(api),
		channel: channel,
		bots:    bots,
		log:     log,
	}, nil
}

// Run blocks until ctx is cancelled or the socket fails.
func (l *Listener) Run(ctx context.Context) error {
	go l.consume(ctx, l.socket.Events)

	l.log.Info("slack chat listener started", zap.String("channel", l.channel))
	return l.socket.RunContext(ctx)
}

// consume handles events until ctx is done or the channel is closed.
func (l *Listener) consume(ctx context.Context, events <-chan socketmode.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case envelope, ok := <-events:
			if !ok {
				return
			}
			l.handle(ctx, envelope)
		}
	}
}

func (l *Listener) handle(ctx context.Context, envelope socketmode.Event) {
	if envelope.Type != socketmode.EventTypeEventsAPI {
		return
	}
	event, ok := envelope.Data.(slackevents.EventsAPIEvent)
	if !ok {
		l.log.Warn("unexpected slack event payload", zap.String("type", string(envelope.Type)))
		return
	}
	if envelope.Request != nil {
		l.socket.Ack(*envelope.Request)
	}
	if event.Type != slackevents.CallbackEvent {
		return
	}
	msg, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok || msg.BotID != "" || msg.Channel != l.channel {
		return
	}
	reply, ok := Answer(l.bots, msg.Text, msg.User)
	if !ok {
		return
	}
	if _, _, err := l.api.PostMessageContext(ctx, msg.Channel,
		slack.MsgOptionText(reply, false),
		slack.MsgOptionTS(msg.TimeStamp),
	); err != nil {
		l.log.Error("slack reply failed", zap.Error(err))
	}
}

// Answer parses "!<bot> <message>" and returns the bot's reply. ok is false
// for anything that is not a command for a known bot.
func Answer(bots *Chatbot.Registry, text, user string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "!") {
		return "", false
	}
	name, message, _ := strings.Cut(strings.TrimPrefix(text, "!"), " ")
	bot, ok := bots.Get(name)
	if !ok {
		return "", false
	}
	return bot.Respond(message, Chatbot.Context{UserName: user}), true
}
