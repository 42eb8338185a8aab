// Package bot is the dispatcher of the support bot. It classifies inbound
// commands, callbacks and text, and drives the dialogue, browse and
// correlator packages through a transport-neutral outbox.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/supportbot/core/logger"
	tg "github.com/m3rciful/supportbot/core/telegram"
	"github.com/m3rciful/supportbot/core/telegram/router"
	"github.com/m3rciful/supportbot/internal/browse"
	"github.com/m3rciful/supportbot/internal/callback"
	"github.com/m3rciful/supportbot/internal/compute"
	"github.com/m3rciful/supportbot/internal/correlator"
	"github.com/m3rciful/supportbot/internal/dialogue"
	"github.com/m3rciful/supportbot/internal/records"
	"github.com/m3rciful/supportbot/internal/users"
)

// Options are the collaborators of a Bot. Outbox, States, Records, Users and
// Answer are required.
type Options struct {
	Outbox  tg.Outbox
	States  dialogue.Store
	Records records.Store
	Users   users.Store
	// Answer computes the reply to a question. compute.ErrUnavailable is
	// reported to the user as a communication failure.
	Answer correlator.ComputeFunc
	// AnswerTimeout bounds one Answer call; zero means no deadline.
	AnswerTimeout time.Duration
	// AdminID receives a notice for every /send_message; zero disables it.
	AdminID int64
	Now     func() time.Time
}

// Bot handles updates for all conversations. It is safe for concurrent use;
// ordering within a conversation is the caller's concern.
type Bot struct {
	out     tg.Outbox
	states  dialogue.Store
	flow    *browse.Flow
	records records.Store
	users   users.Store
	corr    *correlator.Correlator
	router  *callback.Router
	adminID int64
	now     func() time.Time
	help    string
}

// Sender identifies who issued a command.
type Sender struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
}

// New wires a Bot and its callback router.
func New(opts Options) (*Bot, error) {
	if opts.Outbox == nil || opts.States == nil || opts.Records == nil || opts.Users == nil || opts.Answer == nil {
		return nil, errors.New("bot: outbox, states, records, users and answer are required")
	}
	b := &Bot{
		out:     opts.Outbox,
		states:  opts.States,
		flow:    browse.NewFlow(opts.States, opts.Records),
		records: opts.Records,
		users:   opts.Users,
		adminID: opts.AdminID,
		now:     opts.Now,
		help:    helpText(nil),
	}
	if b.now == nil {
		b.now = time.Now
	}

	corr, err := correlator.New(correlator.Options{
		Compute: opts.Answer,
		Notify:  b.notifyThinking,
		Deliver: b.deliverAnswer,
		Wrap:    answerWrap(opts.AnswerTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("bot: %w", err)
	}
	b.corr = corr

	r, err := callback.New(b.entries()...)
	if err != nil {
		return nil, fmt.Errorf("bot: %w", err)
	}
	b.router = r
	return b, nil
}

// Close stops accepting questions and waits for answers in flight.
func (b *Bot) Close(ctx context.Context) error {
	return b.corr.Close(ctx)
}

// answerWrap maps an unreachable compute service to a communication failure
// and applies the per-call deadline.
func answerWrap(timeout time.Duration) func(correlator.ComputeFunc) correlator.ComputeFunc {
	return func(next correlator.ComputeFunc) correlator.ComputeFunc {
		return func(ctx context.Context, question string) (string, error) {
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			answer, err := next(ctx, question)
			if errors.Is(err, compute.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: %v", correlator.ErrCommunication, err)
			}
			return answer, err
		}
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, msg tg.Message) error {
	_, err := b.out.Send(ctx, chatID, msg)
	return err
}

// Help lists the public commands.
func (b *Bot) Help(ctx context.Context, s Sender) error {
	return b.send(ctx, s.ChatID, tg.Message{Text: b.help})
}

// Start registers the sender as a default user unless already known and shows
// the main menu.
func (b *Bot) Start(ctx context.Context, s Sender) error {
	username := s.Username
	if username == "" {
		username = "none"
	}
	created, err := b.users.Register(ctx, users.User{
		TelegramID: s.UserID,
		Username:   username,
		Role:       users.RoleDefault,
		CreatedAt:  b.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("bot: register user: %w", err)
	}
	logger.Info(ctx, logger.CompStore, "user.register",
		slog.String("status", "ok"),
		slog.Bool("created", created),
	)
	b.states.Replace(s.ChatID, dialogue.Idle{})
	return b.send(ctx, s.ChatID, tg.Message{Text: startText, Keyboard: menuKeyboard()})
}

// SendMessage stores text as a pending request, echoes it and notifies the admin.
func (b *Bot) SendMessage(ctx context.Context, s Sender, text string) error {
	if text == "" {
		return b.send(ctx, s.ChatID, tg.Message{Text: sendUsageText})
	}
	rec, err := b.createRecord(ctx, s.UserID, text)
	if err != nil {
		return err
	}
	if err := b.send(ctx, s.ChatID, tg.Message{Text: sentText(text)}); err != nil {
		return err
	}
	if b.adminID == 0 || b.adminID == s.UserID {
		return nil
	}
	if err := b.send(ctx, b.adminID, tg.Message{Text: adminNoticeText(s.Username, rec)}); err != nil {
		logger.Warn(ctx, logger.CompTelegram, "admin.notify", slog.String("status", "fail"), logger.Err(err))
	}
	return nil
}

// FAQ shows the FAQ and waits for a free-form question.
func (b *Bot) FAQ(ctx context.Context, s Sender) error {
	if err := b.send(ctx, s.ChatID, tg.Message{Text: faqText(s.FirstName), Keyboard: faqKeyboard(), Markdown: true}); err != nil {
		return err
	}
	b.states.Replace(s.ChatID, dialogue.AwaitingInput{})
	return nil
}

// Accept marks the request addressed by arg ("<owner>:<id>") accepted and
// tells its owner.
func (b *Bot) Accept(ctx context.Context, s Sender, arg string) error {
	ref, err := records.ParseRef(arg)
	if err != nil {
		return b.send(ctx, s.ChatID, tg.Message{Text: acceptUsageText})
	}
	err = b.records.SetStatus(ctx, ref, records.StatusAccepted)
	if errors.Is(err, records.ErrNotFound) {
		return b.send(ctx, s.ChatID, tg.Message{Text: acceptMissingText})
	}
	if err != nil {
		return fmt.Errorf("bot: accept %s: %w", ref, err)
	}
	if err := b.send(ctx, s.ChatID, tg.Message{Text: acceptedText(ref)}); err != nil {
		return err
	}
	if ref.OwnerID != s.ChatID {
		if err := b.send(ctx, ref.OwnerID, tg.Message{Text: acceptedOwnerText}); err != nil {
			logger.Warn(ctx, logger.CompTelegram, "owner.notify", slog.String("status", "fail"), logger.Err(err))
		}
	}
	return nil
}

// UnknownText answers text that no dialogue or command took.
func (b *Bot) UnknownText(ctx context.Context, s Sender) error {
	return b.send(ctx, s.ChatID, tg.Message{Text: unknownText, Keyboard: menuKeyboard()})
}

func (b *Bot) createRecord(ctx context.Context, ownerID int64, text string) (records.Record, error) {
	rec, err := records.New(ownerID, text, b.now())
	if err != nil {
		return records.Record{}, err
	}
	if err := b.records.Create(ctx, rec); err != nil {
		return records.Record{}, fmt.Errorf("bot: store request: %w", err)
	}
	return rec, nil
}

// HandleCallback routes a button press. The returned name is empty when no
// entry matched.
func (b *Bot) HandleCallback(ctx context.Context, cb router.Callback) (string, error) {
	q := callback.Query{
		ConversationID: cb.ChatID,
		UserID:         cb.UserID,
		FirstName:      cb.FirstName,
		Message:        cb.Message,
		Raw:            cb.Data,
	}
	e, handled, err := b.router.Dispatch(ctx, q)
	if !handled {
		return "", nil
	}
	return e.Name, err
}

// InProgress reports whether plain text in chatID is a question.
func (b *Bot) InProgress(chatID int64) bool {
	return b.states.Get(chatID).Kind() == dialogue.KindAwaitingInput
}

// HandleText stores the question and hands it to the correlator. The answer
// arrives later as a separate message. A question the correlator refuses is
// removed again so it never lingers as pending.
func (b *Bot) HandleText(ctx context.Context, m router.TextMessage) error {
	rec, err := b.createRecord(ctx, m.UserID, m.Text)
	if err != nil {
		return err
	}
	err = b.corr.Submit(withRequest(ctx, rec.Ref()), m.ChatID, m.Text)
	if err == nil {
		return nil
	}
	if derr := b.records.Delete(ctx, rec.Ref()); derr != nil {
		logger.Warn(ctx, logger.CompStore, "request.discard",
			slog.String("status", "fail"),
			slog.String("ref", rec.Ref().String()),
			logger.Err(derr),
		)
	}
	return err
}

type requestKey struct{}

func withRequest(ctx context.Context, ref records.Ref) context.Context {
	return context.WithValue(ctx, requestKey{}, ref)
}

func requestFrom(ctx context.Context) (records.Ref, bool) {
	ref, ok := ctx.Value(requestKey{}).(records.Ref)
	return ref, ok
}

func (b *Bot) notifyThinking(ctx context.Context, conversationID int64) error {
	return b.send(ctx, conversationID, tg.Message{Text: thinkingText})
}

func (b *Bot) deliverAnswer(ctx context.Context, conversationID int64, o correlator.Outcome) error {
	switch {
	case errors.Is(o.Err, correlator.ErrCommunication):
		return b.send(ctx, conversationID, tg.Message{Text: unreachableText})
	case o.Err != nil:
		return b.send(ctx, conversationID, tg.Message{Text: o.Err.Error()})
	}
	if ref, ok := requestFrom(ctx); ok {
		if err := b.records.SetAnswer(ctx, ref, o.Value); err != nil {
			logger.Warn(ctx, logger.CompStore, "answer.save",
				slog.String("status", "fail"),
				slog.String("ref", ref.String()),
				logger.Err(err),
			)
		}
	}
	return b.send(ctx, conversationID, tg.Message{Text: o.Value})
}
