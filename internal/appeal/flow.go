// Package appeal implements the appeal thread workflow: the persistent menu
// posted into new appeal threads, the sanction browser behind it and the
// admin and judge notifications that follow a selection.
package appeal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/PancyStudios/AppealBotGo/pkg/config"
	"github.com/PancyStudios/AppealBotGo/pkg/discord"
	"github.com/PancyStudios/AppealBotGo/pkg/identity"
	"github.com/PancyStudios/AppealBotGo/pkg/logger"
	"github.com/PancyStudios/AppealBotGo/pkg/models"
)

// Platform is the part of the Discord session the flow talks to
type Platform interface {
	discord.Responder
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// SanctionSource is satisfied by *sanctions.Store
type SanctionSource interface {
	ActiveServerBans(ctx context.Context, userID uuid.UUID) ([]models.ServerBan, error)
	ActiveRoleBans(ctx context.Context, userID uuid.UUID) ([]models.RoleBan, error)
	ActiveNotes(ctx context.Context, userID uuid.UUID) ([]models.AdminNote, error)
}

// Waiter is satisfied by *discord.MessageWaiter
type Waiter interface {
	Wait(ctx context.Context, channelID string, filter discord.MessageFilter, timeout time.Duration) (*discordgo.Message, error)
}

// Deps are the collaborators of a Flow
type Deps struct {
	Platform  Platform
	Sanctions SanctionSource
	Identity  identity.Resolver
	Roster    Roster
	Waiter    Waiter
}

// Flow drives every appeal thread. Handlers are safe for concurrent use;
// the only shared state is the session store.
type Flow struct {
	cfg        config.AppealConfig
	deps       Deps
	classifier *Classifier
	sessions   *SessionStore
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func NewFlow(cfg config.AppealConfig, deps Deps) *Flow {
	ctx, cancel := context.WithCancel(context.Background())
	return &Flow{
		cfg:        cfg,
		deps:       deps,
		classifier: NewClassifier(cfg.PermanentMarkers, cfg.NoAppealMarkers),
		sessions:   NewSessionStore(),
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Stop cancels pending waits and drops all open views
func (f *Flow) Stop() {
	f.cancel()
	f.sessions.Clear()
}

// OpenSessions returns the number of live menu and selection views
func (f *Flow) OpenSessions() int {
	return f.sessions.Len()
}

// HandleThreadCreate waits for the first human message in a new appeal thread
// and posts the menu under it.
func (f *Flow) HandleThreadCreate(t *discordgo.ThreadCreate) {
	if !f.cfg.EnableMention || t == nil || t.Channel == nil {
		return
	}
	if !t.NewlyCreated || t.ParentID != f.cfg.AppealChannelID {
		return
	}

	msg, err := f.deps.Waiter.Wait(f.ctx, t.ID, humanMessage, f.cfg.MessageWaitTimeout)
	if err != nil {
		if errors.Is(err, discord.ErrWaitTimeout) {
			logger.Warn(fmt.Sprintf("Таймаут ожидания сообщения в треде %s", t.ID), "Appeal")
		} else {
			logger.Error(fmt.Sprintf("Ошибка при ожидании сообщения в треде %s: %v", t.ID, err), "Appeal")
		}
		return
	}

	_, err = f.deps.Platform.ChannelMessageSendComplex(t.ID, &discordgo.MessageSend{
		Content:    textMenuIntro,
		Components: menuComponents(),
	})
	if err != nil {
		logger.Error(fmt.Sprintf("Не удалось отправить меню в тред %s: %v", t.ID, err), "Appeal")
		return
	}

	logger.Info(fmt.Sprintf("Создано новое обжалование | Автор: %s | Время: %s | Ссылка: %s",
		msg.Author.Username, f.now().UTC().Format(dateTimeLayout), threadLink(t.GuildID, t.ID)), "Appeal")
}

func humanMessage(m *discordgo.Message) bool {
	return m.Author != nil && !m.Author.Bot
}

// HandleMenu answers a click on the persistent menu button
func (f *Flow) HandleMenu(i *discordgo.Interaction) error {
	p := f.deps.Platform

	thread, err := p.Channel(i.ChannelID)
	if err != nil {
		return fmt.Errorf("appeal: fetch thread %s: %w", i.ChannelID, err)
	}
	if !thread.IsThread() {
		return discord.Acknowledge(p, i)
	}

	user := interactionUser(i)
	if user == nil || user.ID != thread.OwnerID {
		return discord.RespondEphemeral(p, i, textNotAuthor)
	}

	player, err := f.deps.Identity.ByDiscordID(f.ctx, user.ID)
	switch {
	case errors.Is(err, identity.ErrNotLinked):
		_, err = p.ChannelMessageSendComplex(thread.ID, &discordgo.MessageSend{
			Content:         fmt.Sprintf(textNotLinked, userMentions([]string{thread.OwnerID})),
			AllowedMentions: &discordgo.MessageAllowedMentions{Users: []string{thread.OwnerID}},
		})
		if err != nil {
			return fmt.Errorf("appeal: post not linked notice: %w", err)
		}
		return discord.Acknowledge(p, i)
	case err != nil:
		if rerr := discord.RespondEphemeral(p, i, textIdentityError); rerr != nil {
			logger.Warn("Не удалось ответить на взаимодействие: "+rerr.Error(), "Appeal")
		}
		return fmt.Errorf("appeal: resolve player %s: %w", user.ID, err)
	}

	sess := f.sessions.Open(Session{
		OwnerID:  user.ID,
		ThreadID: thread.ID,
		GuildID:  thread.GuildID,
		PlayerID: player.UserID,
	}, f.cfg.MenuTimeout)

	return discord.RespondEphemeral(p, i, textChooseKind, kindButtons(sess.ID)...)
}

// HandleKind loads one family of sanctions and shows them as a select menu
func (f *Flow) HandleKind(i *discordgo.Interaction, kind models.SanctionKind, sessionID string) error {
	p := f.deps.Platform

	sess, ok := f.liveSession(i, sessionID)
	if !ok {
		return discord.Acknowledge(p, i)
	}

	records, err := f.load(kind, sess.PlayerID)
	if err != nil {
		if rerr := discord.RespondEphemeral(p, i, textStoreError); rerr != nil {
			logger.Warn("Не удалось ответить на взаимодействие: "+rerr.Error(), "Appeal")
		}
		return fmt.Errorf("appeal: load %s for %s: %w", kind, sess.PlayerID, err)
	}

	texts := kinds[kind]
	if len(records) == 0 {
		return discord.RespondEphemeral(p, i, texts.empty)
	}
	if len(records) > maxSelectOptions {
		logger.Warn(fmt.Sprintf("У игрока %s %d записей (%s), показаны первые %d",
			sess.PlayerID, len(records), kind, maxSelectOptions), "Appeal")
	}

	sel := f.sessions.Open(Session{
		OwnerID:  sess.OwnerID,
		ThreadID: sess.ThreadID,
		GuildID:  sess.GuildID,
		PlayerID: sess.PlayerID,
		Records:  records,
	}, f.cfg.SelectTimeout)

	return discord.RespondEphemeral(p, i, texts.title, selectComponents(sel.ID, records)...)
}

// HandleSelect posts the chosen record and pages in whoever should review it
func (f *Flow) HandleSelect(i *discordgo.Interaction, sessionID string, values []string) error {
	p := f.deps.Platform

	sess, ok := f.liveSession(i, sessionID)
	if !ok {
		return discord.Acknowledge(p, i)
	}
	if len(values) == 0 {
		return discord.Acknowledge(p, i)
	}
	idx, err := strconv.Atoi(values[0])
	if err != nil || idx < 0 || idx >= len(sess.Records) {
		return discord.Acknowledge(p, i)
	}

	record := sess.Records[idx]
	if err := discord.Respond(p, i, detail(record)); err != nil {
		return fmt.Errorf("appeal: post detail: %w", err)
	}
	return f.notify(i, sess, record)
}

func (f *Flow) notify(i *discordgo.Interaction, sess *Session, record models.Sanction) error {
	p := f.deps.Platform

	var permanent, noAppeal bool
	if record.Kind() == models.KindServerBan {
		permanent = f.classifier.Permanent(record.Text())
		noAppeal = f.classifier.NoAppeal(record.Text())
	}

	if noAppeal {
		if len(f.cfg.NoAppealRoleIDs) == 0 {
			logger.Warn("Не настроены роли для разбора БВО, вызываю судей", "Appeal")
			return f.callJudges(i, sess)
		}
		return discord.FollowUp(p, i, fmt.Sprintf(textNoAppeal, roleMentions(f.cfg.NoAppealRoleIDs)), nil, f.cfg.NoAppealRoleIDs)
	}

	adminResolved, err := f.callAdmin(i, record.IssuedBy())
	if err != nil {
		return err
	}

	if permanent && adminResolved {
		return nil
	}
	return f.callJudges(i, sess)
}

// callAdmin mentions the issuing admin and reports whether that was possible
func (f *Flow) callAdmin(i *discordgo.Interaction, adminID uuid.NullUUID) (bool, error) {
	p := f.deps.Platform

	label := textUnknown
	if adminID.Valid {
		label = adminID.UUID.String()

		admin, err := f.deps.Identity.ByUserID(f.ctx, adminID.UUID)
		switch {
		case err == nil && admin.DiscordID != "":
			ids := []string{admin.DiscordID}
			if err := discord.FollowUp(p, i, fmt.Sprintf(textAdminMention, userMentions(ids)), ids, nil); err != nil {
				return false, fmt.Errorf("appeal: mention admin: %w", err)
			}
			return true, nil
		case err != nil && !errors.Is(err, identity.ErrNotLinked):
			logger.Error(fmt.Sprintf("Не удалось найти админа %s: %v", adminID.UUID, err), "Appeal")
		}
	}

	if err := discord.FollowUp(p, i, fmt.Sprintf(textAdminNotFound, label), nil, nil); err != nil {
		return false, fmt.Errorf("appeal: admin not found notice: %w", err)
	}
	return false, nil
}

func (f *Flow) callJudges(i *discordgo.Interaction, sess *Session) error {
	judges := ResolveJudges(f.deps.Roster, f.cfg.GuildID, f.cfg.JudgeRoleID)
	if !f.cfg.MentionOnVacation {
		judges = ExcludeVacationing(judges, f.cfg.VacationRoleID)
	}
	if len(judges) == 0 {
		logger.Info("Нет судей для вызова", "Appeal")
		return nil
	}

	ids := make([]string, 0, len(judges))
	for _, m := range judges {
		if m.User != nil {
			ids = append(ids, m.User.ID)
		}
	}

	if err := discord.FollowUp(f.deps.Platform, i, fmt.Sprintf(textJudges, userMentions(ids)), ids, nil); err != nil {
		return fmt.Errorf("appeal: mention judges: %w", err)
	}

	logger.Info(fmt.Sprintf("Вызваны судьи | Количество: %d | Время: %s | Ссылка: %s",
		len(ids), f.now().UTC().Format(dateTimeLayout), threadLink(sess.GuildID, sess.ThreadID)), "Appeal")
	return nil
}

// liveSession resolves sessionID for the clicking user. Expired sessions and
// foreign clicks report false.
func (f *Flow) liveSession(i *discordgo.Interaction, sessionID string) (*Session, bool) {
	sess, ok := f.sessions.Get(sessionID)
	if !ok {
		return nil, false
	}
	if user := interactionUser(i); user == nil || user.ID != sess.OwnerID {
		return nil, false
	}
	return sess, true
}

func (f *Flow) load(kind models.SanctionKind, playerID uuid.UUID) ([]models.Sanction, error) {
	ctx := f.ctx
	switch kind {
	case models.KindServerBan:
		return collect(f.deps.Sanctions.ActiveServerBans(ctx, playerID))
	case models.KindRoleBan:
		return collect(f.deps.Sanctions.ActiveRoleBans(ctx, playerID))
	case models.KindNote:
		return collect(f.deps.Sanctions.ActiveNotes(ctx, playerID))
	}
	return nil, fmt.Errorf("unknown sanction kind %q", kind)
}

func collect[T models.Sanction](rows []T, err error) ([]models.Sanction, error) {
	if err != nil {
		return nil, err
	}
	out := make([]models.Sanction, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
