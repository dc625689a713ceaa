package appeal

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/AppealBotGo/pkg/discord"
	"github.com/PancyStudios/AppealBotGo/pkg/models"
)

// Component routes
const (
	RouteMenu       = "appeal_menu:main"
	RouteServerBans = "appeal_menu:serverbans"
	RouteRoleBans   = "appeal_menu:rolebans"
	RouteNotes      = "appeal_menu:notes"
	RouteSelect     = "appeal_menu:select"
)

// Discord limits
const (
	maxSelectOptions = 25
	maxLabelRunes    = 100
	maxContentRunes  = 2000
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// User facing texts
const (
	textMenuIntro     = "Меню для пользователя, подавшего обжалование:"
	textMenuButton    = "Меню"
	textNotAuthor     = "Это меню доступно только автору обращения"
	textNotLinked     = "%s вы не привязали Дискорд в игре. Многие функции по обжалованию вам недоступны"
	textIdentityError = "Не удалось получить данные игрока. Попробуйте позже"
	textStoreError    = "Не удалось загрузить наказания. Попробуйте позже"
	textChooseKind    = "Выберите тип наказания:"
	textPlaceholder   = "Выберите из списка"
	textUnknown       = "Неизвестно"
	textNoReason      = "Не указано"
	textNoExpiry      = "Нет срока"
	textNoAppeal      = "Для разбора БВО приглашаются %s"
	textAdminNotFound = "Админ с userId ``%s`` не найден. Вызываю судей"
	textAdminMention  = "Вызов админа, выдавшего бан: %s"
	textJudges        = "Активные судьи: %s. Ожидайте их ответа"
)

type kindTexts struct {
	button string
	title  string
	empty  string
	route  string
}

var kinds = map[models.SanctionKind]kindTexts{
	models.KindServerBan: {
		button: "Серверные баны",
		title:  "Ваши серверные баны:",
		empty:  "У вас нет активных серверных банов.",
		route:  RouteServerBans,
	},
	models.KindRoleBan: {
		button: "Ролевые баны",
		title:  "Ваши ролевые баны (Если забанено несколько ролей, выберите одну любую):",
		empty:  "У вас нет активных ролевых банов.",
		route:  RouteRoleBans,
	},
	models.KindNote: {
		button: "Предупреждения",
		title:  "Ваши предупреждения:",
		empty:  "У вас нет активных предупреждений.",
		route:  RouteNotes,
	},
}

var kindOrder = []models.SanctionKind{models.KindServerBan, models.KindRoleBan, models.KindNote}

func menuComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    textMenuButton,
				Style:    discordgo.PrimaryButton,
				CustomID: RouteMenu,
			},
		}},
	}
}

func kindButtons(sessionID string) []discordgo.MessageComponent {
	buttons := make([]discordgo.MessageComponent, 0, len(kindOrder))
	for _, k := range kindOrder {
		buttons = append(buttons, discordgo.Button{
			Label:    kinds[k].button,
			Style:    discordgo.SecondaryButton,
			CustomID: discord.CustomID(kinds[k].route, sessionID),
		})
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

// selectComponents lists at most maxSelectOptions records; option values are
// indexes into records.
func selectComponents(sessionID string, records []models.Sanction) []discordgo.MessageComponent {
	n := len(records)
	if n > maxSelectOptions {
		n = maxSelectOptions
	}

	options := make([]discordgo.SelectMenuOption, 0, n)
	for i := 0; i < n; i++ {
		options = append(options, discordgo.SelectMenuOption{
			Label: optionLabel(i, records[i]),
			Value: strconv.Itoa(i),
		})
	}

	one := 1
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    discord.CustomID(RouteSelect, sessionID),
				Placeholder: textPlaceholder,
				MinValues:   &one,
				MaxValues:   1,
				Options:     options,
			},
		}},
	}
}

// optionLabel renders "#n | от date | [role | ]text" within the label limit
func optionLabel(i int, s models.Sanction) string {
	prefix := fmt.Sprintf("#%d | от %s | ", i+1, s.IssuedAt().UTC().Format(dateLayout))
	if rb, ok := s.(models.RoleBan); ok {
		prefix += rb.RoleID + " | "
	}
	return truncate(prefix+textOr(s.Text(), textNoReason), maxLabelRunes)
}

func detail(s models.Sanction) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**ID:** %d\n", s.RecordID())

	issuer := textUnknown
	if by := s.IssuedBy(); by.Valid {
		issuer = by.UUID.String()
	}
	fmt.Fprintf(&b, "**Кем выдано:** %s\n", issuer)

	if rb, ok := s.(models.RoleBan); ok {
		fmt.Fprintf(&b, "**Роль:** %s\n", rb.RoleID)
	}

	fmt.Fprintf(&b, "**Причина:** %s\n", textOr(s.Text(), textNoReason))
	fmt.Fprintf(&b, "**Дата выдачи:** %s\n", s.IssuedAt().UTC().Format(dateTimeLayout))

	expiry := textNoExpiry
	if exp := s.ExpiresAt(); exp != nil {
		expiry = exp.UTC().Format(dateTimeLayout)
	}
	fmt.Fprintf(&b, "**Истекает:** %s", expiry)

	return truncate(b.String(), maxContentRunes)
}

func userMentions(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "<@" + id + ">"
	}
	return strings.Join(parts, " ")
}

func roleMentions(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "<@&" + id + ">"
	}
	return strings.Join(parts, " ")
}

func threadLink(guildID, threadID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s", guildID, threadID)
}

func textOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// truncate cuts s to max runes, marking the cut with an ellipsis
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
