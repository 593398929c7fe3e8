package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/yakoovad/scrapyard-registration/internal/model"
)

const embedColor = 0xF5A623

type DiscordNotifier struct {
	session      *discordgo.Session
	webhookID    string
	webhookToken string
	dashboardURL string
}

func NewDiscordNotifier(webhookID, webhookToken, dashboardURL string) (*DiscordNotifier, error) {
	// Webhook execution is authorized by the webhook token, no bot token needed.
	session, err := discordgo.New("")
	if err != nil {
		return nil, errors.Wrap(err, "create discord session")
	}

	return &DiscordNotifier{
		session:      session,
		webhookID:    webhookID,
		webhookToken: webhookToken,
		dashboardURL: dashboardURL,
	}, nil
}

func (d *DiscordNotifier) NotifyCompletion(ctx context.Context, bundle *model.ReviewBundle) error {
	params := &discordgo.WebhookParams{
		Username: "Scrapyard 報名系統",
		Embeds:   []*discordgo.MessageEmbed{CompletionEmbed(bundle, d.dashboardURL)},
	}

	if _, err := d.session.WebhookExecute(d.webhookID, d.webhookToken, false, params, discordgo.WithContext(ctx)); err != nil {
		return errors.Wrap(err, "execute discord webhook")
	}
	return nil
}

// CompletionEmbed summarizes a submitted team for the staff channel.
func CompletionEmbed(bundle *model.ReviewBundle, dashboardURL string) *discordgo.MessageEmbed {
	team := bundle.Team

	completedAt := time.Now()
	if team.CompletedAt != nil {
		completedAt = *team.CompletedAt
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "隊伍編號", Value: team.ID},
		{Name: "人數", Value: fmt.Sprintf("%d", team.Size), Inline: true},
		{Name: "得知管道", Value: orDash(team.LearnAboutUs), Inline: true},
	}

	if bundle.Leader != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "隊長",
			Value: personLine(bundle.Leader),
		})
	}

	if len(bundle.Members) > 0 {
		lines := make([]string, 0, len(bundle.Members))
		for _, m := range bundle.Members {
			lines = append(lines, personLine(m))
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "隊員",
			Value: strings.Join(lines, "\n"),
		})
	}

	if bundle.Teacher != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "指導老師",
			Value: personLine(bundle.Teacher),
		})
	}

	fields = append(fields, &discordgo.MessageEmbedField{
		Name:  "切結書",
		Value: fmt.Sprintf("[隊伍切結書](%s)\n[家長同意書](%s)", team.TeamAffidavit, team.ParentsAffidavit),
	})

	return &discordgo.MessageEmbed{
		Title:       "新隊伍送出報名：" + team.Name,
		URL:         dashboardURL,
		Description: "狀態：" + string(team.Status),
		Color:       embedColor,
		Fields:      fields,
		Timestamp:   completedAt.Format(time.RFC3339),
	}
}

func personLine(p *model.Person) string {
	verified := "❌"
	if p.EmailVerified {
		verified = "✅"
	}
	return fmt.Sprintf("%s %s (%s) %s", verified, orDash(p.NameZh), orDash(p.NameEn), orDash(p.Email))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
