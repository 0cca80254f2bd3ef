package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/calscan/calscan/internal/calendar"
	"github.com/calscan/calscan/internal/scanner"
)

// ErrNotConfigured is returned when the poster has no token or channel.
var ErrNotConfigured = errors.New("discord notifications are not configured")

const (
	embedColor    = 0x2E86C1
	maxEmbedRows  = 5
	scanURLFormat = "%s/scans/%s"
)

// messageSender is the part of the discord session the poster uses.
type messageSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordPoster posts scan summaries to a Discord channel over the REST API.
type DiscordPoster struct {
	sender    messageSender
	channelID string
	baseURL   string
	logger    *slog.Logger
}

// NewDiscordPoster creates a poster for a bot token and channel. baseURL,
// when set, links each post to the dashboard.
func NewDiscordPoster(token, channelID, baseURL string, logger *slog.Logger) (*DiscordPoster, error) {
	if token == "" || channelID == "" {
		return nil, ErrNotConfigured
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	return &DiscordPoster{
		sender:    session,
		channelID: channelID,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
	}, nil
}

// PostScan sends the top candidates of a scan. scanID may be empty.
func (p *DiscordPoster) PostScan(ctx context.Context, scanID string, res scanner.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	embed := p.buildEmbed(scanID, res)
	if _, err := p.sender.ChannelMessageSendEmbed(p.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to post scan to discord: %w", err)
	}

	p.logger.Info("posted scan to discord", "ticker", res.Ticker, "front_expiry", res.FrontExpiry, "channel", p.channelID)
	return nil
}

func (p *DiscordPoster) buildEmbed(scanID string, res scanner.Result) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s calendar scan: %s @ %.2f", res.Ticker, res.FrontExpiry, res.Strike),
		Color: embedColor,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("as of %s | max score %d", res.AsOf, res.MaxScore),
		},
	}
	if scanID != "" && p.baseURL != "" {
		embed.URL = fmt.Sprintf(scanURLFormat, p.baseURL, scanID)
	}

	if len(res.Rows) == 0 {
		embed.Description = "No calendar candidates found."
		return embed
	}

	var desc strings.Builder
	fmt.Fprintf(&desc, "Spot %.2f", res.Spot)
	if move, ok := res.ImpliedMoveAbs.Get(); ok {
		fmt.Fprintf(&desc, " | implied move ±%.2f", move)
	}
	embed.Description = desc.String()

	for i, row := range res.Rows {
		if i >= maxEmbedRows {
			break
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("#%d %s (score %d)", i+1, row.BackExpiry, row.Score),
			Value: fieldValue(row),
		})
	}
	return embed
}

func fieldValue(row calendar.ScoredResult) string {
	parts := []string{
		"debit " + short(row.Debit, 2),
		"iv ratio " + short(row.IVRatio, 3),
		"be/move " + short(row.BEMove, 2),
	}
	if row.Breakeven.Found() {
		parts = append(parts, fmt.Sprintf("BE %s-%s", short(row.Breakeven.Lower, 2), short(row.Breakeven.Upper, 2)))
	}
	return strings.Join(parts, " | ")
}

func short(v calendar.Value, prec int) string {
	f, ok := v.Get()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", prec, f)
}
