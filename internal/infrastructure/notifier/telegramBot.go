package notifier

import (
	"context"
	"fmt"
	"html"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"trade_market/internal/domain/entity"
	"trade_market/pkg/contextx"
	"trade_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type TelegramBot struct {
	bot    *telego.Bot
	chatID int64
}

func NewTelegramBot(token string, chatID int64) (*TelegramBot, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &TelegramBot{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// Run отправляет принятые предложения из канала в чат операторов.
func (b *TelegramBot) Run(ctx context.Context, deals <-chan entity.Deal) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case deal, ok := <-deals:
			if !ok {
				return nil
			}
			if err := b.SendDeal(ctx, deal); err != nil {
				logger(ctx).Error("failed to send deal", logx.Error(err), logx.Stringer("offer-id", deal.Offer.ID))
			}
		}
	}
}

func (b *TelegramBot) SendDeal(ctx context.Context, deal entity.Deal) error {
	msg := tu.Message(
		tu.ID(b.chatID),
		FormatDeal(deal),
	).WithParseMode(telego.ModeHTML)

	_, err := b.bot.SendMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

// SendText отправляет простое текстовое сообщение.
func (b *TelegramBot) SendText(ctx context.Context, text string) error {
	msg := tu.Message(tu.ID(b.chatID), text)

	_, err := b.bot.SendMessage(ctx, msg)
	return err
}

func FormatDeal(deal entity.Deal) string {
	details := deal.Offer.Details

	text := fmt.Sprintf(
		"🤝 <b>Offer accepted</b>\n\n"+
			"<b>Trade:</b> <code>%s</code>\n"+
			"<b>Product:</b> <code>%s</code>\n"+
			"<b>From:</b> <code>%s</code>\n"+
			"<b>To:</b> <code>%s</code>\n"+
			"<b>Offer money:</b> %s\n"+
			"<b>Request money:</b> %s\n"+
			"<b>Offered products:</b> %d\n"+
			"<b>Accepted at:</b> %s",
		deal.Trade.ID,
		deal.Trade.ProductID,
		deal.Offer.SenderID,
		deal.Offer.ReceiverID,
		details.OfferMoney.StringFixed(2),
		details.RequestMoney.StringFixed(2),
		len(details.OfferedProducts),
		deal.AcceptedAt.UTC().Format("2006-01-02 15:04:05"),
	)

	if details.OfferMessage != "" {
		text += "\n\n<i>" + html.EscapeString(details.OfferMessage) + "</i>"
	}

	return text
}
