package email

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mango0422/hwanbee-bank/internal/config"
	"github.com/mango0422/hwanbee-bank/internal/models"
	"github.com/mango0422/hwanbee-bank/internal/utils"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// Enabled reports whether an SMTP host is configured. Receipts are skipped
// entirely when it is not.
func (s *Sender) Enabled() bool {
	return s.cfg.SMTPHost != ""
}

// SendTransferReceipt sends a receipt email for a completed transfer.
func (s *Sender) SendTransferReceipt(to, username string, tx *models.Transaction, balance decimal.Decimal, currency string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "송금 완료 안내"

	body := fmt.Sprintf("%s님, 안녕하세요.\n\n", username)
	recipient := ""
	if tx.Transfer != nil {
		recipient = fmt.Sprintf(" (받는 분: %s %s)", tx.Transfer.RecipientName, tx.Transfer.RecipientAccount)
	}
	body += fmt.Sprintf(
		"%s %s 송금이 완료되었습니다%s.\n"+
			"거래 시각: %s\n"+
			"잔액: %s %s\n",
		utils.FormatCurrency(tx.Amount.Abs(), currency), currency, recipient,
		tx.Date.Format("2006-01-02 15:04:05"),
		utils.FormatCurrency(balance, currency), currency,
	)
	body += "\n환비 은행 드림"
	e.Text = []byte(body)

	return s.send(e)
}

// SendExchangeReceipt sends a receipt email for a completed exchange.
func (s *Sender) SendExchangeReceipt(to, username string, tx *models.Transaction, balance decimal.Decimal, currency string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "환전 완료 안내"

	body := fmt.Sprintf("%s님, 안녕하세요.\n\n", username)
	body += fmt.Sprintf("%s\n", tx.Description)
	if tx.Exchange != nil {
		body += fmt.Sprintf(
			"적용 환율: 1 %s = %s %s\n"+
				"환전 금액: %s %s\n",
			tx.Exchange.ToCurrency, utils.FormatCurrency(tx.Exchange.Rate, currency), currency,
			utils.FormatCurrency(tx.Exchange.ExchangedAmount, tx.Exchange.ToCurrency), tx.Exchange.ToCurrency,
		)
	}
	body += fmt.Sprintf("잔액: %s %s\n", utils.FormatCurrency(balance, currency), currency)
	body += "\n환비 은행 드림"
	e.Text = []byte(body)

	return s.send(e)
}

func (s *Sender) send(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", e.To[0], err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.logger.Infof("Email sent to %s: %s", e.To[0], e.Subject)
	return nil
}
