package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeremiapane/restaurant-ordering/config"
	"github.com/yeremiapane/restaurant-ordering/models"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

// MailSender is satisfied by *gomail.Dialer.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier mails registered clients that left an e-mail address.
type EmailNotifier struct {
	DB     *gorm.DB
	Sender MailSender
	From   string
}

func NewEmailNotifier(db *gorm.DB, cfg config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{
		DB:     db,
		Sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		From:   cfg.From,
	}
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) Notify(ctx context.Context, event OrderEvent) error {
	if event.Order.UserID == nil {
		return nil
	}

	var user models.User
	if err := n.DB.WithContext(ctx).First(&user, *event.Order.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if user.Email == "" {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.From)
	m.SetHeader("To", user.Email)
	m.SetHeader("Subject", fmt.Sprintf("%s (#%d)", event.Title, event.Order.OrderNumber))
	m.SetBody("text/plain", fmt.Sprintf("Hi %s,\n\n%s\n", user.Name, event.Message))

	return n.Sender.DialAndSend(m)
}
