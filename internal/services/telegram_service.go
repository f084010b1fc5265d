package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
	}
}

// Enabled reports whether both the bot token and the admin chat are
// configured; callers skip notification work entirely otherwise.
func (s *TelegramService) Enabled() bool {
	return s.botToken != "" && s.adminChatID != ""
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	msg := telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		log.Println("[Telegram] Admin chat ID not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// DonationNotification contains listing data for Telegram notification.
type DonationNotification struct {
	MealTitle      string
	FoodType       string
	Quantity       int
	ExpiryTime     time.Time
	Location       string
	RestaurantName string
}

// NotifyNewDonation sends notification about a new listing to the admin chat.
func (s *TelegramService) NotifyNewDonation(d DonationNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	message := fmt.Sprintf(`<b>🍱 NEW DONATION LISTED</b>
<b>Meal:</b> %s (%s)
<b>Portions:</b> %d
<b>Expires:</b> %s
<b>From:</b> %s, %s
━━━━━━━━━━━━━━━━━━`,
		d.MealTitle,
		d.FoodType,
		d.Quantity,
		d.ExpiryTime.Format("02-01-2006 15:04"),
		d.RestaurantName,
		d.Location,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}

// ClaimNotification contains claim data for Telegram notification.
type ClaimNotification struct {
	MealTitle    string
	NgoName      string
	Quantity     int
	RemainingQty int
	FullyClaimed bool
}

// NotifyClaim sends notification about a claim to the admin chat.
func (s *TelegramService) NotifyClaim(c ClaimNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	statusText := "⏳ Portions remaining"
	if c.FullyClaimed {
		statusText = "✅ Fully claimed"
	}

	message := fmt.Sprintf(`<b>🤝 DONATION CLAIMED</b>
<b>Meal:</b> %s
<b>NGO:</b> %s
<b>Claimed:</b> %d
<b>Remaining:</b> %d
<b>Status:</b> %s
━━━━━━━━━━━━━━━━━━`,
		c.MealTitle,
		c.NgoName,
		c.Quantity,
		c.RemainingQty,
		statusText,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}
