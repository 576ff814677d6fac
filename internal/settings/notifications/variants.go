package notifications

import (
	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/remotemap"
	"github.com/declarr/declarr/internal/settings/codec"
)

func init() {
	registry.Register("Webhook", []string{"webhook"}, func() Notification { return newWebhook() })
	registry.Register("Telegram", []string{"telegram"}, func() Notification { return &Telegram{} })
	registry.Register("Pushover", []string{"pushover"}, func() Notification { return newPushover() })
	registry.Register("CustomScript", []string{"customscript", "custom_script"}, func() Notification { return &CustomScript{} })
	registry.Register("Email", []string{"email"}, func() Notification { return newEmail() })
}

// Webhook posts event payloads to an HTTP endpoint.
type Webhook struct {
	Common   `yaml:",inline"`
	URL      string  `yaml:"url"`
	Method   string  `yaml:"method"`
	Username *string `yaml:"username"`
	Password *string `yaml:"password"`
}

func newWebhook() *Webhook {
	return &Webhook{Method: "post"}
}

func (n *Webhook) Implementation() string { return "Webhook" }

func (n *Webhook) remoteMap(refs Refs, _ api.Resource) []remotemap.Entry {
	return append(n.entries(refs),
		codec.Text("url", "url", true, &n.URL),
		codec.EnumEntry("method", "method", &n.Method, map[string]any{
			"post": 1,
			"put":  2,
		}),
		codec.OptionalText("username", "username", true, &n.Username),
		codec.OptionalText("password", "password", true, &n.Password),
	)
}

// Telegram sends messages through a Telegram bot.
type Telegram struct {
	Common       `yaml:",inline"`
	BotToken     string `yaml:"bot_token"`
	ChatID       string `yaml:"chat_id"`
	SendSilently bool   `yaml:"send_silently"`
}

func (n *Telegram) Implementation() string { return "Telegram" }

func (n *Telegram) remoteMap(refs Refs, _ api.Resource) []remotemap.Entry {
	return append(n.entries(refs),
		codec.Text("bot_token", "botToken", true, &n.BotToken),
		codec.Text("chat_id", "chatId", true, &n.ChatID),
		codec.Bool("send_silently", "sendSilently", true, &n.SendSilently),
	)
}

// Pushover sends push notifications via Pushover.
type Pushover struct {
	Common   `yaml:",inline"`
	UserKey  string   `yaml:"user_key"`
	APIKey   string   `yaml:"api_key"`
	Devices  []string `yaml:"devices"`
	Priority int      `yaml:"priority"`
	Retry    int      `yaml:"retry"`
	Expire   int      `yaml:"expire"`
}

func newPushover() *Pushover {
	return &Pushover{}
}

func (n *Pushover) Implementation() string { return "Pushover" }

func (n *Pushover) remoteMap(refs Refs, _ api.Resource) []remotemap.Entry {
	return append(n.entries(refs),
		codec.Text("user_key", "userKey", true, &n.UserKey),
		codec.Text("api_key", "apiKey", true, &n.APIKey),
		remotemap.Entry{
			Local:    "devices",
			Remote:   "devices",
			Field:    true,
			Optional: true,
			Get:      func() any { return n.Devices },
			Set:      remotemap.SetStringSet(&n.Devices),
		},
		codec.Int("priority", "priority", true, &n.Priority),
		codec.Int("retry", "retry", true, &n.Retry),
		codec.Int("expire", "expire", true, &n.Expire),
	)
}

// CustomScript executes a script on the remote host when events occur.
type CustomScript struct {
	Common    `yaml:",inline"`
	Path      string  `yaml:"path"`
	Arguments *string `yaml:"arguments"`
}

func (n *CustomScript) Implementation() string { return "CustomScript" }

func (n *CustomScript) remoteMap(refs Refs, _ api.Resource) []remotemap.Entry {
	return append(n.entries(refs),
		codec.Text("path", "path", true, &n.Path),
		codec.OptionalText("arguments", "arguments", true, &n.Arguments),
	)
}

// Email sends notifications over SMTP.
type Email struct {
	Common             `yaml:",inline"`
	Server             string   `yaml:"server"`
	Port               int      `yaml:"port"`
	UseEncryption      bool     `yaml:"use_encryption"`
	Username           *string  `yaml:"username"`
	Password           *string  `yaml:"password"`
	FromAddress        string   `yaml:"from_address"`
	RecipientAddresses []string `yaml:"recipient_addresses"`
	CcAddresses        []string `yaml:"cc_addresses"`
	BccAddresses       []string `yaml:"bcc_addresses"`
}

func newEmail() *Email {
	return &Email{Port: 587}
}

func (n *Email) Implementation() string { return "Email" }

func (n *Email) remoteMap(refs Refs, _ api.Resource) []remotemap.Entry {
	addressSet := func(local, remote string, p *[]string) remotemap.Entry {
		return remotemap.Entry{
			Local:    local,
			Remote:   remote,
			Field:    true,
			Optional: true,
			Get:      func() any { return *p },
			Set:      remotemap.SetStringSet(p),
		}
	}
	return append(n.entries(refs),
		codec.Text("server", "server", true, &n.Server),
		codec.Int("port", "port", true, &n.Port),
		codec.Bool("use_encryption", "requireEncryption", true, &n.UseEncryption),
		codec.OptionalText("username", "username", true, &n.Username),
		codec.OptionalText("password", "password", true, &n.Password),
		codec.Text("from_address", "from", true, &n.FromAddress),
		addressSet("recipient_addresses", "to", &n.RecipientAddresses),
		addressSet("cc_addresses", "cc", &n.CcAddresses),
		addressSet("bcc_addresses", "bcc", &n.BccAddresses),
	)
}
