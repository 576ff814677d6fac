package downloadclients

import (
	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/remotemap"
	"github.com/declarr/declarr/internal/settings/codec"
)

func init() {
	registry.Register("Transmission", []string{"transmission"}, func() Client { return newTransmission() })
	registry.Register("QBittorrent", []string{"qbittorrent"}, func() Client { return newQbittorrent() })
	registry.Register("Deluge", []string{"deluge"}, func() Client { return newDeluge() })
	registry.Register("RTorrent", []string{"rtorrent", "rutorrent"}, func() Client { return newRtorrent() })
	registry.Register("Sabnzbd", []string{"sabnzbd"}, func() Client { return newSabnzbd() })
	registry.Register("Nzbget", []string{"nzbget"}, func() Client { return newNzbget() })
}

// Priority select values shared by the torrent clients.
var lastFirst = map[string]any{
	"last":  0,
	"first": 1,
}

// Transmission is a Transmission torrent client connection.
type Transmission struct {
	Common         `yaml:",inline"`
	Host           string  `yaml:"host"`
	Port           int     `yaml:"port"`
	UseSSL         bool    `yaml:"use_ssl"`
	URLBase        string  `yaml:"url_base"`
	Username       *string `yaml:"username"`
	Password       *string `yaml:"password"`
	Category       *string `yaml:"category"`
	Directory      *string `yaml:"directory"`
	RecentPriority string  `yaml:"recent_priority"`
	OlderPriority  string  `yaml:"older_priority"`
	AddPaused      bool    `yaml:"add_paused"`
}

func newTransmission() *Transmission {
	return &Transmission{
		Common:         newCommon(),
		Port:           9091,
		URLBase:        "/transmission/",
		RecentPriority: "last",
		OlderPriority:  "last",
	}
}

func (c *Transmission) Implementation() string { return "Transmission" }

func (c *Transmission) remoteMap(refs Refs, _ api.Resource) []remotemap.Entry {
	return append(c.entries(refs),
		codec.Text("host", "host", true, &c.Host),
		codec.Int("port", "port", true, &c.Port),
		codec.Bool("use_ssl", "useSsl", true, &c.UseSSL),
		codec.Text("url_base", "urlBase", true, &c.URLBase),
		codec.OptionalText("username", "username", true, &c.Username),
		codec.OptionalText("password", "password", true, &c.Password),
		codec.OptionalText("category", "movieCategory", true, &c.Category),
		codec.OptionalText("directory", "movieDirectory", true, &c.Directory),
		codec.EnumEntry("recent_priority", "recentMoviePriority", &c.RecentPriority, lastFirst),
		codec.EnumEntry("older_priority", "olderMoviePriority", &c.OlderPriority, lastFirst),
		codec.Bool("add_paused", "addPaused", true, &c.AddPaused),
	)
}

// Qbittorrent is a qBittorrent torrent client connection.
type Qbittorrent struct {
	Common          `yaml:",inline"`
	Host            string  `yaml:"host"`
	Port            int     `yaml:"port"`
	UseSSL          bool    `yaml:"use_ssl"`
	URLBase         *string `yaml:"url_base"`
	Username        *string `yaml:"username"`
	Password        *string `yaml:"password"`
	Category        *string `yaml:"category"`
	RecentPriority  string  `yaml:"recent_priority"`
	OlderPriority   string  `yaml:"older_priority"`
	InitialState    string  `yaml:"initial_state"`
	SequentialOrder bool    `yaml:"sequential_order"`
	FirstAndLast    bool    `yaml:"first_and_last"`
}

func newQbittorrent() *Qbittorrent {
	category := "radarr"
	return &Qbittorrent{
		Common:         newCommon(),
		Port:           8080,
		Category:       &category,
		RecentPriority: "last",
		OlderPriority:  "last",
		InitialState:   "start",
	}
}

func (c *Qbittorrent) Implementation() string { return "QBittorrent" }

func (c *Qbittorrent) remoteMap(refs Refs, _ api.Resource) []remotemap.Entry {
	return append(c.entries(refs),
		codec.Text("host", "host", true, &c.Host),
		codec.Int("port", "port", true, &c.Port),
		codec.Bool("use_ssl", "useSsl", true, &c.UseSSL),
		codec.OptionalText("url_base", "urlBase", true, &c.URLBase),
		codec.OptionalText("username", "username", true, &c.Username),
		codec.OptionalText("password", "password", true, &c.Password),
		codec.OptionalText("category", "movieCategory", true, &c.Category),
		codec.EnumEntry("recent_priority", "recentMoviePriority", &c.RecentPriority, lastFirst),
		codec.EnumEntry("older_priority", "olderMoviePriority", &c.OlderPriority, lastFirst),
		codec.EnumEntry("initial_state", "initialState", &c.InitialState, map[string]any{
			"start":       0,
			"force-start": 1,
			"pause":       2,
		}),
		codec.Bool("sequential_order", "sequentialOrder", true, &c.SequentialOrder),
		codec.Bool("first_and_last", "firstAndLast", true, &c.FirstAndLast),
	)
}

// Deluge is a Deluge torrent client connection.
type Deluge struct {
	Common         `yaml:",inline"`
	Host           string  `yaml:"host"`
	Port           int     `yaml:"port"`
	UseSSL         bool    `yaml:"use_ssl"`
	URLBase        *string `yaml:"url_base"`
	Password       *string `yaml:"password"`
	Category       *string `yaml:"category"`
	RecentPriority string  `yaml:"recent_priority"`
	OlderPriority  string  `yaml:"older_priority"`
}

func newDeluge() *Deluge {
	category := "radarr"
	return &Deluge{
		Common:         newCommon(),
		Port:           8112,
		Category:       &category,
		RecentPriority: "last",
		OlderPriority:  "last",
	}
}

func (c *Deluge) Implementation() string { return "Deluge" }

func (c *Deluge) remoteMap(refs Refs, _ api.Resource) []remotemap.Entry {
	return append(c.entries(refs),
		codec.Text("host", "host", true, &c.Host),
		codec.Int("port", "port", true, &c.Port),
		codec.Bool("use_ssl", "useSsl", true, &c.UseSSL),
		codec.OptionalText("url_base", "urlBase", true, &c.URLBase),
		codec.OptionalText("password", "password", true, &c.Password),
		codec.OptionalText("category", "movieCategory", true, &c.Category),
		codec.EnumEntry("recent_priority", "recentMoviePriority", &c.RecentPriority, lastFirst),
		codec.EnumEntry("older_priority", "olderMoviePriority", &c.OlderPriority, lastFirst),
	)
}

// Rtorrent is an rTorrent (ruTorrent) client connection.
type Rtorrent struct {
	Common         `yaml:",inline"`
	Host           string  `yaml:"host"`
	Port           int     `yaml:"port"`
	UseSSL         bool    `yaml:"use_ssl"`
	URLBase        string  `yaml:"url_base"`
	Username       string  `yaml:"username"`
	Password       string  `yaml:"password"`
	Category       *string `yaml:"category"`
	Directory      *string `yaml:"directory"`
	ClientPriority string  `yaml:"client_priority"`
	AddStopped     bool    `yaml:"add_stopped"`
}

func newRtorrent() *Rtorrent {
	category := "radarr"
	return &Rtorrent{
		Common:         newCommon(),
		Port:           8080,
		URLBase:        "RPC2",
		Category:       &category,
		ClientPriority: "normal",
	}
}

func (c *Rtorrent) Implementation() string { return "RTorrent" }

func (c *Rtorrent) remoteMap(refs Refs, _ api.Resource) []remotemap.Entry {
	return append(c.entries(refs),
		codec.Text("host", "host", true, &c.Host),
		codec.Int("port", "port", true, &c.Port),
		codec.Bool("use_ssl", "useSsl", true, &c.UseSSL),
		codec.Text("url_base", "urlBase", true, &c.URLBase),
		codec.Text("username", "username", true, &c.Username),
		codec.Text("password", "password", true, &c.Password),
		codec.OptionalText("category", "movieCategory", true, &c.Category),
		codec.OptionalText("directory", "movieDirectory", true, &c.Directory),
		codec.EnumEntry("client_priority", "recentMoviePriority", &c.ClientPriority, map[string]any{
			"verylow": 0,
			"low":     1,
			"normal":  2,
			"high":    3,
		}),
		codec.Bool("add_stopped", "addStopped", true, &c.AddStopped),
	)
}

// Sabnzbd is a SABnzbd Usenet client connection.
type Sabnzbd struct {
	Common         `yaml:",inline"`
	Host           string  `yaml:"host"`
	Port           int     `yaml:"port"`
	UseSSL         bool    `yaml:"use_ssl"`
	URLBase        *string `yaml:"url_base"`
	APIKey         *string `yaml:"api_key"`
	Username       *string `yaml:"username"`
	Password       *string `yaml:"password"`
	Category       *string `yaml:"category"`
	RecentPriority string  `yaml:"recent_priority"`
	OlderPriority  string  `yaml:"older_priority"`
}

var sabnzbdPriorities = map[string]any{
	"default": -100,
	"paused":  -2,
	"low":     -1,
	"normal":  0,
	"high":    1,
	"force":   2,
}

func newSabnzbd() *Sabnzbd {
	category := "movies"
	return &Sabnzbd{
		Common:         newCommon(),
		Port:           8080,
		Category:       &category,
		RecentPriority: "default",
		OlderPriority:  "default",
	}
}

func (c *Sabnzbd) Implementation() string { return "Sabnzbd" }

func (c *Sabnzbd) remoteMap(refs Refs, _ api.Resource) []remotemap.Entry {
	return append(c.entries(refs),
		codec.Text("host", "host", true, &c.Host),
		codec.Int("port", "port", true, &c.Port),
		codec.Bool("use_ssl", "useSsl", true, &c.UseSSL),
		codec.OptionalText("url_base", "urlBase", true, &c.URLBase),
		codec.OptionalText("api_key", "apiKey", true, &c.APIKey),
		codec.OptionalText("username", "username", true, &c.Username),
		codec.OptionalText("password", "password", true, &c.Password),
		codec.OptionalText("category", "movieCategory", true, &c.Category),
		codec.EnumEntry("recent_priority", "recentMoviePriority", &c.RecentPriority, sabnzbdPriorities),
		codec.EnumEntry("older_priority", "olderMoviePriority", &c.OlderPriority, sabnzbdPriorities),
	)
}

// Nzbget is an NZBGet Usenet client connection.
type Nzbget struct {
	Common         `yaml:",inline"`
	Host           string  `yaml:"host"`
	Port           int     `yaml:"port"`
	UseSSL         bool    `yaml:"use_ssl"`
	URLBase        *string `yaml:"url_base"`
	Username       string  `yaml:"username"`
	Password       string  `yaml:"password"`
	Category       *string `yaml:"category"`
	RecentPriority string  `yaml:"recent_priority"`
	OlderPriority  string  `yaml:"older_priority"`
	AddPaused      bool    `yaml:"add_paused"`
}

var nzbgetPriorities = map[string]any{
	"verylow":  -100,
	"low":      -50,
	"normal":   0,
	"high":     50,
	"veryhigh": 100,
	"force":    900,
}

func newNzbget() *Nzbget {
	category := "Movies"
	return &Nzbget{
		Common:         newCommon(),
		Port:           6789,
		Username:       "nzbget",
		Category:       &category,
		RecentPriority: "normal",
		OlderPriority:  "normal",
	}
}

func (c *Nzbget) Implementation() string { return "Nzbget" }

func (c *Nzbget) remoteMap(refs Refs, _ api.Resource) []remotemap.Entry {
	return append(c.entries(refs),
		codec.Text("host", "host", true, &c.Host),
		codec.Int("port", "port", true, &c.Port),
		codec.Bool("use_ssl", "useSsl", true, &c.UseSSL),
		codec.OptionalText("url_base", "urlBase", true, &c.URLBase),
		codec.Text("username", "username", true, &c.Username),
		codec.Text("password", "password", true, &c.Password),
		codec.OptionalText("category", "movieCategory", true, &c.Category),
		codec.EnumEntry("recent_priority", "recentMoviePriority", &c.RecentPriority, nzbgetPriorities),
		codec.EnumEntry("older_priority", "olderMoviePriority", &c.OlderPriority, nzbgetPriorities),
		codec.Bool("add_paused", "addPaused", true, &c.AddPaused),
	)
}
