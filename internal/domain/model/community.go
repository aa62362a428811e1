package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxCommunityNameLength = 30
	MaxCommunityCurrencies = 10
	MaxCommunitySolvers    = 9
	MaxOrderChannels       = 2
)

type ChannelType string

const (
	ChannelMixed ChannelType = "mixed"
	ChannelBuy   ChannelType = "buy"
	ChannelSell  ChannelType = "sell"
)

type OrderChannel struct {
	Name string      `json:"name"`
	Type ChannelType `json:"type"`
}

type Solver struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Community is a trading group with its own order channels and dispute solvers.
type Community struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Currencies     []string       `json:"currencies"`
	Group          string         `json:"group"`
	OrderChannels  []OrderChannel `json:"order_channels"`
	Solvers        []Solver       `json:"solvers"`
	DisputeChannel string         `json:"dispute_channel"`
	CreatorID      string         `json:"creator_id"`
	CreatedAt      time.Time      `json:"created_at"`
}

// NewCommunityDraft starts an empty community owned by creatorID.
func NewCommunityDraft(creatorID string) *Community {
	return &Community{ID: uuid.NewString(), CreatorID: creatorID}
}

func (c *Community) OwnedBy(userID string) bool {
	return c != nil && c.CreatorID != "" && c.CreatorID == userID
}

// Complete reports whether every field the creation flow collects is set.
func (c *Community) Complete() bool {
	return c.Name != "" && len(c.Currencies) > 0 && c.Group != "" &&
		len(c.OrderChannels) > 0 && c.DisputeChannel != ""
}

func ValidCommunityName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && utf8.RuneCountInString(name) <= MaxCommunityNameLength
}

// ChannelsFor tags one channel as mixed, or two channels as buy and sell.
func ChannelsFor(names []string) []OrderChannel {
	switch len(names) {
	case 1:
		return []OrderChannel{{Name: names[0], Type: ChannelMixed}}
	case 2:
		return []OrderChannel{
			{Name: names[0], Type: ChannelBuy},
			{Name: names[1], Type: ChannelSell},
		}
	}
	return nil
}
