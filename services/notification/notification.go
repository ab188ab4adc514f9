package notification

import (
	"fmt"

	"affiliate/models"

	"github.com/olahol/melody"
)

// Service broadcasts affiliate events to connected dashboard clients.
type Service interface {
	SendMessage(message string) error
}

type MelodyService struct {
	m *melody.Melody
}

func NewMelodyService(m *melody.Melody) *MelodyService {
	return &MelodyService{m: m}
}

func (s *MelodyService) SendMessage(message string) error {
	if s.m == nil {
		return fmt.Errorf("melody instance is nil")
	}
	return s.m.Broadcast([]byte(message))
}

// PromotionMessageBuilder formats the tier-promotion announcement.
type PromotionMessageBuilder struct {
	wallet string
	from   models.Tier
	to     models.Tier
}

func NewPromotionMessageBuilder(wallet string, from, to models.Tier) *PromotionMessageBuilder {
	return &PromotionMessageBuilder{
		wallet: wallet,
		from:   from,
		to:     to,
	}
}

func (b *PromotionMessageBuilder) Build() string {
	return fmt.Sprintf("🔔 Affiliate %s promoted from %s to %s.", b.wallet, b.from, b.to)
}
