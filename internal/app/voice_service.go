package app

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"tcgtable/internal/ports"

	"github.com/form3tech-oss/jwt-go"
)

// VoiceService signs Vivox access tokens so seated players can talk over a
// per-table voice channel.
type VoiceService struct {
	vivoxSecret string
	vivoxIssuer string
	vivoxDomain string
	tokenTTL    time.Duration
}

const (
	VoiceTokenActionLogin = "login"
	VoiceTokenActionJoin  = "join"
)

// NewVoiceService accepts empty settings. GenerateToken reports them
// instead of signing with an empty key.
func NewVoiceService(secret, issuer, domain string) *VoiceService {
	return &VoiceService{
		vivoxSecret: secret,
		vivoxIssuer: issuer,
		vivoxDomain: domain,
		tokenTTL:    time.Hour,
	}
}

// TableChannel names the voice channel of a table.
func TableChannel(key ports.TableKey) string {
	realm := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, key.RealmID)
	return "tcg-" + realm + "-" + strconv.FormatInt(key.TableID, 10)
}

// SeatAuthorizer confirms that a player holds a table slot. *Coordinator
// implements it.
type SeatAuthorizer interface {
	AuthorizeSeat(ctx context.Context, key ports.TableKey, team int, playerID string) (Result, error)
}

// TableVoiceGrant answers a table voice token request. Token and Channel are
// set only when the result is accepted.
type TableVoiceGrant struct {
	Result
	Token   string
	Channel string
}

// TableToken signs a join token for the table's voice channel. Only the
// player currently holding the slot gets one; anyone else is rejected with
// player_not_seated.
func (s *VoiceService) TableToken(ctx context.Context, seats SeatAuthorizer, key ports.TableKey, team int, userID string) (TableVoiceGrant, error) {
	if userID == "" {
		return TableVoiceGrant{}, fmt.Errorf("%w: voice tokens need an authenticated caller", ErrInvalidRequest)
	}
	res, err := seats.AuthorizeSeat(ctx, key, team, userID)
	if err != nil {
		return TableVoiceGrant{}, err
	}
	if !res.Accepted {
		return TableVoiceGrant{Result: res}, nil
	}

	channel := TableChannel(key)
	token, err := s.GenerateToken(userID, VoiceTokenActionJoin, channel)
	if err != nil {
		return TableVoiceGrant{}, fmt.Errorf("voice token: %w", err)
	}
	return TableVoiceGrant{Result: res, Token: token, Channel: channel}, nil
}

func (s *VoiceService) GenerateToken(user, action, channelName string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("voice service is nil")
	}
	if user == "" {
		return "", fmt.Errorf("user is required")
	}
	if s.vivoxSecret == "" || s.vivoxIssuer == "" || s.vivoxDomain == "" {
		return "", fmt.Errorf("vivox config is incomplete")
	}

	userURI := s.userURI(user)
	targetURI, err := s.targetURI(action, channelName, userURI)
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"iss": s.vivoxIssuer,
		"sub": user,
		"exp": time.Now().Add(s.tokenTTL).Unix(),
		"vxa": action,
		"vxi": fmt.Sprintf("%d-%d", time.Now().UnixNano(), rand.Int63()),
		"f":   userURI,
		"t":   targetURI,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.vivoxSecret))
}

func (s *VoiceService) userURI(user string) string {
	return "sip:." + s.vivoxIssuer + "." + user + ".@" + s.vivoxDomain
}

func (s *VoiceService) channelURI(channelName string) string {
	return "sip:confctl-g-" + channelName + "@" + s.vivoxDomain
}

func (s *VoiceService) targetURI(action, channelName, userURI string) (string, error) {
	switch action {
	case VoiceTokenActionLogin:
		return userURI, nil
	case VoiceTokenActionJoin:
		if channelName == "" {
			return "", fmt.Errorf("channel name is required for join tokens")
		}
		return s.channelURI(channelName), nil
	default:
		return "", fmt.Errorf("unsupported vivox action: %s", action)
	}
}
