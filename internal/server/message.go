package server

import (
	"encoding/json"
	"time"

	"github.com/lox/packdraft/internal/cards"
	"github.com/lox/packdraft/internal/draft"
)

// Message is the base WebSocket message envelope.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

type JoinSessionData struct {
	SessionID string `json:"sessionId"`
}

type SetBotsData struct {
	Count int `json:"count"`
}

type SetRestrictionData struct {
	Sets []string `json:"sets"`
}

type SetIntData struct {
	Value int `json:"value"`
}

type SetBoolData struct {
	Value bool `json:"value"`
}

type SetFloatData struct {
	Value float64 `json:"value"`
}

type SetCustomCardListData struct {
	Text string `json:"text"`
}

type SetCustomBoostersData struct {
	// One entry per pack position: a set code, "random", or "randomShared".
	Boosters []string `json:"boosters"`
}

type SetDistributionData struct {
	Mode string `json:"mode"`
}

type SetDraftTypeData struct {
	Type string `json:"type"`
}

type PickCardData struct {
	PickNumber  int   `json:"pickNumber"`
	PickedCards []int `json:"pickedCards"`
	BurnedCards []int `json:"burnedCards,omitempty"`
}

type MoveCardData struct {
	UniqueID int64 `json:"uniqueId"`
	ToSide   bool  `json:"toSide"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorData is the structured user-displayable error payload. Every mutating
// request acknowledges success or carries one of these; never silent failure.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Title   string `json:"title,omitempty"`
	Footer  string `json:"footer,omitempty"`
}

type AckData struct {
	Type MessageType `json:"type"`
}

type SessionJoinedData struct {
	SessionID string         `json:"sessionId"`
	Owner     draft.UserID   `json:"owner"`
	Users     []draft.UserID `json:"users"`
	Options   OptionsData    `json:"options"`
}

type SessionUsersData struct {
	Owner        draft.UserID   `json:"owner"`
	Users        []draft.UserID `json:"users"`
	Disconnected []draft.UserID `json:"disconnected,omitempty"`
	Bots         []draft.UserID `json:"bots,omitempty"`
}

// OptionsData mirrors session options on the wire.
type OptionsData struct {
	SetRestriction          []string `json:"setRestriction"`
	BotCount                int      `json:"botCount"`
	BoostersPerPlayer       int      `json:"boostersPerPlayer"`
	ColorBalance            bool     `json:"colorBalance"`
	FoilRate                float64  `json:"foilRate"`
	MaxDuplicates           int      `json:"maxDuplicates"`
	PickedCardsPerRound     int      `json:"pickedCardsPerRound"`
	BurnedCardsPerRound     int      `json:"burnedCardsPerRound"`
	DiscardRemainingCardsAt int      `json:"discardRemainingCardsAt"`
	DistributionMode        string   `json:"distributionMode"`
	DraftType               string   `json:"draftType"`
	CustomCardList          string   `json:"customCardList,omitempty"`
	CustomBoosters          []string `json:"customBoosters,omitempty"`
}

type DraftStateData struct {
	View draft.View `json:"view"`
}

type ResumeDraftData struct {
	Reason string `json:"reason"`
}

// ResyncData is the full payload sent to a reconnecting player: accumulated
// picks plus the live state view.
type ResyncData struct {
	SessionID string            `json:"sessionId"`
	Picked    *draft.PlayerPool `json:"picked,omitempty"`
	View      *draft.View       `json:"view,omitempty"`
}

type DraftEndData struct {
	Reason string     `json:"reason"`
	Log    *draft.Log `json:"log,omitempty"`
}

type OwnerNoticeData struct {
	Notice string       `json:"notice"`
	User   draft.UserID `json:"user,omitempty"`
}

// CardList is a compact card-id summary used in draft end payloads.
type CardList []cards.CardID
