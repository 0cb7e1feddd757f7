package server

// MessageType represents a WebSocket message type with type safety.
type MessageType string

// WebSocket message type constants for the session control surface.
const (
	// Client to server messages
	MessageTypeAuth               MessageType = "auth"
	MessageTypeJoinSession        MessageType = "join_session"
	MessageTypeSetBots            MessageType = "set_bots"
	MessageTypeSetRestriction     MessageType = "set_restriction"
	MessageTypeSetPickedPerRound  MessageType = "set_picked_cards_per_round"
	MessageTypeSetBurnedPerRound  MessageType = "set_burned_cards_per_round"
	MessageTypeSetDiscardAt       MessageType = "set_discard_remaining_cards_at"
	MessageTypeSetMaxDuplicates   MessageType = "set_max_duplicates"
	MessageTypeSetColorBalance    MessageType = "set_color_balance"
	MessageTypeSetFoil            MessageType = "set_foil"
	MessageTypeSetCustomCardList  MessageType = "set_custom_card_list"
	MessageTypeSetCustomBoosters  MessageType = "set_custom_boosters"
	MessageTypeSetDistribution    MessageType = "set_distribution_mode"
	MessageTypeSetDraftType       MessageType = "set_draft_type"
	MessageTypeStartDraft         MessageType = "start_draft"
	MessageTypeStopDraft          MessageType = "stop_draft"
	MessageTypePickCard           MessageType = "pick_card"
	MessageTypeWinstonTakePile    MessageType = "winston_take_pile"
	MessageTypeWinstonSkipPile    MessageType = "winston_skip_pile"
	MessageTypeMoveCard           MessageType = "move_card"
	MessageTypeReplaceDisconnects MessageType = "replace_disconnected_players"

	// Server to client messages
	MessageTypeAuthResponse  MessageType = "auth_response"
	MessageTypeSessionJoined MessageType = "session_joined"
	MessageTypeSessionUsers  MessageType = "session_users"
	MessageTypeSessionOpts   MessageType = "session_options"
	MessageTypeDraftState    MessageType = "draft_state"
	MessageTypeResumeDraft   MessageType = "resume_draft"
	MessageTypeResync        MessageType = "resync"
	MessageTypeDraftEnd      MessageType = "draft_end"
	MessageTypeOwnerNotice   MessageType = "owner_notice"
	MessageTypeAck           MessageType = "ack"
	MessageTypeError         MessageType = "error"
)

// String returns the string representation of the message type.
func (mt MessageType) String() string {
	return string(mt)
}
