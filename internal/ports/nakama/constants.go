package nakama

// Nakama RPC ids registered by the table module.
const (
	RpcGetProfile      = "get_profile"
	RpcGetExperience   = "get_experience"
	RpcSetDeck         = "set_deck"
	RpcGetTable        = "get_table"
	RpcSetTable        = "set_table"
	RpcJoinTable       = "join_table"
	RpcLeaveTable      = "leave_table"
	RpcSetReadyState   = "set_ready_state"
	RpcStartGame       = "start_game"
	RpcNextTurn        = "next_turn"
	RpcEndGame         = "end_game"
	RpcTableVoiceToken = "table_voice_token"
)

// Runtime environment keys read at module load.
const (
	envTableConfigPath = "tcg_table_config"
	envVivoxSecret     = "vivox_secret"
	envVivoxIssuer     = "vivox_issuer"
	envVivoxDomain     = "vivox_domain"
)

// internalErrorCode is the gRPC INTERNAL status Nakama forwards to clients.
const internalErrorCode = 13
