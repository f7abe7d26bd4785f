package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"tcgtable/internal/app"
	"tcgtable/internal/domain"
	"tcgtable/internal/ports/wire"

	"github.com/heroiclabs/nakama-common/runtime"
)

type rpcFunc func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)

type handlerFunc func(ctx context.Context, log runtime.Logger, payload []byte) (any, error)

// rpcHandlers exposes the coordinator as Nakama RPCs. One value is built in
// InitModule and shared by every call.
type rpcHandlers struct {
	coord *app.Coordinator
	voice *app.VoiceService
}

func newRPCHandlers(coord *app.Coordinator, voice *app.VoiceService) *rpcHandlers {
	return &rpcHandlers{coord: coord, voice: voice}
}

// RegisterRPCs registers every table RPC with Nakama.
func (h *rpcHandlers) RegisterRPCs(initializer runtime.Initializer) error {
	routes := []struct {
		id string
		fn handlerFunc
	}{
		{RpcGetProfile, h.getProfile},
		{RpcGetExperience, h.getExperience},
		{RpcSetDeck, h.setDeck},
		{RpcGetTable, h.getTable},
		{RpcSetTable, h.setTable},
		{RpcJoinTable, h.joinTable},
		{RpcLeaveTable, h.leaveTable},
		{RpcSetReadyState, h.setReadyState},
		{RpcStartGame, h.startGame},
		{RpcNextTurn, h.nextTurn},
		{RpcEndGame, h.endGame},
		{RpcTableVoiceToken, h.tableVoiceToken},
	}
	for _, r := range routes {
		if err := initializer.RegisterRpc(r.id, h.wrap(r.id, r.fn)); err != nil {
			return fmt.Errorf("register rpc %s: %w", r.id, err)
		}
	}
	return nil
}

// wrap is the failure boundary of every RPC: errors and panics are logged and
// answered with the same INTERNAL fault.
func (h *rpcHandlers) wrap(id string, fn handlerFunc) rpcFunc {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (out string, err error) {
		log := logger.WithFields(map[string]interface{}{
			"rpc":  id,
			"user": callerID(ctx),
		})
		defer func() {
			if r := recover(); r != nil {
				log.Error("recovered panic: %v", r)
				out, err = "", runtime.NewError("internal error", internalErrorCode)
			}
		}()

		if strings.TrimSpace(payload) == "" {
			payload = "{}"
		}
		resp, err := fn(ctx, log, []byte(payload))
		if err != nil {
			log.WithField("fault", wire.FaultKind(err)).Error("%v", err)
			return "", runtime.NewError("internal error", internalErrorCode)
		}

		raw, err := json.Marshal(resp)
		if err != nil {
			log.Error("encode response: %v", err)
			return "", runtime.NewError("internal error", internalErrorCode)
		}
		return string(raw), nil
	}
}

func callerID(ctx context.Context) string {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	return userID
}

// profileRequest decodes a profile payload, defaulting playerID to the caller.
func profileRequest(ctx context.Context, payload []byte) (wire.ProfileRequest, error) {
	req, err := wire.DecodeProfileRequest(payload)
	if err != nil {
		return req, err
	}
	if req.PlayerID == "" {
		req.PlayerID = callerID(ctx)
	}
	return req, nil
}

func (h *rpcHandlers) getProfile(ctx context.Context, log runtime.Logger, payload []byte) (any, error) {
	req, err := profileRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	return h.coord.GetProfile(ctx, req.PlayerID)
}

func (h *rpcHandlers) getExperience(ctx context.Context, log runtime.Logger, payload []byte) (any, error) {
	req, err := profileRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	exp, err := h.coord.GetExperience(ctx, req.PlayerID)
	if err != nil {
		return nil, err
	}
	return wire.ExperienceResponse{Experience: exp}, nil
}

func (h *rpcHandlers) setDeck(ctx context.Context, log runtime.Logger, payload []byte) (any, error) {
	req, err := profileRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	if err := h.coord.SetDeck(ctx, req.PlayerID, req.DeckID, req.DeckSerial); err != nil {
		return nil, err
	}
	return wire.ResultResponse{Result: true}, nil
}

func (h *rpcHandlers) getTable(ctx context.Context, log runtime.Logger, payload []byte) (any, error) {
	req, err := wire.DecodeTableRequest(payload)
	if err != nil {
		return nil, err
	}
	key, err := req.Key()
	if err != nil {
		return nil, err
	}
	return h.coord.GetTable(ctx, key)
}

func (h *rpcHandlers) setTable(ctx context.Context, log runtime.Logger, payload []byte) (any, error) {
	req, err := wire.DecodeTableRequest(payload)
	if err != nil {
		return nil, err
	}
	key, err := req.Key()
	if err != nil {
		return nil, err
	}
	snapshot, err := req.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := h.coord.SetTable(ctx, key, snapshot); err != nil {
		return nil, err
	}
	return wire.ResultResponse{Result: true}, nil
}

func (h *rpcHandlers) joinTable(ctx context.Context, log runtime.Logger, payload []byte) (any, error) {
	return h.teamOp(ctx, payload, func(req wire.TableRequest, team int) (app.Result, error) {
		key, _ := req.Key()
		playerID := req.PlayerID
		if playerID == "" {
			playerID = callerID(ctx)
		}
		return h.coord.JoinTable(ctx, key, team, playerID, req.PlayerName)
	})
}

func (h *rpcHandlers) leaveTable(ctx context.Context, log runtime.Logger, payload []byte) (any, error) {
	return h.teamOp(ctx, payload, func(req wire.TableRequest, team int) (app.Result, error) {
		key, _ := req.Key()
		return h.coord.LeaveTable(ctx, key, team)
	})
}

func (h *rpcHandlers) setReadyState(ctx context.Context, log runtime.Logger, payload []byte) (any, error) {
	return h.teamOp(ctx, payload, func(req wire.TableRequest, team int) (app.Result, error) {
		key, _ := req.Key()
		return h.coord.SetReadyState(ctx, key, team, req.State, req.DeckSerial)
	})
}

func (h *rpcHandlers) startGame(ctx context.Context, log runtime.Logger, payload []byte) (any, error) {
	req, err := wire.DecodeTableRequest(payload)
	if err != nil {
		return nil, err
	}
	key, err := req.Key()
	if err != nil {
		return nil, err
	}
	res, err := h.coord.StartGame(ctx, key)
	if err != nil {
		return nil, err
	}
	return wire.NewResultResponse(res), nil
}

func (h *rpcHandlers) nextTurn(ctx context.Context, log runtime.Logger, payload []byte) (any, error) {
	return h.snapshotOp(ctx, payload, func(req wire.TableRequest, snapshot *domain.TableSession) (any, error) {
		key, _ := req.Key()
		res, err := h.coord.NextTurn(ctx, key, snapshot)
		if err != nil {
			return nil, err
		}
		return wire.NewResultResponse(res), nil
	})
}

func (h *rpcHandlers) endGame(ctx context.Context, log runtime.Logger, payload []byte) (any, error) {
	return h.snapshotOp(ctx, payload, func(req wire.TableRequest, snapshot *domain.TableSession) (any, error) {
		key, _ := req.Key()
		res, err := h.coord.EndGame(ctx, key, snapshot)
		if err != nil {
			return nil, err
		}
		for _, s := range res.Settlement {
			if !s.OK() {
				log.WithFields(map[string]interface{}{
					"team":   s.Team,
					"player": s.PlayerID,
				}).Error("settlement failed: %v", s.Err)
			}
		}
		return wire.NewEndGameResponse(res), nil
	})
}

// tableVoiceToken signs a Vivox join token for the caller's table channel.
// Only the player holding the requested slot gets one.
func (h *rpcHandlers) tableVoiceToken(ctx context.Context, log runtime.Logger, payload []byte) (any, error) {
	req, err := wire.DecodeTableRequest(payload)
	if err != nil {
		return nil, err
	}
	key, err := req.Key()
	if err != nil {
		return nil, err
	}
	team, err := req.Team()
	if err != nil {
		return nil, err
	}
	grant, err := h.voice.TableToken(ctx, h.coord, key, team, callerID(ctx))
	if err != nil {
		return nil, err
	}
	if !grant.Accepted {
		return wire.NewResultResponse(grant.Result), nil
	}
	return wire.VoiceTokenResponse{Token: grant.Token, Channel: grant.Channel}, nil
}

// teamOp decodes a payload addressing one team slot and encodes the result.
func (h *rpcHandlers) teamOp(ctx context.Context, payload []byte, apply func(req wire.TableRequest, team int) (app.Result, error)) (any, error) {
	req, err := wire.DecodeTableRequest(payload)
	if err != nil {
		return nil, err
	}
	if _, err := req.Key(); err != nil {
		return nil, err
	}
	team, err := req.Team()
	if err != nil {
		return nil, err
	}
	res, err := apply(req, team)
	if err != nil {
		return nil, err
	}
	return wire.NewResultResponse(res), nil
}

// snapshotOp decodes a payload carrying tableData.
func (h *rpcHandlers) snapshotOp(ctx context.Context, payload []byte, apply func(req wire.TableRequest, snapshot *domain.TableSession) (any, error)) (any, error) {
	req, err := wire.DecodeTableRequest(payload)
	if err != nil {
		return nil, err
	}
	if _, err := req.Key(); err != nil {
		return nil, err
	}
	snapshot, err := req.Snapshot()
	if err != nil {
		return nil, err
	}
	return apply(req, snapshot)
}
