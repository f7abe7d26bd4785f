// Package httpapi serves the coordinator over HTTP with the route layout
// used by the card table clients.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"tcgtable/internal/app"
	"tcgtable/internal/domain"
	"tcgtable/internal/ports/wire"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	requestIDHeader = "X-Request-ID"
	ctxLoggerKey    = "logger"
)

// Handler exposes the coordinator operations as gin routes.
type Handler struct {
	coord *app.Coordinator
	log   runtime.Logger
}

// NewHandler creates a handler.
func NewHandler(coord *app.Coordinator, log runtime.Logger) *Handler {
	return &Handler{coord: coord, log: log}
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(h.requestLogger(), gin.CustomRecovery(h.recovered))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes mounts the API under /api.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api")

	api.GET("/get-profile/:playerID", h.getProfile)
	api.GET("/get-exp/:playerID", h.getExperience)
	api.POST("/set-deck", h.setDeck)

	api.POST("/get-table", h.getTable)
	api.POST("/set-table", h.setTable)
	api.POST("/join-table", h.joinTable)
	api.POST("/leave-table", h.leaveTable)
	api.POST("/set-ready-state", h.setReadyState)
	api.POST("/start-game", h.startGame)
	api.POST("/next-turn", h.nextTurn)
	api.POST("/end-game", h.endGame)
}

// requestLogger tags each request with an id and logs its outcome.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		log := h.log.WithFields(map[string]interface{}{
			"request_id": requestID,
			"route":      c.FullPath(),
		})
		c.Set(ctxLoggerKey, log)

		start := time.Now()
		c.Next()
		log.WithFields(map[string]interface{}{
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("%s %s", c.Request.Method, c.Request.URL.Path)
	}
}

func (h *Handler) recovered(c *gin.Context, recovered any) {
	h.logger(c).Error("recovered panic: %v", recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, wire.Failure)
}

func (h *Handler) logger(c *gin.Context) runtime.Logger {
	if v, ok := c.Get(ctxLoggerKey); ok {
		if log, ok := v.(runtime.Logger); ok {
			return log
		}
	}
	return h.log
}

// fail is the fault boundary: every error gets the same 500 body.
func (h *Handler) fail(c *gin.Context, err error) {
	h.logger(c).WithField("fault", wire.FaultKind(err)).Error("%v", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, wire.Failure)
}

func (h *Handler) getProfile(c *gin.Context) {
	profile, err := h.coord.GetProfile(c.Request.Context(), c.Param("playerID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) getExperience(c *gin.Context) {
	exp, err := h.coord.GetExperience(c.Request.Context(), c.Param("playerID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.ExperienceResponse{Experience: exp})
}

func (h *Handler) setDeck(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		h.fail(c, err)
		return
	}
	req, err := wire.DecodeProfileRequest(raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.coord.SetDeck(c.Request.Context(), req.PlayerID, req.DeckID, req.DeckSerial); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.ResultResponse{Result: true})
}

// tableRequest decodes the body and resolves the table key.
func (h *Handler) tableRequest(c *gin.Context) (wire.TableRequest, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		h.fail(c, err)
		return wire.TableRequest{}, false
	}
	req, err := wire.DecodeTableRequest(raw)
	if err == nil {
		_, err = req.Key()
	}
	if err != nil {
		h.fail(c, err)
		return wire.TableRequest{}, false
	}
	return req, true
}

func (h *Handler) getTable(c *gin.Context) {
	req, ok := h.tableRequest(c)
	if !ok {
		return
	}
	key, _ := req.Key()
	session, err := h.coord.GetTable(c.Request.Context(), key)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) setTable(c *gin.Context) {
	h.withSnapshot(c, func(ctx context.Context, req wire.TableRequest, snapshot *domain.TableSession) (any, error) {
		key, _ := req.Key()
		if err := h.coord.SetTable(ctx, key, snapshot); err != nil {
			return nil, err
		}
		return wire.ResultResponse{Result: true}, nil
	})
}

func (h *Handler) joinTable(c *gin.Context) {
	h.withTeam(c, func(ctx context.Context, req wire.TableRequest, team int) (app.Result, error) {
		key, _ := req.Key()
		return h.coord.JoinTable(ctx, key, team, req.PlayerID, req.PlayerName)
	})
}

func (h *Handler) leaveTable(c *gin.Context) {
	h.withTeam(c, func(ctx context.Context, req wire.TableRequest, team int) (app.Result, error) {
		key, _ := req.Key()
		return h.coord.LeaveTable(ctx, key, team)
	})
}

func (h *Handler) setReadyState(c *gin.Context) {
	h.withTeam(c, func(ctx context.Context, req wire.TableRequest, team int) (app.Result, error) {
		key, _ := req.Key()
		return h.coord.SetReadyState(ctx, key, team, req.State, req.DeckSerial)
	})
}

func (h *Handler) startGame(c *gin.Context) {
	req, ok := h.tableRequest(c)
	if !ok {
		return
	}
	key, _ := req.Key()
	res, err := h.coord.StartGame(c.Request.Context(), key)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.NewResultResponse(res))
}

func (h *Handler) nextTurn(c *gin.Context) {
	h.withSnapshot(c, func(ctx context.Context, req wire.TableRequest, snapshot *domain.TableSession) (any, error) {
		key, _ := req.Key()
		res, err := h.coord.NextTurn(ctx, key, snapshot)
		if err != nil {
			return nil, err
		}
		return wire.NewResultResponse(res), nil
	})
}

func (h *Handler) endGame(c *gin.Context) {
	h.withSnapshot(c, func(ctx context.Context, req wire.TableRequest, snapshot *domain.TableSession) (any, error) {
		key, _ := req.Key()
		res, err := h.coord.EndGame(ctx, key, snapshot)
		if err != nil {
			return nil, err
		}
		if !res.Accepted {
			return wire.NewResultResponse(res.Result), nil
		}
		for _, s := range res.Settlement {
			if !s.OK() {
				h.logger(c).WithFields(map[string]interface{}{
					"team":   s.Team,
					"player": s.PlayerID,
				}).Error("settlement failed: %v", s.Err)
			}
		}
		return wire.NewEndGameResponse(res), nil
	})
}

func (h *Handler) withTeam(c *gin.Context, apply func(ctx context.Context, req wire.TableRequest, team int) (app.Result, error)) {
	req, ok := h.tableRequest(c)
	if !ok {
		return
	}
	team, err := req.Team()
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := apply(c.Request.Context(), req, team)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.NewResultResponse(res))
}

func (h *Handler) withSnapshot(c *gin.Context, apply func(ctx context.Context, req wire.TableRequest, snapshot *domain.TableSession) (any, error)) {
	req, ok := h.tableRequest(c)
	if !ok {
		return
	}
	snapshot, err := req.Snapshot()
	if err != nil {
		h.fail(c, err)
		return
	}
	resp, err := apply(c.Request.Context(), req, snapshot)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
