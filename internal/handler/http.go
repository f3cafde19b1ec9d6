// Package handler exposes the lottery core over HTTP: the Telegram
// webhook, the room API, and the admin stats API. It is a thin adapter;
// all domain rules live in the registry and the services.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/klimaz/starlotto/internal/auth"
	"github.com/klimaz/starlotto/internal/config"
	"github.com/klimaz/starlotto/internal/middleware"
	"github.com/klimaz/starlotto/internal/models"
	"github.com/klimaz/starlotto/internal/registry"
	"github.com/klimaz/starlotto/internal/service"
	"github.com/klimaz/starlotto/internal/storage"
	"github.com/klimaz/starlotto/internal/telegram"
)

// HTTPHandler wires the HTTP routes to the lottery core.
type HTTPHandler struct {
	cfg       *config.Config
	registry  *registry.Registry
	admission *service.AdmissionService
	stats     *service.StatsService
	store     storage.Store
	tg        *telegram.Client
	jwt       *auth.JWTManager
	now       func() time.Time
}

// NewHTTPHandler creates the HTTP adapter. jwtManager may be nil, in
// which case the admin routes are not registered.
func NewHTTPHandler(cfg *config.Config, reg *registry.Registry, admission *service.AdmissionService, stats *service.StatsService, store storage.Store, tg *telegram.Client, jwtManager *auth.JWTManager) *HTTPHandler {
	return &HTTPHandler{
		cfg:       cfg,
		registry:  reg,
		admission: admission,
		stats:     stats,
		store:     store,
		tg:        tg,
		jwt:       jwtManager,
		now:       time.Now,
	}
}

// RegisterRoutes attaches all routes to the router.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.POST("/webhook", h.webhook)

	api := r.Group("/api")
	{
		api.GET("/room/:id", h.getRoom)
		api.POST("/user/info", h.userInfo)
		api.POST("/create-invoice", h.createInvoice)
	}

	if h.jwt != nil {
		admin := r.Group("/api/admin")
		admin.Use(middleware.RequireAdmin(h.jwt))
		admin.GET("/stats", h.adminStats)
	}
}

func (h *HTTPHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": h.now().UTC().Format(time.RFC3339)})
}

// region --- DTOs ---

type participantResponse struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	JoinedAt  time.Time `json:"joined_at"`
}

type winnerResponse struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	Amount    int64  `json:"amount"`
}

type roomResponse struct {
	RoomID          string                `json:"room_id"`
	EntryFee        int64                 `json:"entry_fee"`
	Status          string                `json:"status"`
	Participants    []participantResponse `json:"participants"`
	TotalPool       int64                 `json:"total_pool"`
	Winner          *winnerResponse       `json:"winner"`
	MaxParticipants int                   `json:"max_participants"`
}

func (h *HTTPHandler) newRoomResponse(room *models.Room) roomResponse {
	participants := make([]participantResponse, 0, len(room.Participants))
	for _, p := range room.Participants {
		participants = append(participants, participantResponse{
			UserID:    p.UserID,
			Username:  p.Username,
			FirstName: p.FirstName,
			JoinedAt:  p.JoinedAt,
		})
	}

	var winner *winnerResponse
	if room.Winner != nil {
		winner = &winnerResponse{
			UserID:    room.Winner.WinnerID,
			Username:  room.Winner.WinnerUsername,
			FirstName: room.Winner.WinnerFirstName,
			Amount:    room.Winner.WinnerAmount,
		}
	}

	return roomResponse{
		RoomID:          room.ID,
		EntryFee:        room.EntryFee,
		Status:          string(room.Status),
		Participants:    participants,
		TotalPool:       room.TotalPool,
		Winner:          winner,
		MaxParticipants: h.registry.Capacity(),
	}
}

// endregion

func (h *HTTPHandler) getRoom(c *gin.Context) {
	room, err := h.registry.GetRoom(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	c.JSON(http.StatusOK, h.newRoomResponse(room))
}

type initDataInput struct {
	InitData string `json:"initData" binding:"required"`
}

func (h *HTTPHandler) userInfo(c *gin.Context) {
	var input initDataInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tgUser, err := telegram.ValidateInitData(input.InitData, h.cfg.BotToken, h.now())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid init data"})
		return
	}

	user := &models.User{
		ID:        tgUser.ID,
		Username:  tgUser.Username,
		FirstName: tgUser.FirstName,
		LastName:  tgUser.LastName,
	}
	if err := h.store.GetOrCreateUser(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	stats, err := h.stats.ForUser(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":        user.ID,
		"username":       user.Username,
		"first_name":     user.FirstName,
		"total_games":    stats.TotalGames,
		"total_wins":     stats.TotalWins,
		"win_rate":       stats.WinRate,
		"total_winnings": stats.TotalWinnings,
	})
}

type createInvoiceInput struct {
	InitData string `json:"initData" binding:"required"`
	EntryFee int64  `json:"entryFee" binding:"required"`
}

func (h *HTTPHandler) createInvoice(c *gin.Context) {
	var input createInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.cfg.AllowsEntryFee(input.EntryFee) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry fee"})
		return
	}

	tgUser, err := telegram.ValidateInitData(input.InitData, h.cfg.BotToken, h.now())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid init data"})
		return
	}

	payload, err := json.Marshal(telegram.InvoicePayload{
		UserID:    tgUser.ID,
		EntryFee:  input.EntryFee,
		Timestamp: h.now().Unix(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	title := fmt.Sprintf("Lottery Entry - %d Stars", input.EntryFee)
	description := fmt.Sprintf(
		"Join the lottery room with %d participants. Winner takes %d%% of the pool!",
		h.registry.Capacity(), int(h.cfg.WinnerShare*100),
	)
	link, err := h.tg.CreateInvoiceLink(c.Request.Context(), title, description, string(payload), []telegram.LabeledPrice{
		{Label: "Entry Fee", Amount: input.EntryFee},
	})
	if err != nil {
		slog.Error("invoice creation failed", "user_id", tgUser.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invoice"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice_link": link})
}

func (h *HTTPHandler) adminStats(c *gin.Context) {
	stats, err := h.stats.Global(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_rooms":        stats.TotalRooms,
		"completed_rooms":    stats.CompletedRooms,
		"total_pool":         stats.TotalPool,
		"total_participants": stats.TotalParticipants,
		"total_house_fees":   stats.TotalHouseFees,
	})
}
