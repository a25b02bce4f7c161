package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateChatSession(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	session, err := h.ChatSvc.CreateSession(c.Request.Context(), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": session.ID})
}

func (h *Handler) GetChatSession(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid session id")
		return
	}

	detail, err := h.ChatSvc.GetSession(c.Request.Context(), uid, sessionID)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type addMessageReq struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) AddChatMessage(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid session id")
		return
	}

	var req addMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "content is required")
		return
	}

	msg, err := h.ChatSvc.AddUserMessage(c.Request.Context(), uid, sessionID, req.Content)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) ConfirmChatAction(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid session id")
		return
	}
	actionID, err := strconv.ParseUint(c.Param("actionId"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid action id")
		return
	}

	action, err := h.ChatSvc.ConfirmAction(c.Request.Context(), uid, sessionID, actionID)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, action)
}
