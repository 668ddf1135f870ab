package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/GiftAdmin/internal/service"
)

// PostHandler serves post moderation endpoints.
type PostHandler struct {
	posts *service.PostService
}

// NewPostHandler constructs a PostHandler.
func NewPostHandler(posts *service.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

type updatePostStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus sets the status of a post.
func (h *PostHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "postId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msgMissingParams})
		return
	}
	var body updatePostStatusRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msgMissingParams})
		return
	}

	if errUpdate := h.posts.UpdateStatus(c.Request.Context(), id, body.Status); errUpdate != nil {
		writeServiceError(c, errUpdate, errorResponse{notFound: "貼文不存在", internal: "資料庫操作失敗", success: true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "成功更新貼文狀態"})
}
