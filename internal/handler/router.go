package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Search *SearchHandler
	Chat   *ChatHandler
	Admin  *AdminHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/trials/search", deps.Search.Search)
	api.GET("/trials/filters", deps.Search.Filters)
	api.GET("/debug/test_query", deps.Search.TestQuery)
	api.GET("/debug/vector_db", deps.Search.DebugVectorDB)

	api.POST("/chat", deps.Chat.Chat)
	api.GET("/conversations/:id", deps.Chat.GetConversation)
	api.GET("/users/:user_id/conversations", deps.Chat.ListConversations)

	api.GET("/health", deps.Admin.Health)
	api.POST("/load_trials", deps.Admin.LoadTrials)
}
