package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safwentrabelsi/delegate-notifier/types"
)

// context key holding the normalized topic filter
const topicKey = "topic"

// ValidateTopicParam accepts both normalized topics and node event names in the topic query
// parameter and stores the normalized form on the context.
func ValidateTopicParam() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Query("topic")
		if name != "" {
			topic, ok := types.ParseTopic(name)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown topic %q", name)})
				c.Abort()
				return
			}
			c.Set(topicKey, string(topic))
		}
		c.Next()
	}
}
