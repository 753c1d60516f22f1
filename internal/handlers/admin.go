package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shreelaxmi/site/internal/middleware"
	"shreelaxmi/site/internal/models"
)

// AdminDashboard is the data behind the admin view: the full roster,
// including deactivated members, contact counts by status and the number of
// registered users.
func (h HandlerSet) AdminDashboard(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)

	members, err := h.team.ListAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	summary, err := h.contacts.Summary(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	users, err := h.auth.IdentityCount(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	counts := make(map[string]int, len(summary))
	total := 0
	for status, n := range summary {
		counts[string(status)] = n
		total += n
	}

	active := 0
	for _, m := range members {
		if m.IsActive {
			active++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  claimsUser(*claims),
		"users": users,
		"team": gin.H{
			"active":  active,
			"members": teamMemberList(members),
		},
		"contacts": gin.H{
			"total":    total,
			"byStatus": counts,
			"new":      summary[models.ContactStatusNew],
		},
	})
}
