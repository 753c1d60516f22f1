package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shreelaxmi/site/internal/models"
	"shreelaxmi/site/internal/service"
)

type teamMemberResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Position       string    `json:"position"`
	Experience     string    `json:"experience"`
	Photo          string    `json:"photo"`
	Specialization string    `json:"specialization"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func newTeamMemberResponse(m models.TeamMember) teamMemberResponse {
	return teamMemberResponse{
		ID:             m.ID,
		Name:           m.Name,
		Position:       m.Position,
		Experience:     m.Experience,
		Photo:          m.Photo,
		Specialization: m.Specialization,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func teamMemberList(members []models.TeamMember) []teamMemberResponse {
	items := make([]teamMemberResponse, 0, len(members))
	for _, m := range members {
		items = append(items, newTeamMemberResponse(m))
	}
	return items
}

func (h HandlerSet) ListTeam(c *gin.Context) {
	members, err := h.team.ListActive(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, teamMemberList(members))
}

func (h HandlerSet) CreateTeamMember(c *gin.Context) {
	var req service.CreateTeamMemberInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c)
		return
	}

	member, err := h.team.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTeamMemberResponse(member))
}

func (h HandlerSet) UpdateTeamMember(c *gin.Context) {
	var req service.UpdateTeamMemberInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c)
		return
	}

	member, err := h.team.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTeamMemberResponse(member))
}

func (h HandlerSet) DeleteTeamMember(c *gin.Context) {
	if err := h.team.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Team member deleted successfully"})
}

func (h HandlerSet) UploadTeamPhoto(c *gin.Context) {
	limit := h.cfg.Storage.MaxPhotoSize
	if limit > 0 {
		// Leave room for the multipart envelope; the service enforces the
		// exact limit on the file itself.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(c, &service.DomainError{
				Kind:    service.KindValidation,
				Message: "file too large",
				Fields:  map[string]string{"file": "exceeds the upload limit"},
			})
			return
		}
		h.respondError(c, &service.DomainError{
			Kind:    service.KindValidation,
			Message: "file is required",
			Fields:  map[string]string{"file": "is required"},
		})
		return
	}
	defer file.Close()

	member, err := h.team.UploadPhoto(c.Request.Context(), c.Param("id"), service.PhotoUpload{File: file, Header: header})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTeamMemberResponse(member))
}
