package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"shreelaxmi/site/internal/models"
	"shreelaxmi/site/internal/service"
)

type contactResponse struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newContactResponse(contact models.Contact) contactResponse {
	return contactResponse{
		ID:        contact.ID,
		FullName:  contact.FullName,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Message:   contact.Message,
		Status:    string(contact.Status),
		CreatedAt: contact.CreatedAt,
		UpdatedAt: contact.UpdatedAt,
	}
}

func (h HandlerSet) SubmitContact(c *gin.Context) {
	var req service.SubmitContactInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c)
		return
	}

	contact, err := h.contacts.Submit(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Contact form submitted successfully",
		"contact": gin.H{
			"id":        contact.ID,
			"fullName":  contact.FullName,
			"status":    contact.Status,
			"createdAt": contact.CreatedAt,
		},
	})
}

func (h HandlerSet) ListContacts(c *gin.Context) {
	input := service.ListContactsInput{Status: c.Query("status")}

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 {
			input.Limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		v, err := strconv.Atoi(page)
		if err != nil || v < 1 {
			h.respondError(c, &service.DomainError{
				Kind:    service.KindValidation,
				Message: "invalid page",
				Fields:  map[string]string{"page": "must be a positive integer"},
			})
			return
		}
		input.Page = v
	}

	contacts, err := h.contacts.List(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]contactResponse, 0, len(contacts))
	for _, contact := range contacts {
		items = append(items, newContactResponse(contact))
	}
	c.JSON(http.StatusOK, items)
}

func (h HandlerSet) GetContact(c *gin.Context) {
	contact, err := h.contacts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newContactResponse(contact))
}

func (h HandlerSet) UpdateContactStatus(c *gin.Context) {
	var req service.UpdateContactStatusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c)
		return
	}

	contact, err := h.contacts.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newContactResponse(contact))
}

func (h HandlerSet) DeleteContact(c *gin.Context) {
	if err := h.contacts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contact deleted successfully"})
}
