package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shreelaxmi/site/internal/ids"
	"shreelaxmi/site/internal/media/sniffer"
	"shreelaxmi/site/internal/models"
	"shreelaxmi/site/internal/repository"
)

const defaultMaxPhotoSize = 5 << 20

// PhotoStore is where uploaded team photos end up.
type PhotoStore interface {
	PutPhoto(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

type TeamService struct {
	members      repository.TeamStore
	photos       PhotoStore
	maxPhotoSize int64
	storeTimeout time.Duration
	log          zerolog.Logger
}

func NewTeamService(members repository.TeamStore, photos PhotoStore, maxPhotoSize int64, storeTimeout time.Duration, log zerolog.Logger) *TeamService {
	if maxPhotoSize <= 0 {
		maxPhotoSize = defaultMaxPhotoSize
	}
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &TeamService{
		members:      members,
		photos:       photos,
		maxPhotoSize: maxPhotoSize,
		storeTimeout: storeTimeout,
		log:          log,
	}
}

type CreateTeamMemberInput struct {
	Name           string `json:"name" validate:"required,max=120"`
	Position       string `json:"position" validate:"required,max=120"`
	Experience     string `json:"experience" validate:"required,max=60"`
	Photo          string `json:"photo" validate:"max=2048"`
	Specialization string `json:"specialization" validate:"max=500"`
}

// UpdateTeamMemberInput changes only the fields that are set.
type UpdateTeamMemberInput struct {
	Name           *string `json:"name" validate:"omitnil,min=1,max=120"`
	Position       *string `json:"position" validate:"omitnil,min=1,max=120"`
	Experience     *string `json:"experience" validate:"omitnil,min=1,max=60"`
	Photo          *string `json:"photo" validate:"omitnil,max=2048"`
	Specialization *string `json:"specialization" validate:"omitnil,max=500"`
}

// ListActive returns the public roster, newest first.
func (s *TeamService) ListActive(ctx context.Context) ([]models.TeamMember, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	members, err := s.members.ListActive(ctx)
	if err != nil {
		return nil, infrastructure("list team members", err)
	}
	return members, nil
}

func (s *TeamService) ListAll(ctx context.Context) ([]models.TeamMember, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	members, err := s.members.ListAll(ctx)
	if err != nil {
		return nil, infrastructure("list team members", err)
	}
	return members, nil
}

func (s *TeamService) Create(ctx context.Context, input CreateTeamMemberInput) (models.TeamMember, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Position = strings.TrimSpace(input.Position)
	input.Experience = strings.TrimSpace(input.Experience)
	input.Photo = strings.TrimSpace(input.Photo)
	input.Specialization = strings.TrimSpace(input.Specialization)
	if err := validateInput(input); err != nil {
		return models.TeamMember{}, err
	}

	photo := input.Photo
	if photo == "" {
		photo = models.DefaultTeamPhoto
	}

	now := time.Now().UTC()
	member := models.TeamMember{
		ID:             ids.New(),
		Name:           input.Name,
		Position:       input.Position,
		Experience:     input.Experience,
		Photo:          photo,
		Specialization: input.Specialization,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.members.Create(ctx, member); err != nil {
		return models.TeamMember{}, infrastructure("create team member", err)
	}

	s.log.Info().Str("member_id", member.ID).Msg("team member created")
	return member, nil
}

func (s *TeamService) Update(ctx context.Context, id string, input UpdateTeamMemberInput) (models.TeamMember, error) {
	trimPtr(input.Name)
	trimPtr(input.Position)
	trimPtr(input.Experience)
	trimPtr(input.Photo)
	trimPtr(input.Specialization)
	if err := validateInput(input); err != nil {
		return models.TeamMember{}, err
	}

	member, err := s.get(ctx, id)
	if err != nil {
		return models.TeamMember{}, err
	}

	if input.Name != nil {
		member.Name = *input.Name
	}
	if input.Position != nil {
		member.Position = *input.Position
	}
	if input.Experience != nil {
		member.Experience = *input.Experience
	}
	if input.Photo != nil {
		member.Photo = *input.Photo
		if member.Photo == "" {
			member.Photo = models.DefaultTeamPhoto
		}
	}
	if input.Specialization != nil {
		member.Specialization = *input.Specialization
	}
	member.UpdatedAt = time.Now().UTC()

	if err := s.save(ctx, member); err != nil {
		return models.TeamMember{}, err
	}
	return member, nil
}

// Deactivate hides a member from the public roster. The record is kept.
func (s *TeamService) Deactivate(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := s.members.Deactivate(ctx, id)
	if errors.Is(err, repository.ErrTeamMemberNotFound) {
		return notFound("team member not found")
	}
	if err != nil {
		return infrastructure("deactivate team member", err)
	}

	s.log.Info().Str("member_id", id).Msg("team member deactivated")
	return nil
}

type PhotoUpload struct {
	File   multipart.File
	Header *multipart.FileHeader
}

// UploadPhoto stores an image for a member and points the member's photo at
// it. Only raster formats the sniffer recognises are accepted.
func (s *TeamService) UploadPhoto(ctx context.Context, id string, upload PhotoUpload) (models.TeamMember, error) {
	if upload.File == nil || upload.Header == nil {
		return models.TeamMember{}, validationError("file is required", map[string]string{"file": "is required"})
	}
	if s.photos == nil {
		return models.TeamMember{}, infrastructure("photo storage not configured", nil)
	}

	member, err := s.get(ctx, id)
	if err != nil {
		return models.TeamMember{}, err
	}

	result, head, err := sniffer.Detect(upload.File)
	if errors.Is(err, sniffer.ErrUnknownType) {
		return models.TeamMember{}, validationError("unsupported image type", map[string]string{"file": "must be a jpeg, png, gif, webp or avif image"})
	}
	if err != nil {
		return models.TeamMember{}, validationError("unreadable upload", nil)
	}

	declared := sniffer.MimeTypeFromHTTP(http.Header(upload.Header.Header))
	if declared != "" && declared != "application/octet-stream" && declared != result.MIME {
		return models.TeamMember{}, validationError(
			fmt.Sprintf("content type mismatch: declared %s, actual %s", declared, result.MIME),
			map[string]string{"file": "content does not match its declared type"},
		)
	}

	data, err := io.ReadAll(io.LimitReader(io.MultiReader(bytes.NewReader(head), upload.File), s.maxPhotoSize+1))
	if err != nil {
		return models.TeamMember{}, validationError("unreadable upload", nil)
	}
	if int64(len(data)) > s.maxPhotoSize {
		return models.TeamMember{}, validationError(
			fmt.Sprintf("file exceeds %d bytes", s.maxPhotoSize),
			map[string]string{"file": "is too large"},
		)
	}

	key := s.photoKey(member.ID, result.Extension())
	url, err := s.photos.PutPhoto(ctx, key, bytes.NewReader(data), int64(len(data)), result.MIME)
	if err != nil {
		return models.TeamMember{}, infrastructure("store photo", err)
	}

	member.Photo = url
	member.UpdatedAt = time.Now().UTC()
	if err := s.save(ctx, member); err != nil {
		return models.TeamMember{}, err
	}

	s.log.Info().Str("member_id", member.ID).Str("object_key", key).Int("bytes", len(data)).Msg("team photo uploaded")
	return member, nil
}

func (s *TeamService) photoKey(memberID, ext string) string {
	return path.Join("team", memberID, fmt.Sprintf("%s.%s", ids.New(), ext))
}

func (s *TeamService) get(ctx context.Context, id string) (models.TeamMember, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	member, err := s.members.GetByID(ctx, id)
	if errors.Is(err, repository.ErrTeamMemberNotFound) {
		return models.TeamMember{}, notFound("team member not found")
	}
	if err != nil {
		return models.TeamMember{}, infrastructure("get team member", err)
	}
	return member, nil
}

func (s *TeamService) save(ctx context.Context, member models.TeamMember) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := s.members.Update(ctx, member)
	if errors.Is(err, repository.ErrTeamMemberNotFound) {
		return notFound("team member not found")
	}
	if err != nil {
		return infrastructure("update team member", err)
	}
	return nil
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
