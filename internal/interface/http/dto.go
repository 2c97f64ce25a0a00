package handlers

import (
	"time"

	"github.com/oksasatya/go-content-auth/internal/application"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
)

type UserDto struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	Avatar    string `json:"avatar,omitempty"`
}

func toUserDto(u *entity.Identity) UserDto {
	return UserDto{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role.String(),
		Status:    string(u.Status),
		Avatar:    u.AvatarURL,
	}
}

type PageDto struct {
	ID           string     `json:"id"`
	AuthorID     string     `json:"authorId"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	Description  string     `json:"description,omitempty"`
	Body         string     `json:"body,omitempty"`
	Status       string     `json:"status"`
	Visibility   string     `json:"visibility"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
	Version      int64      `json:"version"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func toPageDto(p *entity.Page) PageDto {
	return PageDto{
		ID:           p.ID,
		AuthorID:     p.AuthorID,
		Title:        p.Title,
		Slug:         p.Slug,
		Description:  p.Description,
		Body:         p.Body,
		Status:       string(p.Status),
		Visibility:   string(p.Visibility),
		ScheduledFor: p.ScheduledFor,
		PublishedAt:  p.PublishedAt,
		Version:      p.Version,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

type TokenResponse struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	TokenType        string `json:"tokenType"`
	ExpiresIn        int64  `json:"expiresIn"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn"`
}

func toTokenResponse(p application.TokenPair, accessTTL, refreshTTL time.Duration) TokenResponse {
	return TokenResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        int64(accessTTL.Seconds()),
		RefreshExpiresIn: int64(refreshTTL.Seconds()),
	}
}

type LoginResponse struct {
	User   UserDto       `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}
