package models

import "time"

// FeedbackCategory classifies a public feedback submission.
type FeedbackCategory string

const (
	FeedbackBug            FeedbackCategory = "bug"
	FeedbackFeatureRequest FeedbackCategory = "feature-request"
	FeedbackGeneral        FeedbackCategory = "general"
	FeedbackComplaint      FeedbackCategory = "complaint"
)

// FeedbackStatus tracks administrative review progress.
type FeedbackStatus string

const (
	FeedbackNew      FeedbackStatus = "new"
	FeedbackReviewed FeedbackStatus = "reviewed"
	FeedbackResolved FeedbackStatus = "resolved"
)

type Feedback struct {
	ID          string           `json:"id" db:"id"`
	UserID      string           `json:"user_id" db:"user_id"`
	Email       string           `json:"email" db:"email"`
	Subject     string           `json:"subject" db:"subject"`
	Message     string           `json:"message" db:"message"`
	Rating      *int             `json:"rating,omitempty" db:"rating"` // 1-5
	Category    FeedbackCategory `json:"category" db:"category"`
	Status      FeedbackStatus   `json:"status" db:"status"`
	ReviewedBy  *string          `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewNotes *string          `json:"review_notes,omitempty" db:"review_notes"`
	CreatedAt   int64            `json:"created_at" db:"created_at"`
	UpdatedAt   int64            `json:"updated_at" db:"updated_at"`
}

func ValidFeedbackCategory(c FeedbackCategory) bool {
	switch c {
	case FeedbackBug, FeedbackFeatureRequest, FeedbackGeneral, FeedbackComplaint:
		return true
	}
	return false
}

// SubmitFeedbackRequest is the request body for POST /api/feedback
type SubmitFeedbackRequest struct {
	UserID   string           `json:"user_id"`
	Email    string           `json:"email"`
	Subject  string           `json:"subject"`
	Message  string           `json:"message"`
	Rating   *int             `json:"rating,omitempty"`
	Category FeedbackCategory `json:"category,omitempty"`
}

// ReviewFeedbackRequest is the request body for PATCH /api/feedback/{id}
type ReviewFeedbackRequest struct {
	Status      FeedbackStatus `json:"status"`
	ReviewNotes string         `json:"review_notes,omitempty"`
}

// FeedbackStats summarizes feedback volume for the admin dashboard.
type FeedbackStats struct {
	Total         int     `json:"total"`
	New           int     `json:"new"`
	Reviewed      int     `json:"reviewed"`
	Resolved      int     `json:"resolved"`
	AverageRating float64 `json:"average_rating"`
}

// FeedbackResponse is what we send to the client with ISO timestamps
type FeedbackResponse struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	Email        string           `json:"email"`
	Subject      string           `json:"subject"`
	Message      string           `json:"message"`
	Rating       *int             `json:"rating,omitempty"`
	Category     FeedbackCategory `json:"category"`
	Status       FeedbackStatus   `json:"status"`
	ReviewNotes  *string          `json:"review_notes,omitempty"`
	CreatedAtIso string           `json:"createdAtIso"`
}

func (f *Feedback) ToFeedbackResponse() FeedbackResponse {
	return FeedbackResponse{
		ID:           f.ID,
		UserID:       f.UserID,
		Email:        f.Email,
		Subject:      f.Subject,
		Message:      f.Message,
		Rating:       f.Rating,
		Category:     f.Category,
		Status:       f.Status,
		ReviewNotes:  f.ReviewNotes,
		CreatedAtIso: time.Unix(f.CreatedAt, 0).UTC().Format(time.RFC3339),
	}
}
