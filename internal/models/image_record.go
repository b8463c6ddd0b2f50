package models

import "time"

// ImageRecord is a device-captured image with its waste classification.
type ImageRecord struct {
	ID                string         `json:"id" db:"id"`
	BinID             string         `json:"bin_id" db:"bin_id"`
	ImageURL          string         `json:"image_url" db:"image_url"`
	PredictedCategory *WasteCategory `json:"predicted_category,omitempty" db:"predicted_category"`
	ActualCategory    *WasteCategory `json:"actual_category,omitempty" db:"actual_category"`
	Confidence        *int           `json:"confidence,omitempty" db:"confidence"` // 0-100
	IsVerified        bool           `json:"is_verified" db:"is_verified"`
	VerifiedBy        *string        `json:"verified_by,omitempty" db:"verified_by"`
	VerificationNotes *string        `json:"verification_notes,omitempty" db:"verification_notes"`
	CapturedAt        int64          `json:"captured_at" db:"captured_at"` // Unix timestamp
	CreatedAt         int64          `json:"created_at" db:"created_at"`
}

// VerifyImageRequest is the request body for PATCH /api/images/{id}/verify
type VerifyImageRequest struct {
	ActualCategory    WasteCategory `json:"actual_category"`
	VerificationNotes string        `json:"verification_notes,omitempty"`
}

// ImageRecordResponse is what we send to the client with ISO timestamps
type ImageRecordResponse struct {
	ID                string         `json:"id"`
	BinID             string         `json:"bin_id"`
	ImageURL          string         `json:"image_url"`
	PredictedCategory *WasteCategory `json:"predicted_category,omitempty"`
	ActualCategory    *WasteCategory `json:"actual_category,omitempty"`
	Confidence        *int           `json:"confidence,omitempty"`
	IsVerified        bool           `json:"is_verified"`
	CapturedAtIso     string         `json:"capturedAtIso"`
}

func (r *ImageRecord) ToImageRecordResponse() ImageRecordResponse {
	return ImageRecordResponse{
		ID:                r.ID,
		BinID:             r.BinID,
		ImageURL:          r.ImageURL,
		PredictedCategory: r.PredictedCategory,
		ActualCategory:    r.ActualCategory,
		Confidence:        r.Confidence,
		IsVerified:        r.IsVerified,
		CapturedAtIso:     time.Unix(r.CapturedAt, 0).UTC().Format(time.RFC3339),
	}
}
