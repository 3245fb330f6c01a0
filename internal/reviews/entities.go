package reviews

import (
	"errors"
	"time"
)

var (
	ErrReviewNotFound = errors.New("review not found")
	ErrAlreadyExists  = errors.New("product already reviewed")
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
)

type Review struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	ReviewerName string    `json:"reviewerName"`
	ProductID    string    `json:"productId"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}
