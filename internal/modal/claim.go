package modal

import (
	"errors"
	"fmt"
	"strings"
)

type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ClaimRequest is the immutable input of one claim run.
type ClaimRequest struct {
	User        User     `json:"user"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Amount      float64  `json:"amount"`
}

// Validate checks the request shape. Image references are resolved later, during intake.
func (r ClaimRequest) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Description) == "" {
		errs = append(errs, errors.New("description must not be empty"))
	}
	if r.Amount <= 0 {
		errs = append(errs, errors.New("amount must be positive"))
	}
	for i, img := range r.Images {
		if strings.TrimSpace(img) == "" {
			errs = append(errs, fmt.Errorf("image reference %d is empty", i))
		}
	}
	return errors.Join(errs...)
}

type ClaimResponse struct {
	Status EvaluationStatus `json:"status"`
}
