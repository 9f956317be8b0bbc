package validations

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	domainDish "github.com/snapfood/snapfood-engine/domains/dish"
	pkgError "github.com/snapfood/snapfood-engine/pkg/error"
)

// ValidateDishQuery rejects malformed dish queries before any cache lookup or
// network call. Rules are checked one at a time so the first violation wins.
// Length limits count characters, not bytes, so CJK input is measured the
// same as ASCII.
func ValidateDishQuery(ctx context.Context, request domainDish.Query) error {
	if err := validation.Validate(strings.TrimSpace(request.Name),
		validation.Required.Error("dish name requires at least 2 characters"),
		validation.RuneLength(2, 0).Error("dish name requires at least 2 characters"),
	); err != nil {
		return pkgError.ValidationError("name: " + err.Error())
	}

	if err := validation.Validate(request.Description,
		validation.RuneLength(0, 500).Error("dish description must not exceed 500 characters"),
	); err != nil {
		return pkgError.ValidationError("desc: " + err.Error())
	}

	if err := validation.Validate(request.GeneralDescription,
		validation.RuneLength(0, 300).Error("general description must not exceed 300 characters"),
	); err != nil {
		return pkgError.ValidationError("gen_desc: " + err.Error())
	}

	if err := validation.Validate(request.Category,
		validation.RuneLength(0, 100).Error("category must not exceed 100 characters"),
	); err != nil {
		return pkgError.ValidationError("category: " + err.Error())
	}

	if request.Count != nil {
		if err := validation.Validate(*request.Count,
			validation.Min(0).Error("image count must be between 0 and 100"),
			validation.Max(100).Error("image count must be between 0 and 100"),
		); err != nil {
			return pkgError.ValidationError("count: " + err.Error())
		}
	}

	return nil
}
