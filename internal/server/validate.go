package server

import (
	"fmt"
	"strings"

	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/review"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/verdict"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// verdictRequest is the body of PUT /verdicts. Complaint numbers are opaque
// and may hold spaces or slashes, so they travel in the body rather than the
// path. Quality is a wire label; Reason only matters when Quality is Incorrect.
type verdictRequest struct {
	ComplaintNumber string `json:"complaint_number" validate:"required"`
	Quality         string `json:"quality" validate:"quality"`
	Reason          string `json:"reason" validate:"omitempty,reason"`
}

// filterRequest is the body of PUT /filter. Empty or "All" clears a predicate.
type filterRequest struct {
	Zone    string `json:"zone" validate:"max=200"`
	Ward    string `json:"ward" validate:"max=200"`
	Subtype string `json:"subtype" validate:"max=200"`
}

func (f filterRequest) filter() review.Filter {
	return review.Filter{Zone: f.Zone, Ward: f.Ward, Subtype: f.Subtype}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("quality", func(fl validator.FieldLevel) bool {
		_, err := verdict.ParseQuality(fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("reason", func(fl validator.FieldLevel) bool {
		return verdict.IsReason(fl.Field().String())
	})
	return v
}

// bind parses the JSON body into out and validates it. Failures are 422 with
// one message per offending field.
func (s *Server) bind(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if err := s.validate.Struct(out); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: invalid value %q", strings.ToLower(fe.Field()), fe.Value()))
		}
		return fiber.NewError(fiber.StatusUnprocessableEntity, strings.Join(msgs, "; "))
	}
	return nil
}
