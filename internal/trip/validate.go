package trip

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/atharv3903/tripcorridor/internal/model"
	"github.com/atharv3903/tripcorridor/internal/proximity"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("radiustier", func(fl validator.FieldLevel) bool {
		return proximity.ValidRadius(fl.Field().Float())
	})
	return v
}

func tierList() string {
	parts := make([]string, len(proximity.Tiers))
	for i, t := range proximity.Tiers {
		parts[i] = fmt.Sprintf("%g", t)
	}
	return strings.Join(parts, ", ")
}

// normalize trims the endpoints and fills the default radius.
func normalize(req model.TripRequest) model.TripRequest {
	req.Origin = strings.TrimSpace(req.Origin)
	req.Destination = strings.TrimSpace(req.Destination)
	if req.RadiusMiles == 0 {
		req.RadiusMiles = proximity.DefaultRadiusMiles
	}
	return req
}

func (s *Service) validateRequest(req model.TripRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			ve.add(fe.Field(), "is required")
		case "max":
			ve.add(fe.Field(), "must be at most "+fe.Param()+" characters")
		case "radiustier":
			ve.add(fe.Field(), "must be one of "+tierList()+" miles")
		default:
			ve.add(fe.Field(), "failed "+fe.Tag())
		}
	}
	return ve
}
