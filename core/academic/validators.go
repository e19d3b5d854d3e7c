package academic

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/edutrack/core"
)

var (
	endDateTag  = "enddate"
	endDateText = "end date must not be before the start date"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(sessionStructValidation, SessionInput{})
	core.RegisterCustomTranslation(validate, translator, endDateTag, endDateText)
}

func sessionStructValidation(sl validator.StructLevel) {
	in := sl.Current().Interface().(SessionInput)
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return
	}
	if in.EndDate.Before(in.StartDate.Time) {
		sl.ReportError(in.EndDate, "end_date", "EndDate", endDateTag, "")
	}
}
