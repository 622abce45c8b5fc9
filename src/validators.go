package main

import (
	"eventadmission/src/config"
	"eventadmission/src/types"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var futureDate validator.Func = func(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	datetime, err := time.Parse(config.TIME_PARSE_FORMAT, value)
	if err != nil {
		return false
	}
	return datetime.After(time.Now())
}

// ltDate checks the field is before the date held by the sibling field named in the param.
var ltDate validator.Func = func(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	datetime, err := time.Parse(config.TIME_PARSE_FORMAT, value)
	if err != nil {
		return false
	}
	other, ok := fl.Parent().FieldByName(fl.Param()).Interface().(string)
	if !ok {
		return false
	}
	otherDatetime, err := time.Parse(config.TIME_PARSE_FORMAT, other)
	if err != nil {
		return false
	}
	return datetime.Before(otherDatetime)
}

var decision validator.Func = func(fl validator.FieldLevel) bool {
	switch types.Decision(fl.Field().String()) {
	case types.DECISION_APPROVE, types.DECISION_REJECT:
		return true
	}
	return false
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("futuredate", futureDate)
		v.RegisterValidation("ltdate", ltDate)
		v.RegisterValidation("decision", decision)
	}
}
