package handler

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"sga-horarios/backend/internal/model"
)

var registerOnce sync.Once

// RegisterValidators 向 gin 的校验引擎注册自定义规则
//   - hhmm：24 小时制 "HH:MM"
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("hhmm", validateHHMM)
	})
}

func validateHHMM(fl validator.FieldLevel) bool {
	_, err := model.ParseClock(fl.Field().String())
	return err == nil
}
