package logboot

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate
var once sync.Once

func validateOptions(opts *Options) error {
	const op Op = "logboot.validateOptions"
	if opts == nil {
		return newError(KindConfiguration, op, "options are nil", nil)
	}

	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	if err := validate.Struct(opts); err != nil {
		return newError(KindConfiguration, op, errMsgConfigInvalid, err)
	}
	if opts.DisableFileLayer && !opts.EnableConsole {
		return newError(KindConfiguration, op, errMsgNoSink, nil)
	}
	return nil
}
