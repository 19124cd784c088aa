package validator

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"wallet-txcore/pkg/address"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Init registers the custom tags on gin's binding engine so request
// structs bound by handlers get the same rules as Struct.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerCustom(v)
	}
}

// Struct validates s with the package validator.
func Struct(s interface{}) error {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		registerCustom(validate)
	})
	return validate.Struct(s)
}

func registerCustom(v *validator.Validate) {
	// chain_address: 0x 开头的 EVM 地址或 SS58 地址
	_ = v.RegisterValidation("chain_address", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return address.IsEthereumAddress(s) || address.IsSubstrateAddress(s)
	})
}

// GetErrorMsg translates validation errors into user-friendly messages
func GetErrorMsg(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "Invalid params"
	}

	errMsgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("%s is required", field))
		case "numeric":
			errMsgs = append(errMsgs, fmt.Sprintf("%s must be a number", field))
		case "chain_address":
			errMsgs = append(errMsgs, fmt.Sprintf("%s is not a valid address", field))
		case "min":
			errMsgs = append(errMsgs, fmt.Sprintf("%s must be at least %s", field, param))
		case "max":
			errMsgs = append(errMsgs, fmt.Sprintf("%s must be at most %s", field, param))
		case "oneof":
			errMsgs = append(errMsgs, fmt.Sprintf("%s must be one of [%s]", field, param))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("%s failed on %s", field, e.Tag()))
		}
	}
	return strings.Join(errMsgs, "; ")
}
