// Package validation provides struct tag validation for service
// configuration and request payloads using the validator library.
//
//	type Config struct {
//	    APIKey  string   `validate:"required,min=16"`
//	    Workers []string `validate:"required,min=1,dive,url"`
//	}
//	err := validation.Validate(cfg)
package validation
