// Package validation validates inbound payloads and configuration structs.
//
// Struct tag validation covers registration payloads and config sections:
//
//	type Instance struct {
//	    ID   string `validate:"required"`
//	    Port int    `validate:"required,min=1,max=65535"`
//	}
//	err := validation.Validate(inst)
//
// The programmatic Validator collects field errors for checks that tags
// cannot express.
package validation
