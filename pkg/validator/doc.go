// Package validator provides composable validation rules.
//
//	err := validator.Apply(
//		validator.Required("title", c.Title),
//		validator.MaxLen("title", c.Title, 200),
//		validator.Between("quietHoursStart", h, 0, 23),
//	)
//
// Apply returns ValidationErrors listing every failed rule, or nil.
package validator
