// Package sanitizer turns user supplied text into safe plain text.
//
// Functions are plain string transforms and compose with Apply and Compose:
//
//	preview := sanitizer.Compose(
//		sanitizer.StripHTML,
//		sanitizer.RemoveControlChars,
//		sanitizer.SingleLine,
//		sanitizer.TruncateFunc(100),
//	)
//	text := preview("<p>Hello <b>world</b></p>") // "Hello world"
package sanitizer
