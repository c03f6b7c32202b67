// Package sanitizer normalizes user input before validation and storage.
//
// All functions are idempotent. Invalid input is returned in a form the
// validator will reject rather than as an error, so sanitizing never hides a
// bad value behind a valid-looking one.
//
// Normalization includes:
//   - Names and free text: collapse whitespace, trim
//   - Emails: trim, lowercase
//   - License plates: uppercase, single spaces between groups
//   - Phone numbers: E.164 using a default region for national formats
//   - URLs: https scheme, lowercase host, no tracking parameters
//   - Slices: drop duplicates and empty values after normalization
package sanitizer
