// Package repair drives a plan generator until it emits a plan tree that
// passes the schema validator.
//
// Each attempt sends the accumulated prompt to the generator, takes the text
// after the last "### Response:" marker, extracts the JSON object and
// validates it. A rejected attempt is echoed back (truncated) together with
// the validator's message, and the generator is asked again. After
// MaxAttempts rejections the sample is given up with ErrExhausted.
//
// Generator failures (transport errors, canceled contexts) are not retried;
// only schema violations and undecodable output are.
package repair
