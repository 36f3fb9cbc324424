package httpapi

import "errors"

var (
	errBothInputsAndScript = errors.New("httpapi: provide only one of inputs, script_id, or batch_input")
	errNoInputsGiven       = errors.New("httpapi: one of inputs, script_id, or batch_input is required")
	errScriptNotFound      = errors.New("httpapi: script_id not found")
	errMalformedFilename   = errors.New("httpapi: malformed artifact filename")
	errBatchInputEmpty     = errors.New("httpapi: batch_input produced no usable text")
)
