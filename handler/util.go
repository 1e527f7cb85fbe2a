package handler

import (
	"encoding/json"

	"github.com/mrjvadi/busrpc/errs"
)

func jsonEncode(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func actionNotImplemented(action string) error {
	return errs.Internal("ACTION_NOT_IMPLEMENTED", "unrecognized action: "+action)
}
