package error

import "net/http"

// ConfigInvalidError rejects a configuration update. The previous
// configuration stays in effect.
type ConfigInvalidError string

func (err ConfigInvalidError) Error() string {
	return string(err)
}

func (err ConfigInvalidError) ErrCode() string {
	return "CONFIG_INVALID"
}

func (err ConfigInvalidError) StatusCode() int {
	return http.StatusBadRequest
}
